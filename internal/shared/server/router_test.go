package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"bookreport-backend/internal/llm"
	"bookreport-backend/internal/orders"
	"bookreport-backend/internal/services/health"
	"bookreport-backend/internal/shared/config"
)

func newTestRouter(t *testing.T, healthSvc *health.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &orders.Service{
		Repo:        orders.NewMemoryRepo(),
		Synthesizer: llm.StubSynthesizer{},
		Retry:       llm.DefaultRetryPolicy(),
		Provider:    "stub",
	}
	return NewRouter(RouterDeps{
		Config: config.Config{Env: "dev", CORSAllowOrigin: []string{"http://localhost:3000"}},
		Orders: orders.NewHandler(svc),
		Health: healthSvc,
	})
}

func TestHealthReportsFailingDependency(t *testing.T) {
	healthSvc := health.NewService()
	healthSvc.Register("database", func(ctx context.Context) error { return errors.New("down") })
	router := newTestRouter(t, healthSvc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestRouterServesOrdersAndMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	body, _ := json.Marshal(map[string]any{
		"customerEmail": "reader@example.com",
		"bookTitle":     "Dune",
		"author":        "Frank Herbert",
		"gradeLevel":    "college",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "orders_submitted_total") {
		t.Fatalf("unexpected metrics response %d", resp.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
