package server

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"bookreport-backend/internal/orders"
	"bookreport-backend/internal/services/health"
	"bookreport-backend/internal/shared/config"
	"bookreport-backend/internal/shared/metrics"
	"bookreport-backend/internal/shared/server/middleware"
	"bookreport-backend/internal/shared/server/respond"
)

const (
	rateGroupSubmit  = "SUBMIT"
	rateGroupProcess = "PROCESS"
)

// RouterDeps carries the handlers mounted on the engine.
type RouterDeps struct {
	Config  config.Config
	Orders  *orders.Handler
	Health  *health.Service
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	r.GET("/metrics", metrics.Handler())

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	if deps.Orders != nil {
		deps.Orders.RegisterRoutes(api, middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:  deps.Limiter,
			GroupFor: rateGroup,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupSubmit:  {Rate: 0.2, Burst: 5},
				rateGroupProcess: {Rate: 0.5, Burst: 10},
			},
		}))
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return r
}

func rateGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/orders" {
		return rateGroupSubmit
	}
	return rateGroupProcess
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
