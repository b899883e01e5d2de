package orders

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bookreport-backend/internal/shared/server/middleware"
	"bookreport-backend/internal/shared/server/respond"
)

const (
	maxSampleBytes      = 5 << 20
	sampleFileFormField = "writingSampleFile"
)

// Handler wires HTTP handlers to the order service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches order routes to the router group. Mutating routes
// go through limit, which may be nil.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	mutating := []gin.HandlerFunc{}
	if limit != nil {
		mutating = append(mutating, limit)
	}
	rg.POST("/orders", append(mutating, h.submit)...)
	rg.GET("/orders", h.list)
	rg.GET("/orders/session/:token", h.getBySession)
	rg.GET("/orders/:id", h.get)
	rg.POST("/orders/:id/process", append(mutating, h.process)...)
	rg.GET("/orders/:id/report", h.getReport)
	rg.GET("/orders/:id/report/download", h.downloadReport)
	rg.PATCH("/orders/:id/status", h.updateStatus)
	rg.GET("/quote", h.quote)
}

func (h *Handler) submit(c *gin.Context) {
	var req SubmitRequest
	var sample *SampleUpload

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		parsed, upload, err := bindMultipart(c)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
			return
		}
		req, sample = parsed, upload
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid JSON body", nil)
		return
	}

	sub, err := h.Svc.Submit(requestContext(c), req, sample)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Created(c, sub)
}

func bindMultipart(c *gin.Context) (SubmitRequest, *SampleUpload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSampleBytes+1<<20)
	length, _ := strconv.Atoi(c.PostForm("length"))
	req := SubmitRequest{
		CustomerEmail:    c.PostForm("customerEmail"),
		BookTitle:        c.PostForm("bookTitle"),
		Author:           c.PostForm("author"),
		GradeLevel:       c.PostForm("gradeLevel"),
		Length:           length,
		IsRush:           formBool(c.PostForm("isRush")),
		SampleText:       c.PostForm("sampleText"),
		AuthenticStyle:   formBool(c.PostForm("authenticStyle")),
		TargetGrade:      c.PostForm("targetGrade"),
		Language:         c.PostForm("language"),
		FocusAreas:       c.PostFormArray("focusAreas"),
		CorrelationToken: c.PostForm("sessionId"),
	}

	fh, err := c.FormFile(sampleFileFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return SubmitRequest{}, nil, errors.New("invalid multipart body")
	}
	if fh.Size > maxSampleBytes {
		return SubmitRequest{}, nil, errors.New("writing sample exceeds 5MB")
	}
	f, err := fh.Open()
	if err != nil {
		return SubmitRequest{}, nil, errors.New("unable to read writing sample")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxSampleBytes+1))
	if err != nil || len(data) > maxSampleBytes {
		return SubmitRequest{}, nil, errors.New("unable to read writing sample")
	}
	return req, &SampleUpload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes":
		return true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func (h *Handler) list(c *gin.Context) {
	limit := 0
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	orders, err := h.Svc.List(requestContext(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"orders": orders})
}

func (h *Handler) get(c *gin.Context) {
	order, err := h.Svc.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, order)
}

func (h *Handler) getBySession(c *gin.Context) {
	order, err := h.Svc.GetByCorrelationToken(requestContext(c), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, order)
}

func (h *Handler) process(c *gin.Context) {
	ctx := requestContext(c)
	orderID := c.Param("id")

	if formBool(c.Query("async")) {
		if err := h.Svc.Enqueue(ctx, orderID); err != nil {
			writeError(c, err)
			return
		}
		respond.Accepted(c, gin.H{"success": true, "orderId": orderID, "queued": true})
		return
	}

	if err := h.Svc.Process(ctx, orderID); err != nil {
		switch KindOf(err) {
		case KindSynthesis:
			// The order is now failed; report the reason alongside the outcome.
			respond.JSON(c, http.StatusOK, gin.H{"success": false, "error": err.Error()})
		default:
			writeError(c, err)
		}
		return
	}
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) getReport(c *gin.Context) {
	orderID := c.Param("id")
	text, err := h.Svc.GetReport(requestContext(c), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"orderId": orderID, "report": text})
}

func (h *Handler) downloadReport(c *gin.Context) {
	dl, err := h.Svc.DownloadReport(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Attachment(c, dl.FileName, dl.ContentType, dl.Body)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid JSON body", nil)
		return
	}
	order, err := h.Svc.UpdateStatus(requestContext(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, order)
}

func (h *Handler) quote(c *gin.Context) {
	length := defaultLength
	if v := c.Query("length"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < minLength || parsed > maxLength {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "length must be between 100 and 5000", nil)
			return
		}
		length = parsed
	}
	respond.OK(c, h.Svc.Quote(length, formBool(c.Query("rush"))))
}

// writeError maps pipeline errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	kind := KindOf(err)
	msg := "internal error"
	var details any
	var e *Error
	if errors.As(err, &e) {
		msg = e.Error()
		if len(e.Fields) > 0 {
			details = e.Fields
		}
	}

	status := http.StatusInternalServerError
	switch kind {
	case KindValidation:
		status = http.StatusBadRequest
	case KindNotFound:
		status = http.StatusNotFound
	case KindNotYetAvailable, KindConflict:
		status = http.StatusConflict
	case KindSynthesis:
		status = http.StatusBadGateway
	case KindInternal:
		if errors.Is(err, ErrQueueNotConfigured) {
			status = http.StatusServiceUnavailable
		}
	}
	respond.Error(c, status, kind.Code(), msg, details)
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}
