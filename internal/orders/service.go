package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookreport-backend/internal/extract"
	"bookreport-backend/internal/llm"
	"bookreport-backend/internal/queue"
	"bookreport-backend/internal/shared/metrics"
	"bookreport-backend/internal/shared/storage/object"
	"bookreport-backend/internal/shared/telemetry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	staleBatchSize   = 100
	maxErrorMessage  = 500
)

// Service runs the order pipeline: submission, processing and report reads.
type Service struct {
	Repo        Repo
	Synthesizer llm.Synthesizer
	Retry       llm.RetryPolicy
	Provider    string
	// Store holds writing samples and archived reports; optional.
	Store object.ObjectStore
	// Queue receives asynchronous processing requests; optional.
	Queue queue.Client
	// Views caches reads and is notified of every status change; optional.
	Views *ViewCache

	Now   func() time.Time
	NewID func() string
}

// Submission is returned to the customer after an order is accepted.
type Submission struct {
	OrderID          string          `json:"orderId"`
	CorrelationToken string          `json:"sessionId"`
	Price            decimal.Decimal `json:"price"`
	DueAt            time.Time       `json:"dueAt"`
}

// SampleUpload is a writing sample file attached to a submission.
type SampleUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Submit validates req and stores a pending order. Nothing is written when
// validation fails.
func (s *Service) Submit(ctx context.Context, req SubmitRequest, sample *SampleUpload) (Submission, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Submission{}, validationError(err)
	}

	var sampleKey string
	if sample != nil && len(sample.Data) > 0 {
		text, key, err := s.storeSample(ctx, req.CustomerEmail, sample)
		if err != nil {
			return Submission{}, err
		}
		req.SampleText = truncateRunes(text, maxSampleRunes)
		sampleKey = key
	}

	now := s.now()
	quote := QuoteFor(req.Length, req.IsRush, now)
	token := req.CorrelationToken
	if token == "" {
		token = s.newID()
	}
	order := Order{
		ID:               s.newID(),
		CustomerEmail:    req.CustomerEmail,
		BookTitle:        req.BookTitle,
		Author:           req.Author,
		GradeLevel:       req.GradeLevel,
		Length:           req.Length,
		IsRush:           req.IsRush,
		SampleText:       req.SampleText,
		SampleKey:        sampleKey,
		AuthenticStyle:   req.AuthenticStyle,
		TargetGrade:      req.TargetGrade,
		Language:         req.Language,
		FocusAreas:       req.FocusAreas,
		Status:           StatusPending,
		CorrelationToken: token,
		Price:            quote.Price,
		DueAt:            quote.DueAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Create(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateToken) {
			return Submission{}, newError(KindConflict, "Session id is already attached to an order", err)
		}
		return Submission{}, newError(KindStorage, "Failed to create order", err)
	}

	metrics.IncOrdersSubmitted()
	telemetry.Info("order.submitted", map[string]any{
		"request_id":  RequestIDFromContext(ctx),
		"order_id":    order.ID,
		"length":      order.Length,
		"is_rush":     order.IsRush,
		"has_sample":  order.SampleText != "",
		"grade_level": order.GradeLevel,
	})
	s.notify(ctx, order)

	return Submission{
		OrderID:          order.ID,
		CorrelationToken: order.CorrelationToken,
		Price:            order.Price,
		DueAt:            order.DueAt,
	}, nil
}

func (s *Service) storeSample(ctx context.Context, owner string, sample *SampleUpload) (string, string, error) {
	text, err := extract.Text(ctx, sample.Data, sample.ContentType, sample.FileName)
	if err != nil {
		return "", "", &Error{
			Kind:    KindValidation,
			Message: "Writing sample could not be read",
			Fields:  map[string]string{"writingSampleFile": err.Error()},
			Err:     err,
		}
	}
	if s.Store == nil {
		return text, "", nil
	}
	key, _, _, err := s.Store.Save(ctx, owner, sample.FileName, bytes.NewReader(sample.Data))
	if err != nil {
		return "", "", newError(KindStorage, "Failed to store writing sample", err)
	}
	if err := extract.SaveExtracted(ctx, s.Store, key, text); err != nil {
		telemetry.Warn("order.sample_extract_save_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"sample_key": key,
			"error":      err.Error(),
		})
	}
	return text, key, nil
}

// Process generates the report for an order. The order moves to processing
// only from pending or failed; concurrent callers get a conflict. On any
// failure after that point the order is marked failed with the reason.
func (s *Service) Process(ctx context.Context, orderID string) (err error) {
	current, err := s.Repo.GetByID(ctx, orderID)
	if err != nil {
		return storageError("Failed to load order", err)
	}
	if !CanTransition(current.Status, StatusProcessing) {
		return newError(KindConflict, fmt.Sprintf("Order is %s and cannot be processed", current.Status), ErrStatusConflict)
	}

	startedAt := s.now()
	order, err := s.Repo.Transition(ctx, orderID, predecessors(StatusProcessing), StatusChange{To: StatusProcessing, At: startedAt})
	if err != nil {
		return storageError("Failed to start processing", err)
	}
	metrics.IncProcessingStarted()
	s.logTransition(ctx, order, current.Status, 0)
	s.notify(ctx, order)

	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("panic: %v", r)
			s.fail(ctx, order, cause, startedAt)
			err = newError(KindInternal, "Failed to generate report", cause)
		}
	}()

	prompt := llm.BuildReportPrompt(order.ReportRequest())
	text, synthErr := s.synthesize(ctx, order, prompt)
	if synthErr == nil && strings.TrimSpace(text) == "" {
		synthErr = &llm.Error{Provider: s.Provider, Kind: llm.KindEmptyResponse, Err: errors.New("empty report")}
	}
	if synthErr != nil {
		s.fail(ctx, order, synthErr, startedAt)
		return newError(KindSynthesis, "Failed to generate report: "+sanitizeError(synthErr), synthErr)
	}

	writeCtx := context.WithoutCancel(ctx)
	completedAt := s.now()
	completed, err := s.Repo.Transition(writeCtx, orderID, []Status{StatusProcessing}, StatusChange{
		To:         StatusCompleted,
		ReportText: text,
		At:         completedAt,
	})
	if err != nil {
		s.fail(ctx, order, fmt.Errorf("save report: %w", err), startedAt)
		return storageError("Failed to update order with report", err)
	}

	s.archive(writeCtx, completed)
	metrics.IncOrdersCompleted()
	metrics.ObserveProcessingDurationMs(durationMs(startedAt, completedAt))
	s.logTransition(ctx, completed, StatusProcessing, durationMs(startedAt, completedAt))
	s.notify(writeCtx, completed)
	return nil
}

func (s *Service) synthesize(ctx context.Context, order Order, prompt string) (string, error) {
	if s.Synthesizer == nil {
		return "", &llm.Error{Provider: s.Provider, Kind: llm.KindUnavailable, Err: errors.New("synthesis provider not configured")}
	}
	policy := s.Retry
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.IncSynthesisRetries()
		telemetry.Warn("synthesis.retry", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"order_id":   order.ID,
			"provider":   s.Provider,
			"attempt":    attempt,
			"delay_ms":   delay.Milliseconds(),
			"kind":       string(llm.KindOf(err)),
		})
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}
	counted := llm.SynthesizerFunc(func(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
		metrics.IncSynthesisAttempts()
		return s.Synthesizer.Complete(ctx, prompt, maxOutputTokens)
	})
	return llm.NewRetrying(counted, policy).Complete(ctx, prompt, llm.MaxOutputTokens(order.Length))
}

// fail records a processing failure. It is best effort: if the write loses
// the race the stale sweep or a later retry settles the order.
func (s *Service) fail(ctx context.Context, order Order, cause error, startedAt time.Time) {
	completedAt := s.now()
	failed, err := s.Repo.Transition(context.WithoutCancel(ctx), order.ID, []Status{StatusProcessing}, StatusChange{
		To:           StatusFailed,
		ErrorMessage: sanitizeError(cause),
		At:           completedAt,
	})
	if err != nil {
		telemetry.Error("order.fail_write_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"order_id":   order.ID,
			"error":      err.Error(),
			"cause":      sanitizeError(cause),
		})
		return
	}
	metrics.IncOrdersFailed()
	metrics.ObserveProcessingDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("order.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"order_id":          order.ID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"duration_ms":       durationMs(startedAt, completedAt),
		"error_kind":        string(llm.KindOf(cause)),
	})
	s.notify(context.WithoutCancel(ctx), failed)
}

// GetReport returns the report text of a completed order.
func (s *Service) GetReport(ctx context.Context, orderID string) (string, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.Status != StatusCompleted || order.ReportText == "" {
		return "", newError(KindNotYetAvailable, "Report not yet available", ErrReportNotAvailable)
	}
	metrics.IncReportViews()
	return order.ReportText, nil
}

// GetByID returns an order by its id.
func (s *Service) GetByID(ctx context.Context, orderID string) (Order, error) {
	var order Order
	if s.Views.get(ctx, orderViewKey(orderID), &order) {
		return order, nil
	}
	order, err := s.Repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, storageError("Failed to load order", err)
	}
	s.Views.putOrder(ctx, orderViewKey(orderID), order)
	return order, nil
}

// GetByCorrelationToken returns the order created with the session token.
func (s *Service) GetByCorrelationToken(ctx context.Context, token string) (Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Order{}, notFoundError()
	}
	var order Order
	if s.Views.get(ctx, sessionViewKey(token), &order) {
		return order, nil
	}
	order, err := s.Repo.GetByCorrelationToken(ctx, token)
	if err != nil {
		return Order{}, storageError("Failed to load order", err)
	}
	s.Views.putOrder(ctx, sessionViewKey(token), order)
	return order, nil
}

// List returns orders newest first. Non-positive limits use the default page
// size and limits are capped.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.Repo.List(ctx, limit, offset)
	if err != nil {
		return nil, newError(KindStorage, "Failed to list orders", err)
	}
	return out, nil
}

// UpdateStatus is the operator's status setter. It enforces the transition
// table; completion is reserved for report synthesis since a completed order
// must carry its report.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (Order, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return Order{}, &Error{Kind: KindValidation, Message: "Invalid status", Fields: map[string]string{"status": err.Error()}, Err: err}
	}
	current, err := s.Repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, storageError("Failed to load order", err)
	}
	if to == StatusCompleted {
		return Order{}, newError(KindConflict, "Orders are completed only by report generation", ErrStatusConflict)
	}
	if !CanTransition(current.Status, to) {
		return Order{}, newError(KindConflict, fmt.Sprintf("Cannot change status from %s to %s", current.Status, to), ErrStatusConflict)
	}

	change := StatusChange{To: to, At: s.now()}
	if to == StatusFailed {
		change.ErrorMessage = "marked failed by operator"
	}
	updated, err := s.Repo.Transition(ctx, orderID, []Status{current.Status}, change)
	if err != nil {
		return Order{}, storageError("Failed to update order status", err)
	}
	if to == StatusFailed {
		metrics.IncOrdersFailed()
	}
	s.logTransition(ctx, updated, current.Status, 0)
	s.notify(ctx, updated)
	return updated, nil
}

// SweepStale fails orders that have been processing for longer than
// staleAfter and returns how many were moved.
func (s *Service) SweepStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	cutoff := s.now().Add(-staleAfter)
	swept := 0
	for {
		stale, err := s.Repo.ListStale(ctx, cutoff, staleBatchSize)
		if err != nil {
			return swept, newError(KindStorage, "Failed to list stale orders", err)
		}
		moved := 0
		for _, order := range stale {
			failed, err := s.Repo.Transition(ctx, order.ID, []Status{StatusProcessing}, StatusChange{
				To:           StatusFailed,
				ErrorMessage: fmt.Sprintf("processing timed out after %s", staleAfter),
				At:           s.now(),
			})
			if errors.Is(err, ErrStatusConflict) || errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return swept, newError(KindStorage, "Failed to fail stale order", err)
			}
			moved++
			metrics.IncOrdersFailed()
			s.logTransition(ctx, failed, StatusProcessing, 0)
			s.notify(ctx, failed)
		}
		swept += moved
		if len(stale) < staleBatchSize || moved == 0 {
			break
		}
	}
	if swept > 0 {
		metrics.AddStaleOrdersSwept(swept)
		telemetry.Warn("order.stale_swept", map[string]any{"count": swept, "stale_after": staleAfter.String()})
	}
	return swept, nil
}

// Enqueue asks a worker to process the order asynchronously.
func (s *Service) Enqueue(ctx context.Context, orderID string) error {
	if s.Queue == nil {
		return newError(KindInternal, "Asynchronous processing is not configured", ErrQueueNotConfigured)
	}
	current, err := s.Repo.GetByID(ctx, orderID)
	if err != nil {
		return storageError("Failed to load order", err)
	}
	if !CanTransition(current.Status, StatusProcessing) {
		return newError(KindConflict, fmt.Sprintf("Order is %s and cannot be processed", current.Status), ErrStatusConflict)
	}
	msg := queue.NewMessage(orderID, RequestIDFromContext(ctx), s.now())
	if err := s.Queue.Send(ctx, msg); err != nil {
		return newError(KindInternal, "Failed to enqueue order", err)
	}
	telemetry.Info("order.enqueued", map[string]any{
		"request_id": msg.RequestID,
		"order_id":   orderID,
	})
	return nil
}

// Quote prices an order without storing anything.
func (s *Service) Quote(length int, isRush bool) Quote {
	if length <= 0 {
		length = defaultLength
	}
	return QuoteFor(length, isRush, s.now())
}

// ProcessOrder satisfies the worker's processor contract.
func (s *Service) ProcessOrder(ctx context.Context, orderID string) error {
	return s.Process(ctx, orderID)
}

func (s *Service) notify(ctx context.Context, order Order) {
	s.Views.OrderChanged(ctx, order)
}

func (s *Service) logTransition(ctx context.Context, order Order, from Status, duration float64) {
	fields := map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"order_id":          order.ID,
		"status":            order.Status,
		"status_transition": string(from) + "->" + string(order.Status),
	}
	if duration > 0 {
		fields["duration_ms"] = duration
	}
	telemetry.Info("order.status", fields)
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	return truncateRunes(msg, maxErrorMessage)
}
