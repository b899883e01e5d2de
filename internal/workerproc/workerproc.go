package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"bookreport-backend/internal/orders"
	"bookreport-backend/internal/queue"
)

// Processor runs the order pipeline for one order.
type Processor interface {
	ProcessOrder(ctx context.Context, orderID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingOrderID indicates a message without an order id.
type ErrMissingOrderID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingOrderID) Error() string { return "missing order id" }

// ErrUnsupportedVersion indicates a payload written by a newer producer.
type ErrUnsupportedVersion struct {
	Meta    MessageMeta
	Version int
}

func (e ErrUnsupportedVersion) Error() string { return "unsupported message version" }

// ErrProcess indicates processing failed after successful parsing. Retryable
// is false when the order already carries the outcome and redelivery cannot
// change it.
type ErrProcess struct {
	OrderID   string
	RequestID string
	Retryable bool
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process order"
	}
	return "process order: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Version > queue.MessageVersion {
		return msg, meta, ErrUnsupportedVersion{Meta: meta, Version: msg.Version}
	}
	if strings.TrimSpace(msg.OrderID) == "" {
		return msg, meta, ErrMissingOrderID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// IsUnrecoverable reports whether a parse error means the payload can never
// be processed and should be dropped.
func IsUnrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingOrderID, ErrUnsupportedVersion:
		return true
	}
	return false
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, processor Processor, body string) error {
	if processor == nil {
		return errors.New("order processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(msg.OrderID) == "" {
		return ErrMissingOrderID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctxWithRequest := orders.WithRequestID(ctx, msg.RequestID)
	if err := processor.ProcessOrder(ctxWithRequest, msg.OrderID); err != nil {
		return ErrProcess{
			OrderID:   msg.OrderID,
			RequestID: msg.RequestID,
			Retryable: retryable(err),
			Err:       err,
		}
	}
	return nil
}

// retryable keeps a message only for failures that left no outcome on the
// order: storage and internal errors. A synthesis failure has already marked
// the order failed; a conflict means another worker owns it or it is done.
func retryable(err error) bool {
	switch orders.KindOf(err) {
	case orders.KindSynthesis, orders.KindConflict, orders.KindNotFound, orders.KindValidation:
		return false
	}
	return true
}
