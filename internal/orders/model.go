package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bookreport-backend/internal/llm"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// authenticStyleErrorRate is the error-injection percentage used when a
// customer asks for an authentic student voice.
const authenticStyleErrorRate = 5

// Order is a customer's request for a book report.
type Order struct {
	ID               string          `json:"id"`
	CustomerEmail    string          `json:"customerEmail"`
	BookTitle        string          `json:"bookTitle"`
	Author           string          `json:"author"`
	GradeLevel       string          `json:"gradeLevel"`
	Length           int             `json:"length"`
	IsRush           bool            `json:"isRush"`
	SampleText       string          `json:"sampleText,omitempty"`
	SampleKey        string          `json:"-"`
	AuthenticStyle   bool            `json:"authenticStyle"`
	TargetGrade      string          `json:"targetGrade"`
	Language         string          `json:"language"`
	FocusAreas       []string        `json:"focusAreas"`
	Status           Status          `json:"status"`
	ReportText       string          `json:"reportText,omitempty"`
	ErrorMessage     string          `json:"errorMessage,omitempty"`
	CorrelationToken string          `json:"sessionId"`
	Price            decimal.Decimal `json:"price"`
	DueAt            time.Time       `json:"dueAt"`
	CreatedAt        time.Time       `json:"createdAt"`
	StartedAt        *time.Time      `json:"startedAt,omitempty"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ErrorRate returns the error-injection percentage for the prompt.
func (o Order) ErrorRate() int {
	if o.AuthenticStyle {
		return authenticStyleErrorRate
	}
	return 0
}

// ReportRequest maps the order onto prompt inputs, applying defaults.
func (o Order) ReportRequest() llm.ReportRequest {
	targetGrade := o.TargetGrade
	if strings.TrimSpace(targetGrade) == "" {
		targetGrade = llm.DefaultTargetGrade
	}
	language := o.Language
	if strings.TrimSpace(language) == "" {
		language = llm.DefaultLanguage
	}
	return llm.ReportRequest{
		BookTitle:   o.BookTitle,
		Author:      o.Author,
		GradeLevel:  o.GradeLevel,
		Length:      o.Length,
		SampleText:  o.SampleText,
		ErrorRate:   o.ErrorRate(),
		Language:    language,
		TargetGrade: targetGrade,
		FocusAreas:  o.FocusAreas,
	}
}

// allowedTransitions lists the legal successor states. completed is terminal
// and failed -> processing is the only backward edge.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusProcessing},
	StatusCompleted:  nil,
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// predecessors returns the statuses from which to is reachable.
func predecessors(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusProcessing, StatusFailed, StatusCompleted} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// StatusChange is the write applied by a conditional transition. Columns
// that the invariants tie to the status are derived from To.
type StatusChange struct {
	To           Status
	ReportText   string
	ErrorMessage string
	At           time.Time
}

// apply returns o with the change applied, keeping report_text and
// completed_at consistent with the new status.
func (c StatusChange) apply(o Order) Order {
	at := c.At
	o.Status = c.To
	o.UpdatedAt = at
	switch c.To {
	case StatusProcessing:
		o.StartedAt = &at
		o.CompletedAt = nil
		o.ReportText = ""
		o.ErrorMessage = ""
	case StatusCompleted:
		o.CompletedAt = &at
		o.ReportText = c.ReportText
		o.ErrorMessage = ""
	case StatusFailed:
		o.CompletedAt = &at
		o.ReportText = ""
		o.ErrorMessage = c.ErrorMessage
	default:
		o.CompletedAt = nil
		o.ReportText = ""
	}
	return o
}
