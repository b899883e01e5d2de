package orders

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"bookreport-backend/internal/llm"
)

const (
	defaultLength   = 1000
	minLength       = 100
	maxLength       = 5000
	maxSampleRunes  = 20000
	maxFocusAreas   = 10
	maxFocusAreaLen = 120
)

// SubmitRequest carries the customer-supplied fields of a new order.
type SubmitRequest struct {
	CustomerEmail    string   `json:"customerEmail"`
	BookTitle        string   `json:"bookTitle"`
	Author           string   `json:"author"`
	GradeLevel       string   `json:"gradeLevel"`
	Length           int      `json:"length"`
	IsRush           bool     `json:"isRush"`
	SampleText       string   `json:"sampleText"`
	AuthenticStyle   bool     `json:"authenticStyle"`
	TargetGrade      string   `json:"targetGrade"`
	Language         string   `json:"language"`
	FocusAreas       []string `json:"focusAreas"`
	CorrelationToken string   `json:"sessionId"`
}

// Normalize trims free text and fills defaults for optional fields.
func (r SubmitRequest) Normalize() SubmitRequest {
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.BookTitle = strings.TrimSpace(r.BookTitle)
	r.Author = strings.TrimSpace(r.Author)
	r.GradeLevel = strings.TrimSpace(r.GradeLevel)
	r.SampleText = truncateRunes(strings.TrimSpace(r.SampleText), maxSampleRunes)
	r.TargetGrade = strings.ToUpper(strings.TrimSpace(r.TargetGrade))
	if r.TargetGrade == "" {
		r.TargetGrade = llm.DefaultTargetGrade
	}
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	if r.Language == "" {
		r.Language = llm.DefaultLanguage
	}
	if r.Length == 0 {
		r.Length = defaultLength
	}
	r.CorrelationToken = strings.TrimSpace(r.CorrelationToken)

	areas := make([]string, 0, len(r.FocusAreas))
	for _, area := range r.FocusAreas {
		if area = strings.TrimSpace(area); area != "" {
			areas = append(areas, area)
		}
	}
	r.FocusAreas = areas
	return r
}

// Validate checks a normalized request.
func (r SubmitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CustomerEmail,
			validation.Required.Error("customer email is required"),
			is.EmailFormat.Error("invalid email format"),
			validation.Length(3, 255),
		),
		validation.Field(&r.BookTitle,
			validation.Required.Error("book title is required"),
			validation.Length(1, 300),
		),
		validation.Field(&r.Author,
			validation.Required.Error("author is required"),
			validation.Length(1, 200),
		),
		validation.Field(&r.GradeLevel,
			validation.Required.Error("grade level is required"),
			validation.Length(1, 100),
		),
		validation.Field(&r.Length,
			validation.Min(minLength).Error("length must be at least 100 words"),
			validation.Max(maxLength).Error("length must be at most 5000 words"),
		),
		validation.Field(&r.TargetGrade,
			validation.By(func(value interface{}) error {
				if !llm.ValidTargetGrade(value.(string)) {
					return errors.New("target grade must be one of A+, A, B+, B, C+, C")
				}
				return nil
			}),
		),
		validation.Field(&r.Language, validation.Length(1, 50)),
		validation.Field(&r.FocusAreas,
			validation.Length(0, maxFocusAreas),
			validation.Each(validation.Length(1, maxFocusAreaLen)),
		),
		validation.Field(&r.CorrelationToken, validation.Length(0, 128)),
	)
}

// validationError converts ozzo field errors into a pipeline error.
func validationError(err error) *Error {
	fields := map[string]string{}
	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, fieldErr := range errs {
			fields[field] = fieldErr.Error()
		}
	}
	return &Error{Kind: KindValidation, Message: "Missing or invalid required fields", Fields: fields, Err: err}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
