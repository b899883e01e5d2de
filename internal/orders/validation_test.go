package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreport-backend/internal/llm"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	req := SubmitRequest{
		CustomerEmail: "  reader@example.com ",
		BookTitle:     " Dune ",
		TargetGrade:   "b+",
		Language:      " Spanish ",
		FocusAreas:    []string{" themes ", "", "  "},
	}.Normalize()

	assert.Equal(t, "reader@example.com", req.CustomerEmail)
	assert.Equal(t, "Dune", req.BookTitle)
	assert.Equal(t, defaultLength, req.Length)
	assert.Equal(t, "B+", req.TargetGrade)
	assert.Equal(t, "spanish", req.Language)
	assert.Equal(t, []string{"themes"}, req.FocusAreas)

	empty := SubmitRequest{}.Normalize()
	assert.Equal(t, llm.DefaultTargetGrade, empty.TargetGrade)
	assert.Equal(t, llm.DefaultLanguage, empty.Language)
}

func TestNormalizeTruncatesSample(t *testing.T) {
	req := SubmitRequest{SampleText: strings.Repeat("é", maxSampleRunes+10)}.Normalize()
	assert.Equal(t, maxSampleRunes, len([]rune(req.SampleText)))
}

func TestValidateReportsEachField(t *testing.T) {
	err := SubmitRequest{Length: 50, TargetGrade: "F", Language: "en"}.Validate()
	require.Error(t, err)

	verr := validationError(err)
	assert.Equal(t, KindValidation, verr.Kind)
	for _, field := range []string{"customerEmail", "bookTitle", "author", "gradeLevel", "length", "targetGrade"} {
		assert.Contains(t, verr.Fields, field)
	}
	assert.Equal(t, "customer email is required", verr.Fields["customerEmail"])
}

func TestValidateLengthBounds(t *testing.T) {
	base := duneRequest().Normalize()

	for _, length := range []int{minLength, maxLength} {
		req := base
		req.Length = length
		assert.NoError(t, req.Validate(), "length %d", length)
	}
	for _, length := range []int{minLength - 1, maxLength + 1} {
		req := base
		req.Length = length
		assert.Error(t, req.Validate(), "length %d", length)
	}
}

func TestValidateRejectsBadEmail(t *testing.T) {
	req := duneRequest()
	req.CustomerEmail = "not-an-email"
	err := req.Normalize().Validate()
	require.Error(t, err)
	assert.Contains(t, validationError(err).Fields, "customerEmail")
}

func TestValidateChecksEmailFormatOnly(t *testing.T) {
	for _, email := range []string{"a@b.com", "student@school.invalid", "parent@no-such-host.test"} {
		req := duneRequest()
		req.CustomerEmail = email
		assert.NoError(t, req.Normalize().Validate(), email)
	}
}

func TestSubmitDuneScenarioWithShortEmail(t *testing.T) {
	env := newTestEnv(t, replying("REPORT"))
	sub, err := env.svc.Submit(context.Background(), SubmitRequest{
		CustomerEmail: "a@b.com",
		BookTitle:     "Dune",
		Author:        "Frank Herbert",
		GradeLevel:    "high-school",
		Length:        1000,
	}, nil)
	require.NoError(t, err)

	order, err := env.repo.GetByID(context.Background(), sub.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", order.CustomerEmail)
	assert.Equal(t, StatusPending, order.Status)
}
