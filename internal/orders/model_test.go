package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreport-backend/internal/llm"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusFailed, StatusProcessing, true},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.ElementsMatch(t, []Status{StatusPending, StatusFailed}, predecessors(StatusProcessing))
	assert.Empty(t, predecessors(StatusPending))
}

func TestStatusChangeKeepsTiedColumnsConsistent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	order := Order{ID: "o1", Status: StatusPending}

	processing := StatusChange{To: StatusProcessing, At: at}.apply(order)
	require.NotNil(t, processing.StartedAt)
	assert.Nil(t, processing.CompletedAt)
	assert.Empty(t, processing.ReportText)

	completed := StatusChange{To: StatusCompleted, ReportText: "REPORT", At: at.Add(time.Minute)}.apply(processing)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, "REPORT", completed.ReportText)
	assert.Equal(t, at, *completed.StartedAt)

	failed := StatusChange{To: StatusFailed, ErrorMessage: "boom", At: at.Add(time.Minute)}.apply(processing)
	require.NotNil(t, failed.CompletedAt)
	assert.Empty(t, failed.ReportText)
	assert.Equal(t, "boom", failed.ErrorMessage)

	retried := StatusChange{To: StatusProcessing, At: at.Add(time.Hour)}.apply(failed)
	assert.Nil(t, retried.CompletedAt)
	assert.Empty(t, retried.ErrorMessage)
	assert.Equal(t, at.Add(time.Hour), *retried.StartedAt)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Failed ")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st)

	_, err = ParseStatus("archived")
	assert.Error(t, err)
}

func TestReportRequestAppliesDefaults(t *testing.T) {
	order := Order{
		BookTitle:      "Dune",
		Author:         "Frank Herbert",
		GradeLevel:     "high-school",
		Length:         1000,
		AuthenticStyle: true,
		Price:          decimal.RequireFromString("14.99"),
	}
	req := order.ReportRequest()
	assert.Equal(t, llm.DefaultTargetGrade, req.TargetGrade)
	assert.Equal(t, llm.DefaultLanguage, req.Language)
	assert.Equal(t, 5, req.ErrorRate)

	order.AuthenticStyle = false
	assert.Equal(t, 0, order.ReportRequest().ErrorRate)
}
