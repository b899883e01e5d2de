package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReportPromptDefaults(t *testing.T) {
	prompt := BuildReportPrompt(ReportRequest{
		BookTitle:  "Dune",
		Author:     "Frank Herbert",
		GradeLevel: "high-school",
		Length:     1000,
	})

	assert.True(t, strings.HasPrefix(prompt, `Write a excellent and thorough book report about "Dune" by Frank Herbert.`))
	assert.Contains(t, prompt, "The report should be approximately 1000 words long.")
	assert.Contains(t, prompt, "This is for a high school student.")
	assert.Contains(t, prompt, "Write in a style typical of a high school student.")
	assert.Contains(t, prompt, "Use correct grammar and spelling appropriate for this education level.")
	assert.NotContains(t, prompt, "Pay special attention")
	assert.Contains(t, prompt, "Write in english.")
	assert.Contains(t, prompt, "(advanced vocabulary level)")
	assert.Contains(t, prompt, "Make the analytical depth moderate analytical.")
	assert.True(t, strings.HasSuffix(prompt, "Create well-developed paragraphs with clear topic sentences."))
}

func TestBuildReportPromptSectionsInOrder(t *testing.T) {
	prompt := BuildReportPrompt(ReportRequest{BookTitle: "Dune", Author: "Frank Herbert", Length: 500})

	last := -1
	for i, section := range reportSections {
		idx := strings.Index(prompt, section)
		require.GreaterOrEqual(t, idx, 0, "missing section %d", i+1)
		require.Greater(t, idx, last, "section %d out of order", i+1)
		last = idx
	}
}

func TestBuildReportPromptSampleTruncated(t *testing.T) {
	sample := strings.Repeat("é", 600)
	prompt := BuildReportPrompt(ReportRequest{BookTitle: "T", Author: "A", SampleText: sample})

	want := `Match the writing style of this sample: "` + strings.Repeat("é", 500) + `"`
	assert.Contains(t, prompt, want)
	assert.NotContains(t, prompt, strings.Repeat("é", 501))
	assert.NotContains(t, prompt, "Write in a style typical of")
}

func TestBuildReportPromptErrorRateAndFocus(t *testing.T) {
	prompt := BuildReportPrompt(ReportRequest{
		BookTitle:   "Dune",
		Author:      "Frank Herbert",
		GradeLevel:  "college",
		ErrorRate:   5,
		Language:    "spanish",
		TargetGrade: "B",
		FocusAreas:  []string{"symbolism", " ", "ecology"},
	})

	assert.Contains(t, prompt, "Write a good and competent book report")
	assert.Contains(t, prompt, "Include approximately 5% realistic student errors in grammar, spelling, or reasoning.")
	assert.Contains(t, prompt, "Pay special attention to the following aspects: symbolism, ecology.")
	assert.Contains(t, prompt, "Write in spanish.")
	assert.Contains(t, prompt, "This is for a college student.")
}

func TestBuildReportPromptUnknownGradeFallsBack(t *testing.T) {
	prompt := BuildReportPrompt(ReportRequest{BookTitle: "Dune", Author: "Frank Herbert", TargetGrade: "F"})
	assert.True(t, strings.HasPrefix(prompt, "Write a good book report"))
}

func TestBuildReportPromptDeterministic(t *testing.T) {
	req := ReportRequest{BookTitle: "Dune", Author: "Frank Herbert", GradeLevel: "middle", Length: 800, FocusAreas: []string{"family"}}
	assert.Equal(t, BuildReportPrompt(req), BuildReportPrompt(req))
}

func TestMaxOutputTokens(t *testing.T) {
	assert.Equal(t, 1000, MaxOutputTokens(0))
	assert.Equal(t, 1000, MaxOutputTokens(500))
	assert.Equal(t, 2000, MaxOutputTokens(1000))
	assert.Equal(t, 6000, MaxOutputTokens(3000))
}
