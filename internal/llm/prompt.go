package llm

import (
	"fmt"
	"strings"
)

const (
	sampleExcerptRunes = 500
	minOutputTokens    = 1000

	DefaultLanguage    = "english"
	DefaultTargetGrade = "A"
)

// ReportRequest carries everything the prompt needs from an order.
type ReportRequest struct {
	BookTitle   string
	Author      string
	GradeLevel  string
	Length      int
	SampleText  string
	ErrorRate   int
	Language    string
	TargetGrade string
	FocusAreas  []string
}

var reportSections = []string{
	"A brief introduction to the book",
	"Summary of key events/plot (without revealing the ending if it's fiction)",
	"Analysis of main themes or arguments",
	"Analysis of key characters (for fiction) or evidence (for non-fiction)",
	"Personal reaction or reflection",
	"Conclusion",
}

// BuildReportPrompt renders the completion prompt for a report. It is
// deterministic for a given request.
func BuildReportPrompt(req ReportRequest) string {
	profile := ResolveProfile(req.GradeLevel)
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = DefaultLanguage
	}
	grade := strings.TrimSpace(req.TargetGrade)
	if grade == "" {
		grade = DefaultTargetGrade
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s book report about \"%s\" by %s.\n", GradeQuality(grade), req.BookTitle, req.Author)
	fmt.Fprintf(&b, "The report should be approximately %d words long.\n", req.Length)
	fmt.Fprintf(&b, "This is for a %s student.\n\n", profile.Description)

	b.WriteString(styleInstruction(req.SampleText, profile))
	b.WriteString("\n")
	b.WriteString(errorInstruction(req.ErrorRate))
	b.WriteString("\n")
	if focus := focusInstruction(req.FocusAreas); focus != "" {
		b.WriteString(focus)
		b.WriteString("\n")
	}

	b.WriteString("\nInclude the following sections:\n")
	for i, section := range reportSections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, section)
	}

	fmt.Fprintf(&b, "\nWrite in %s.\n", language)
	fmt.Fprintf(&b, "Use vocabulary appropriate for a %s student (%s vocabulary level).\n", profile.Description, profile.Vocabulary)
	fmt.Fprintf(&b, "Make the analytical depth %s.\n", profile.Depth)
	fmt.Fprintf(&b, "Create %s.", profile.ParagraphStructure)
	return b.String()
}

// MaxOutputTokens returns the completion budget for a report of length words.
func MaxOutputTokens(length int) int {
	return max(length*2, minOutputTokens)
}

func styleInstruction(sample string, profile EducationProfile) string {
	if strings.TrimSpace(sample) == "" {
		return fmt.Sprintf("Write in a style typical of a %s student.", profile.Description)
	}
	return fmt.Sprintf("Match the writing style of this sample: \"%s\"", truncateRunes(sample, sampleExcerptRunes))
}

func errorInstruction(rate int) string {
	if rate > 100 {
		rate = 100
	}
	if rate <= 0 {
		return "Use correct grammar and spelling appropriate for this education level."
	}
	return fmt.Sprintf("Include approximately %d%% realistic student errors in grammar, spelling, or reasoning.", rate)
}

func focusInstruction(areas []string) string {
	cleaned := make([]string, 0, len(areas))
	for _, a := range areas {
		if trimmed := strings.TrimSpace(a); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return ""
	}
	return fmt.Sprintf("Pay special attention to the following aspects: %s.", strings.Join(cleaned, ", "))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
