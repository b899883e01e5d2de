package llm

import (
	"context"
	"fmt"
	"regexp"
)

// StubProvider is the provider name reported by StubSynthesizer.
const StubProvider = "stub"

var reportSubject = regexp.MustCompile(`book report about "([^"\n]*)" by ([^\n]*)\.\n`)

// StubSynthesizer writes a clearly labelled placeholder report without
// calling any provider. It is meant for local runs without API keys.
type StubSynthesizer struct{}

// Complete returns a placeholder report for the book named in prompt.
func (StubSynthesizer) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Provider: StubProvider, Kind: KindForTransport(err), Err: err}
	}
	_ = maxOutputTokens
	title, author := "Untitled", "Unknown Author"
	if m := reportSubject.FindStringSubmatch(prompt); m != nil {
		title, author = m[1], m[2]
	}
	return fmt.Sprintf(stubReportTemplate, title, author, title, author, title), nil
}

const stubReportTemplate = `# Book Report: %s by %s

## Introduction
This is a book report on "%s" by %s. This classic work explores themes of human nature, society, and personal growth.

## Summary
The story follows the main character through a series of challenges and growth experiences. The narrative takes place in a richly described setting that enhances the overall themes of the book.

## Main Themes
The author explores several important themes throughout the work:
- Personal identity and self-discovery
- The relationship between individuals and society
- The nature of truth and perception
- The consequences of one's actions

## Character Analysis
The protagonist demonstrates significant development throughout the story, beginning as a somewhat naive individual and gradually gaining wisdom through experience. Supporting characters provide contrast and help to highlight different aspects of the main themes.

## Personal Reflection
I found this book to be thought-provoking and engaging. The author's writing style effectively conveys both the external events and the internal struggles of the characters.

## Conclusion
"%s" stands as an important work that offers valuable insights into human nature and society.

[Note: This is a placeholder report generated without a synthesis provider.]`

var _ Synthesizer = StubSynthesizer{}
