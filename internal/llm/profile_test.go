package llm

import "testing"

func TestResolveProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level string
		want  string
	}{
		{name: "elementary", level: "Elementary School", want: "elementary school"},
		{name: "middle", level: "middle-school", want: "middle school"},
		{name: "high school", level: "High-School", want: "high school"},
		{name: "college", level: "COLLEGE", want: "college"},
		{name: "unknown falls back", level: "graduate", want: "high school"},
		{name: "empty falls back", level: "", want: "high school"},
		{name: "first keyword wins", level: "middle to high", want: "middle school"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveProfile(tt.level).Description; got != tt.want {
				t.Fatalf("ResolveProfile(%q).Description = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestResolveProfileCollegeFields(t *testing.T) {
	p := ResolveProfile("college")
	if p.Vocabulary != "college-level" || p.Depth != "in-depth analytical" {
		t.Fatalf("unexpected college profile: %+v", p)
	}
	if p.ParagraphStructure != "complex paragraphs with supporting evidence and analysis" {
		t.Fatalf("unexpected paragraph structure: %q", p.ParagraphStructure)
	}
}

func TestGradeQuality(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"A+": "exceptional, insightful, and original",
		"A":  "excellent and thorough",
		"B+": "very good with some depth",
		"B":  "good and competent",
		"C+": "satisfactory with basic understanding",
		"C":  "adequate but minimal",
		"b+": "very good with some depth",
		"D":  "good",
		"":   "good",
	}
	for grade, want := range tests {
		if got := GradeQuality(grade); got != want {
			t.Fatalf("GradeQuality(%q) = %q, want %q", grade, got, want)
		}
	}
}
