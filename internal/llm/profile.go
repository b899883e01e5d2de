package llm

import "strings"

// EducationProfile tunes vocabulary and structure to a grade level.
type EducationProfile struct {
	Level              string
	Description        string
	Vocabulary         string
	Depth              string
	ParagraphStructure string
}

var (
	elementaryProfile = EducationProfile{
		Level:              "elementary",
		Description:        "elementary school",
		Vocabulary:         "basic",
		Depth:              "simple",
		ParagraphStructure: "short paragraphs with 2-3 simple sentences each",
	}
	middleProfile = EducationProfile{
		Level:              "middle",
		Description:        "middle school",
		Vocabulary:         "intermediate",
		Depth:              "developing",
		ParagraphStructure: "structured paragraphs with 3-5 sentences each",
	}
	highSchoolProfile = EducationProfile{
		Level:              "high",
		Description:        "high school",
		Vocabulary:         "advanced",
		Depth:              "moderate analytical",
		ParagraphStructure: "well-developed paragraphs with clear topic sentences",
	}
	collegeProfile = EducationProfile{
		Level:              "college",
		Description:        "college",
		Vocabulary:         "college-level",
		Depth:              "in-depth analytical",
		ParagraphStructure: "complex paragraphs with supporting evidence and analysis",
	}
)

// Matched in order; the first keyword found in the grade level wins.
var profileOrder = []EducationProfile{elementaryProfile, middleProfile, highSchoolProfile, collegeProfile}

// ResolveProfile maps a free-text grade level to a profile. Unknown levels
// resolve to high school.
func ResolveProfile(gradeLevel string) EducationProfile {
	normalized := strings.ToLower(gradeLevel)
	for _, p := range profileOrder {
		if strings.Contains(normalized, p.Level) {
			return p
		}
	}
	return highSchoolProfile
}

var gradeQualities = map[string]string{
	"A+": "exceptional, insightful, and original",
	"A":  "excellent and thorough",
	"B+": "very good with some depth",
	"B":  "good and competent",
	"C+": "satisfactory with basic understanding",
	"C":  "adequate but minimal",
}

const defaultGradeQuality = "good"

// GradeQuality returns the quality phrase for a target grade.
func GradeQuality(grade string) string {
	if q, ok := gradeQualities[strings.ToUpper(strings.TrimSpace(grade))]; ok {
		return q
	}
	return defaultGradeQuality
}

// ValidTargetGrade reports whether grade has a quality phrase.
func ValidTargetGrade(grade string) bool {
	_, ok := gradeQualities[strings.ToUpper(strings.TrimSpace(grade))]
	return ok
}
