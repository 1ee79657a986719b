// Package ats implements the ATS compatibility scoring engine: strict
// validation of LLM output, asynchronous scan orchestration, and the
// polling contract for reading results.
package ats

import (
	"encoding/json"
	"fmt"

	"github.com/applypilot/applypilot/internal/models"
)

// Priority levels for missing keywords and skills.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// requiredFields are the top-level keys a scoring completion must carry.
// Validation is all-or-nothing over this set.
var requiredFields = []string{
	"atsScore",
	"matchedKeywords",
	"missingKeywords",
	"matchedSkills",
	"missingSkills",
	"formattingIssues",
	"recommendations",
}

// CanonicalResponse is the single internal shape of a validated scoring
// result. Both legacy output shapes are normalized into it; downstream
// code never branches on shape again.
type CanonicalResponse struct {
	ATSScore         float64                  `json:"atsScore"`
	ScoreBreakdown   *models.ScoreBreakdown   `json:"scoreBreakdown,omitempty"`
	MatchedKeywords  []string                 `json:"matchedKeywords"`
	MissingKeywords  []models.PrioritizedItem `json:"missingKeywords"`
	MatchedSkills    []string                 `json:"matchedSkills"`
	MissingSkills    []models.PrioritizedItem `json:"missingSkills"`
	FormattingIssues []string                 `json:"formattingIssues"`
	Recommendations  []string                 `json:"recommendations"`

	// optional fields: absent means "model did not report this",
	// which is distinct from zero
	SectionScores        map[string]float64  `json:"sectionScores,omitempty"`
	SkillMatchPercentage *float64            `json:"skillMatchPercentage,omitempty"`
	GapAnalysis          *models.GapAnalysis `json:"gapAnalysis,omitempty"`

	// Extra holds optional fields the schema does not model (industry
	// keywords, readability score, ...). They pass through untouched
	// and are persisted on the analysis record.
	Extra map[string]json.RawMessage `json:"-"`
}

// ValidationError describes why an LLM completion failed schema checks.
// Field is a dotted path into the payload.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid model output: " + e.Reason
	}
	return fmt.Sprintf("invalid model output at %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
