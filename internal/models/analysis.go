package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScoreBreakdown holds the weighted ATS sub-scores. Weights are fixed
// policy: technical skills 40%, experience relevance 30%, additional
// skills 20%, formatting 10%.
type ScoreBreakdown struct {
	TechnicalSkills     float64 `json:"technicalSkills"`
	ExperienceRelevance float64 `json:"experienceRelevance"`
	AdditionalSkills    float64 `json:"additionalSkills"`
	Formatting          float64 `json:"formatting"`
}

// PrioritizedItem is a missing keyword or skill with its priority and a
// free-text justification from the model.
type PrioritizedItem struct {
	Value    string `json:"value"`
	Priority string `json:"priority"`
	Context  string `json:"context"`
}

// GapAnalysis summarizes strong alignments and key gaps between the CV
// and the job description.
type GapAnalysis struct {
	StrongAlignments []string `json:"strongAlignments"`
	KeyGaps          []string `json:"keyGaps"`
}

// SkillMatchDetails carries skills-level findings. SkillMatchPercentage
// is computed by the model from skills overlap only; it is deliberately
// independent from the overall score and the two may disagree.
type SkillMatchDetails struct {
	MatchedSkills        []string          `json:"matchedSkills"`
	MissingSkills        []PrioritizedItem `json:"missingSkills"`
	SkillMatchPercentage *float64          `json:"skillMatchPercentage,omitempty"`
	Recommendations      []string          `json:"recommendations"`
	GapAnalysis          GapAnalysis       `json:"gapAnalysis"`
}

// ComplianceDetails carries keyword and formatting level findings.
type ComplianceDetails struct {
	MatchedKeywords  []string           `json:"matchedKeywords"`
	MissingKeywords  []PrioritizedItem  `json:"missingKeywords"`
	FormattingIssues []string           `json:"formattingIssues"`
	SectionScores    map[string]float64 `json:"sectionScores,omitempty"`
	Suggestions      []string           `json:"suggestions"`
}

// AtsAnalysisRecord is one scoring run, identified by an opaque analysis id.
//
// Invariant: at any read exactly one of these holds:
//   - Score != nil, ErrorMessage == nil (scored)
//   - Score == nil, ErrorMessage != nil (failed)
//   - both nil (still pending)
type AtsAnalysisRecord struct {
	ID               uuid.UUID `json:"analysis_id" db:"id"`
	JobApplicationID uuid.UUID `json:"job_application_id" db:"job_application_id"`

	// Generation is bumped every time the record is (re)set to pending.
	// Async workers carry the generation they started with; a completion
	// for a stale generation is dropped.
	Generation int `json:"-" db:"generation"`

	Score          *float64           `json:"score" db:"score"`
	ScoreBreakdown *ScoreBreakdown    `json:"score_breakdown,omitempty" db:"score_breakdown"`
	SkillMatch     *SkillMatchDetails `json:"skill_match_details,omitempty" db:"skill_match"`
	Compliance     *ComplianceDetails `json:"compliance_details,omitempty" db:"compliance"`

	// Extra carries optional model output the schema does not model
	// (industry keywords, readability score, ...), passed through the
	// validator untouched.
	Extra map[string]json.RawMessage `json:"extra,omitempty" db:"extra"`

	ErrorMessage *string `json:"error,omitempty" db:"error_message"`

	CachedAt  *time.Time `json:"cached_at,omitempty" db:"cached_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Terminal reports whether the analysis reached a final state.
func (a *AtsAnalysisRecord) Terminal() bool {
	return a.Score != nil || a.ErrorMessage != nil
}
