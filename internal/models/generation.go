package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationStatus represents the document generation lifecycle state.
type GenerationStatus string

// GenerationStatus constants define the states of the generation state machine.
const (
	GenerationStatusNone              GenerationStatus = "none"
	GenerationStatusPendingGeneration GenerationStatus = "pending_generation"
	GenerationStatusPendingInput      GenerationStatus = "pending_input"
	GenerationStatusDraftReady        GenerationStatus = "draft_ready"
	GenerationStatusFinalized         GenerationStatus = "finalized"
	GenerationStatusError             GenerationStatus = "error"
)

// InputType classifies a required user input so the UI can render the
// right control for it.
type InputType string

// InputType constants define the supported required-input field types.
const (
	InputTypeText     InputType = "text"
	InputTypeNumber   InputType = "number"
	InputTypeDate     InputType = "date"
	InputTypeTextarea InputType = "textarea"
)

// RequiredInput describes one data field the tailoring step needs but
// could not find in the base CV. Name is an opaque label, never a key
// with assumed JSON safety.
type RequiredInput struct {
	Name string    `json:"name"`
	Type InputType `json:"type"`
}

// GenerationRecord holds the document generation state for one application.
//
// Invariants:
//   - DraftCVJSON is set iff status is pending_input, draft_ready or finalized
//   - RequiredInputs is non-empty iff status is pending_input
//   - filenames are set only while status is finalized; the two are
//     independently nullable (a partial render finalizes one document)
type GenerationRecord struct {
	JobApplicationID uuid.UUID        `json:"job_application_id" db:"job_application_id"`
	Status           GenerationStatus `json:"status" db:"status"`

	// working documents
	DraftCVJSON      *string `json:"draft_cv_json,omitempty" db:"draft_cv_json"`
	DraftCoverLetter *string `json:"draft_cover_letter,omitempty" db:"draft_cover_letter"`

	RequiredInputs []RequiredInput `json:"required_inputs,omitempty" db:"required_inputs"`

	// rendered outputs
	CVFilename          *string `json:"cv_filename,omitempty" db:"cv_filename"`
	CoverLetterFilename *string `json:"cover_letter_filename,omitempty" db:"cover_letter_filename"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	Language string `json:"language" db:"language"`
	Theme    string `json:"theme" db:"theme"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasDraft reports whether a tailored draft CV is present.
func (g *GenerationRecord) HasDraft() bool {
	return g.DraftCVJSON != nil && *g.DraftCVJSON != ""
}
