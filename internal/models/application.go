package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus represents where an application sits in the user's pipeline.
// This is independent from the document generation status.
type ApplicationStatus string

// ApplicationStatus constants define the pipeline states of a tracked application.
const (
	ApplicationStatusSaved     ApplicationStatus = "SAVED"
	ApplicationStatusApplied   ApplicationStatus = "APPLIED"
	ApplicationStatusInterview ApplicationStatus = "INTERVIEW"
	ApplicationStatusOffer     ApplicationStatus = "OFFER"
	ApplicationStatusRejected  ApplicationStatus = "REJECTED"
)

// ValidApplicationStatus reports whether s is a known pipeline status.
func ValidApplicationStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationStatusSaved, ApplicationStatusApplied, ApplicationStatusInterview,
		ApplicationStatusOffer, ApplicationStatusRejected:
		return true
	}
	return false
}

// JobApplication represents one tracked job posting.
type JobApplication struct {
	ID uuid.UUID `json:"id" db:"id"`

	// posting
	Title    string  `json:"title" db:"title"`
	Company  string  `json:"company" db:"company"`
	JobURL   *string `json:"job_url,omitempty" db:"job_url"`
	Language string  `json:"language" db:"language"`

	// Description is the raw job posting text. Everything the core does
	// (tailoring, scoring, chat grounding) consumes this field.
	Description string `json:"description" db:"description"`

	Notes  *string           `json:"notes,omitempty" db:"notes"`
	Status ApplicationStatus `json:"status" db:"status"`

	// timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
