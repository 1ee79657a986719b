// Package generator implements the document generation pipeline: the
// per-application state machine, LLM tailoring with missing-input
// detection, draft autosave and PDF rendering of finalized documents.
package generator

import (
	"errors"
	"fmt"

	"github.com/applypilot/applypilot/internal/models"
)

// Op names a state machine operation for conflict reporting.
type Op string

// Operations on a generation record.
const (
	OpGenerate     Op = "generate"
	OpSubmitInputs Op = "submit_inputs"
	OpSaveDraft    Op = "save_draft"
	OpFinalize     Op = "finalize"
	OpRender       Op = "render"
)

// Common errors
var (
	ErrStateConflict       = errors.New("operation not allowed in current state")
	ErrMissingPrecondition = errors.New("required data for this operation is absent")
)

// StateConflictError reports an operation attempted from a state that
// does not permit it. It unwraps to ErrStateConflict.
type StateConflictError struct {
	Op   Op
	From models.GenerationStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s while generation is %q", e.Op, e.From)
}

func (e *StateConflictError) Unwrap() error {
	return ErrStateConflict
}

// allowedFrom lists the states each operation may start from.
//
// Generate is permitted from every settled state: first generation,
// retry after error, regeneration over an existing draft or finalized
// document. Only an in-flight generation blocks it.
var allowedFrom = map[Op][]models.GenerationStatus{
	OpGenerate: {
		models.GenerationStatusNone,
		models.GenerationStatusPendingInput,
		models.GenerationStatusDraftReady,
		models.GenerationStatusFinalized,
		models.GenerationStatusError,
	},
	OpSubmitInputs: {models.GenerationStatusPendingInput},
	OpSaveDraft:    {models.GenerationStatusDraftReady},
	OpFinalize:     {models.GenerationStatusDraftReady},
	OpRender: {
		models.GenerationStatusDraftReady,
		models.GenerationStatusFinalized,
	},
}

// CheckTransition returns a *StateConflictError when op is not allowed
// from the given state.
func CheckTransition(op Op, from models.GenerationStatus) error {
	for _, s := range allowedFrom[op] {
		if s == from {
			return nil
		}
	}
	return &StateConflictError{Op: op, From: from}
}
