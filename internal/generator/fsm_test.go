package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/internal/models"
)

func TestCheckTransition(t *testing.T) {
	cases := []struct {
		op      Op
		from    models.GenerationStatus
		allowed bool
	}{
		{OpGenerate, models.GenerationStatusNone, true},
		{OpGenerate, models.GenerationStatusError, true},
		{OpGenerate, models.GenerationStatusDraftReady, true},
		{OpGenerate, models.GenerationStatusFinalized, true},
		{OpGenerate, models.GenerationStatusPendingInput, true},
		{OpGenerate, models.GenerationStatusPendingGeneration, false},

		{OpSubmitInputs, models.GenerationStatusPendingInput, true},
		{OpSubmitInputs, models.GenerationStatusNone, false},
		{OpSubmitInputs, models.GenerationStatusDraftReady, false},

		{OpSaveDraft, models.GenerationStatusDraftReady, true},
		{OpSaveDraft, models.GenerationStatusFinalized, false},
		{OpSaveDraft, models.GenerationStatusPendingGeneration, false},

		{OpFinalize, models.GenerationStatusDraftReady, true},
		{OpFinalize, models.GenerationStatusFinalized, false},
		{OpFinalize, models.GenerationStatusNone, false},

		{OpRender, models.GenerationStatusDraftReady, true},
		{OpRender, models.GenerationStatusFinalized, true},
		{OpRender, models.GenerationStatusNone, false},
	}

	for _, tc := range cases {
		err := CheckTransition(tc.op, tc.from)
		if tc.allowed {
			assert.NoError(t, err, "%s from %s should be allowed", tc.op, tc.from)
		} else {
			assert.ErrorIs(t, err, ErrStateConflict, "%s from %s should conflict", tc.op, tc.from)
		}
	}
}

func TestStateConflictErrorReportsOpAndState(t *testing.T) {
	err := CheckTransition(OpFinalize, models.GenerationStatusPendingGeneration)
	require.Error(t, err)

	var conflict *StateConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, OpFinalize, conflict.Op)
	assert.Equal(t, models.GenerationStatusPendingGeneration, conflict.From)
	assert.Contains(t, err.Error(), "finalize")
	assert.Contains(t, err.Error(), "pending_generation")
}
