package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/applypilot/applypilot/internal/models"
)

// GenerationsRepository handles generation_records table operations.
// One record per application, keyed by job_application_id.
type GenerationsRepository struct {
	pool *pgxpool.Pool
}

// NewGenerationsRepository creates a new generations repository.
func NewGenerationsRepository(pool *pgxpool.Pool) *GenerationsRepository {
	return &GenerationsRepository{pool: pool}
}

// GetByJobID returns the generation record for an application, or nil
// when generation was never started.
func (r *GenerationsRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error) {
	var rec models.GenerationRecord
	err := r.pool.QueryRow(ctx, `
		SELECT job_application_id, status, draft_cv_json, draft_cover_letter,
		       required_inputs, cv_filename, cover_letter_filename,
		       error_message, language, theme, created_at, updated_at
		FROM generation_records
		WHERE job_application_id = $1
	`, jobID).Scan(
		&rec.JobApplicationID, &rec.Status, &rec.DraftCVJSON, &rec.DraftCoverLetter,
		&rec.RequiredInputs, &rec.CVFilename, &rec.CoverLetterFilename,
		&rec.ErrorMessage, &rec.Language, &rec.Theme, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get generation record: %w", err)
	}
	return &rec, nil
}

// Upsert writes the full record, creating it on first use.
func (r *GenerationsRepository) Upsert(ctx context.Context, rec *models.GenerationRecord) error {
	if rec.Language == "" {
		rec.Language = "en"
	}
	if rec.Theme == "" {
		rec.Theme = "modern"
	}
	requiredInputs := rec.RequiredInputs
	if requiredInputs == nil {
		requiredInputs = []models.RequiredInput{}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO generation_records (
			job_application_id, status, draft_cv_json, draft_cover_letter,
			required_inputs, cv_filename, cover_letter_filename,
			error_message, language, theme
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (job_application_id) DO UPDATE SET
			status = EXCLUDED.status,
			draft_cv_json = EXCLUDED.draft_cv_json,
			draft_cover_letter = EXCLUDED.draft_cover_letter,
			required_inputs = EXCLUDED.required_inputs,
			cv_filename = EXCLUDED.cv_filename,
			cover_letter_filename = EXCLUDED.cover_letter_filename,
			error_message = EXCLUDED.error_message,
			language = EXCLUDED.language,
			theme = EXCLUDED.theme,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`, rec.JobApplicationID, rec.Status, rec.DraftCVJSON, rec.DraftCoverLetter,
		requiredInputs, rec.CVFilename, rec.CoverLetterFilename,
		rec.ErrorMessage, rec.Language, rec.Theme,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert generation record: %w", err)
	}
	return nil
}
