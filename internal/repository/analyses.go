package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/applypilot/applypilot/internal/ats"
	"github.com/applypilot/applypilot/internal/models"
)

// AnalysesRepository handles ats_analyses table operations.
//
// Terminal writes are fenced by the generation column: an UPDATE only
// lands when the caller still holds the generation the round started
// with, so a result from before a rescan can never overwrite the
// rescan's record.
type AnalysesRepository struct {
	pool *pgxpool.Pool
}

// NewAnalysesRepository creates a new analyses repository.
func NewAnalysesRepository(pool *pgxpool.Pool) *AnalysesRepository {
	return &AnalysesRepository{pool: pool}
}

// Create inserts a fresh pending analysis.
func (r *AnalysesRepository) Create(ctx context.Context, rec *models.AtsAnalysisRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Generation == 0 {
		rec.Generation = 1
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO ats_analyses (id, job_application_id, generation)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, rec.ID, rec.JobApplicationID, rec.Generation).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}
	return nil
}

// GetByID returns an analysis by id, or nil when it does not exist.
func (r *AnalysesRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AtsAnalysisRecord, error) {
	var rec models.AtsAnalysisRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, job_application_id, generation, score, score_breakdown,
		       skill_match, compliance, extra, error_message, cached_at, created_at
		FROM ats_analyses
		WHERE id = $1
	`, id).Scan(
		&rec.ID, &rec.JobApplicationID, &rec.Generation, &rec.Score, &rec.ScoreBreakdown,
		&rec.SkillMatch, &rec.Compliance, &rec.Extra, &rec.ErrorMessage, &rec.CachedAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get analysis by id: %w", err)
	}
	return &rec, nil
}

// ListByJobID returns all analyses for an application, newest first.
func (r *AnalysesRepository) ListByJobID(ctx context.Context, jobID uuid.UUID) ([]models.AtsAnalysisRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_application_id, generation, score, score_breakdown,
		       skill_match, compliance, extra, error_message, cached_at, created_at
		FROM ats_analyses
		WHERE job_application_id = $1
		ORDER BY created_at DESC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []models.AtsAnalysisRecord
	for rows.Next() {
		var rec models.AtsAnalysisRecord
		if err := rows.Scan(
			&rec.ID, &rec.JobApplicationID, &rec.Generation, &rec.Score, &rec.ScoreBreakdown,
			&rec.SkillMatch, &rec.Compliance, &rec.Extra, &rec.ErrorMessage, &rec.CachedAt, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ResetPending clears a record back to pending for a rescan and bumps
// its generation, returning the new generation.
func (r *AnalysesRepository) ResetPending(ctx context.Context, id uuid.UUID) (int, error) {
	var generation int
	err := r.pool.QueryRow(ctx, `
		UPDATE ats_analyses
		SET generation = generation + 1,
		    score = NULL, score_breakdown = NULL, skill_match = NULL,
		    compliance = NULL, extra = NULL, error_message = NULL, cached_at = NULL
		WHERE id = $1
		RETURNING generation
	`, id).Scan(&generation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ats.ErrAnalysisNotFound
		}
		return 0, fmt.Errorf("reset analysis: %w", err)
	}
	return generation, nil
}

// Complete stamps a successful result. Writes carrying a stale
// generation are dropped silently.
func (r *AnalysesRepository) Complete(ctx context.Context, id uuid.UUID, generation int, result *ats.ScanResult) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ats_analyses
		SET score = $3, score_breakdown = $4, skill_match = $5,
		    compliance = $6, extra = $7, error_message = NULL, cached_at = $8
		WHERE id = $1 AND generation = $2
	`, id, generation, result.Score, result.Breakdown, result.SkillMatch, result.Compliance, result.Extra, result.CachedAt)
	if err != nil {
		return fmt.Errorf("complete analysis: %w", err)
	}
	return nil
}

// Fail stamps a failed result under the same generation fence.
func (r *AnalysesRepository) Fail(ctx context.Context, id uuid.UUID, generation int, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ats_analyses
		SET error_message = $3, score = NULL, cached_at = NULL
		WHERE id = $1 AND generation = $2
	`, id, generation, message)
	if err != nil {
		return fmt.Errorf("fail analysis: %w", err)
	}
	return nil
}
