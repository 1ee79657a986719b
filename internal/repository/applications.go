// Package repository implements Postgres persistence for job
// applications, generation records and ATS analyses.
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

const applicationColumns = `id, title, company, job_url, language, description, notes, status, created_at, updated_at`

// ApplicationsRepository handles job_applications table operations.
type ApplicationsRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationsRepository creates a new applications repository.
func NewApplicationsRepository(pool *pgxpool.Pool) *ApplicationsRepository {
	return &ApplicationsRepository{pool: pool}
}

// Create inserts a new job application.
func (r *ApplicationsRepository) Create(ctx context.Context, app *models.JobApplication) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if app.Status == "" {
		app.Status = models.ApplicationStatusSaved
	}
	if app.Language == "" {
		app.Language = "en"
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO job_applications (id, title, company, job_url, language, description, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, app.ID, app.Title, app.Company, app.JobURL, app.Language, app.Description, app.Notes, app.Status,
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID returns an application by id, or nil when it does not exist.
func (r *ApplicationsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	var app models.JobApplication
	err := r.pool.QueryRow(ctx, `
		SELECT `+applicationColumns+`
		FROM job_applications
		WHERE id = $1
	`, id).Scan(
		&app.ID, &app.Title, &app.Company, &app.JobURL, &app.Language,
		&app.Description, &app.Notes, &app.Status, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get application by id: %w", err)
	}
	return &app, nil
}

// List returns applications newest first, optionally filtered by status.
func (r *ApplicationsRepository) List(ctx context.Context, status models.ApplicationStatus) ([]models.JobApplication, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM job_applications
		ORDER BY created_at DESC`
	args := []any{}
	if status != "" {
		query = `
		SELECT ` + applicationColumns + `
		FROM job_applications
		WHERE status = $1
		ORDER BY created_at DESC`
		args = append(args, status)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []models.JobApplication
	for rows.Next() {
		var app models.JobApplication
		if err := rows.Scan(
			&app.ID, &app.Title, &app.Company, &app.JobURL, &app.Language,
			&app.Description, &app.Notes, &app.Status, &app.CreatedAt, &app.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// Update rewrites the mutable fields of an application.
func (r *ApplicationsRepository) Update(ctx context.Context, app *models.JobApplication) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE job_applications
		SET title = $2, company = $3, job_url = $4, language = $5,
		    description = $6, notes = $7, status = $8, updated_at = NOW()
		WHERE id = $1
	`, app.ID, app.Title, app.Company, app.JobURL, app.Language, app.Description, app.Notes, app.Status)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update application: no row for id %s", app.ID)
	}
	return nil
}

// UpdateStatus moves an application along the pipeline.
func (r *ApplicationsRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE job_applications SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}

// Delete removes an application; generation records, analyses and chat
// history go with it through cascading deletes.
func (r *ApplicationsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM job_applications WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}
