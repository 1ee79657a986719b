package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/ats"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/migrator"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/migrations"
)

func setupIntegrationDB(t *testing.T) *database.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping integration test; set INTEGRATION_TEST=1 to run")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to db: %v", err)
	}
	t.Cleanup(db.Close)

	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if err := m.Up(ctx, dbURL); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createTestApplication(t *testing.T, db *database.DB) *models.JobApplication {
	t.Helper()
	repo := NewApplicationsRepository(db.Pool)
	app := &models.JobApplication{
		Title:       "Go Developer",
		Company:     "Acme",
		Description: "We need a Go developer.",
	}
	if err := repo.Create(context.Background(), app); err != nil {
		t.Fatalf("failed to create application: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Delete(context.Background(), app.ID)
	})
	return app
}

func TestApplicationsRepository_CRUD(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()
	repo := NewApplicationsRepository(db.Pool)

	app := createTestApplication(t, db)

	fetched, err := repo.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Go Developer" {
		t.Fatalf("unexpected application: %+v", fetched)
	}
	if fetched.Status != models.ApplicationStatusSaved {
		t.Errorf("status = %s, want SAVED", fetched.Status)
	}

	fetched.Notes = strPtr("applied via referral")
	fetched.Status = models.ApplicationStatusApplied
	if err := repo.Update(ctx, fetched); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	again, err := repo.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if again.Status != models.ApplicationStatusApplied || again.Notes == nil {
		t.Fatalf("update did not stick: %+v", again)
	}

	missing, err := repo.GetByID(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("unknown id should give nil, nil; got %v, %v", missing, err)
	}
}

func TestGenerationsRepository_Upsert(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()
	repo := NewGenerationsRepository(db.Pool)

	app := createTestApplication(t, db)

	rec, err := repo.GetByJobID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByJobID failed: %v", err)
	}
	if rec != nil {
		t.Fatal("expected no record before first upsert")
	}

	draft := `{"name": "Jane"}`
	rec = &models.GenerationRecord{
		JobApplicationID: app.ID,
		Status:           models.GenerationStatusDraftReady,
		DraftCVJSON:      &draft,
		RequiredInputs:   []models.RequiredInput{{Name: "Salary Expectation", Type: models.InputTypeNumber}},
	}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	fetched, err := repo.GetByJobID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByJobID failed: %v", err)
	}
	if fetched.Status != models.GenerationStatusDraftReady || !fetched.HasDraft() {
		t.Fatalf("unexpected record: %+v", fetched)
	}
	if len(fetched.RequiredInputs) != 1 || fetched.RequiredInputs[0].Type != models.InputTypeNumber {
		t.Fatalf("required inputs did not round-trip: %+v", fetched.RequiredInputs)
	}

	fetched.Status = models.GenerationStatusFinalized
	fetched.CVFilename = strPtr("cv_test.pdf")
	if err := repo.Upsert(ctx, fetched); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	final, _ := repo.GetByJobID(ctx, app.ID)
	if final.Status != models.GenerationStatusFinalized || final.CVFilename == nil {
		t.Fatalf("upsert did not update: %+v", final)
	}
}

func TestAnalysesRepository_GenerationFence(t *testing.T) {
	db := setupIntegrationDB(t)
	ctx := context.Background()
	repo := NewAnalysesRepository(db.Pool)

	app := createTestApplication(t, db)

	rec := &models.AtsAnalysisRecord{JobApplicationID: app.ID}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.Generation != 1 {
		t.Fatalf("generation = %d, want 1", rec.Generation)
	}

	result := &ats.ScanResult{
		Score:     72,
		Breakdown: &models.ScoreBreakdown{TechnicalSkills: 80, ExperienceRelevance: 70, AdditionalSkills: 60, Formatting: 90},
		Extra:     map[string]json.RawMessage{"readabilityScore": json.RawMessage("88")},
	}
	if err := repo.Complete(ctx, rec.ID, 1, result); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	fetched, err := repo.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Score == nil || *fetched.Score != 72 || fetched.ScoreBreakdown == nil {
		t.Fatalf("result did not land: %+v", fetched)
	}
	if string(fetched.Extra["readabilityScore"]) != "88" {
		t.Fatalf("extra fields did not round-trip: %+v", fetched.Extra)
	}

	gen, err := repo.ResetPending(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ResetPending failed: %v", err)
	}
	if gen != 2 {
		t.Fatalf("generation = %d, want 2", gen)
	}

	pending, _ := repo.GetByID(ctx, rec.ID)
	if pending.Terminal() {
		t.Fatalf("record should be pending after reset: %+v", pending)
	}

	// stale write from the old round must not land
	if err := repo.Complete(ctx, rec.ID, 1, result); err != nil {
		t.Fatalf("stale Complete errored: %v", err)
	}
	still, _ := repo.GetByID(ctx, rec.ID)
	if still.Terminal() {
		t.Fatal("stale generation write landed")
	}

	if err := repo.Fail(ctx, rec.ID, 2, "llm unavailable: timeout"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	failed, _ := repo.GetByID(ctx, rec.ID)
	if failed.ErrorMessage == nil {
		t.Fatal("error message missing after Fail")
	}
}

func strPtr(s string) *string { return &s }
