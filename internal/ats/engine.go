package ats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/internal/models"
)

// Common errors
var (
	ErrApplicationNotFound = errors.New("job application not found")
	ErrAnalysisNotFound    = errors.New("analysis not found")
	ErrNoDescription       = errors.New("job application has no description text")
)

// AnalysesRepository defines the data layer for analysis records.
type AnalysesRepository interface {
	Create(ctx context.Context, rec *models.AtsAnalysisRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AtsAnalysisRecord, error)
	ListByJobID(ctx context.Context, jobID uuid.UUID) ([]models.AtsAnalysisRecord, error)

	// ResetPending clears score/error back to pending and bumps the
	// record's generation, returning the new generation.
	ResetPending(ctx context.Context, id uuid.UUID) (int, error)

	// Complete and Fail stamp a terminal result. Both are no-ops when
	// the stored generation no longer matches (a rescan reset the
	// record while this round was in flight).
	Complete(ctx context.Context, id uuid.UUID, generation int, result *ScanResult) error
	Fail(ctx context.Context, id uuid.UUID, generation int, message string) error
}

// ApplicationsReader provides job application lookups.
type ApplicationsReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
}

// CVSource loads the CV to score. The tailored draft is preferred by
// the caller when one exists; the engine itself only needs bytes.
type CVSource interface {
	LoadBaseCV() (string, error)
}

// LLMClient abstracts the LLM provider.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// EventPublisher publishes scan lifecycle events. May be nil.
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, analysisID, jobID uuid.UUID, failed bool)
}

// ScanResult is the derived outcome persisted on a successful scan.
type ScanResult struct {
	Score      float64
	Breakdown  *models.ScoreBreakdown
	SkillMatch *models.SkillMatchDetails
	Compliance *models.ComplianceDetails
	Extra      map[string]json.RawMessage
	CachedAt   time.Time
}

// Engine orchestrates ATS scans. StartScan returns immediately with an
// analysis id; the scan itself runs in a background goroutine and its
// outcome is read back via GetScore (polling, see Poller).
type Engine struct {
	analyses AnalysesRepository
	apps     ApplicationsReader
	cvs      CVSource
	llm      LLMClient
	events   EventPublisher
}

// NewEngine creates a scoring engine. events may be nil.
func NewEngine(analyses AnalysesRepository, apps ApplicationsReader, cvs CVSource, llmClient LLMClient, events EventPublisher) *Engine {
	return &Engine{
		analyses: analyses,
		apps:     apps,
		cvs:      cvs,
		llm:      llmClient,
		events:   events,
	}
}

// StartScan begins a scan for a job application and returns the
// analysis id to poll. With existing == uuid.Nil a fresh record is
// allocated; otherwise the named record is reset back to pending and
// its id reused (a rescan). Two calls without an existing id always
// produce two independent records.
func (e *Engine) StartScan(ctx context.Context, jobApplicationID, existing uuid.UUID) (uuid.UUID, error) {
	app, err := e.apps.GetByID(ctx, jobApplicationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("fetch application: %w", err)
	}
	if app == nil {
		return uuid.Nil, ErrApplicationNotFound
	}
	if app.Description == "" {
		// fail fast, no LLM spend on an unscoreable application
		return uuid.Nil, ErrNoDescription
	}

	cv, err := e.cvs.LoadBaseCV()
	if err != nil {
		return uuid.Nil, fmt.Errorf("load cv: %w", err)
	}

	var analysisID uuid.UUID
	var generation int

	if existing == uuid.Nil {
		rec := &models.AtsAnalysisRecord{
			ID:               uuid.New(),
			JobApplicationID: jobApplicationID,
			Generation:       1,
		}
		if err := e.analyses.Create(ctx, rec); err != nil {
			return uuid.Nil, fmt.Errorf("create analysis: %w", err)
		}
		analysisID = rec.ID
		generation = rec.Generation
	} else {
		gen, err := e.analyses.ResetPending(ctx, existing)
		if err != nil {
			return uuid.Nil, fmt.Errorf("reset analysis: %w", err)
		}
		analysisID = existing
		generation = gen
	}

	go e.runScan(analysisID, jobApplicationID, generation, cv, app.Description)

	return analysisID, nil
}

// GetScore is a pure read: it never blocks and never triggers
// computation. Repeated reads of a terminal record return identical
// payloads.
func (e *Engine) GetScore(ctx context.Context, analysisID uuid.UUID) (*models.AtsAnalysisRecord, error) {
	rec, err := e.analyses.GetByID(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("fetch analysis: %w", err)
	}
	if rec == nil {
		return nil, ErrAnalysisNotFound
	}
	return rec, nil
}

// ListScans returns every analysis recorded for an application, newest
// first, pending rounds included.
func (e *Engine) ListScans(ctx context.Context, jobApplicationID uuid.UUID) ([]models.AtsAnalysisRecord, error) {
	app, err := e.apps.GetByID(ctx, jobApplicationID)
	if err != nil {
		return nil, fmt.Errorf("fetch application: %w", err)
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}

	records, err := e.analyses.ListByJobID(ctx, jobApplicationID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return records, nil
}

// runScan executes one scoring round. It is detached from the request
// context: the caller already got its analysis id and discovers the
// outcome by polling.
func (e *Engine) runScan(analysisID, jobID uuid.UUID, generation int, cv, jobText string) {
	log := logger.Get()
	ctx := context.Background()

	log.Info().Str("analysis_id", analysisID.String()).Msg("starting ats scan")

	raw, err := e.llm.Complete(ctx, llm.ScoringSystemPrompt, llm.BuildScoringPrompt(cv, jobText))
	if err != nil {
		// transport failures stay descriptive so the UI can tell
		// quota/timeout from generic errors
		e.fail(ctx, analysisID, jobID, generation, "llm unavailable: "+err.Error())
		return
	}

	canonical, err := Validate(raw)
	if err != nil {
		e.fail(ctx, analysisID, jobID, generation, err.Error())
		return
	}

	result := deriveResult(canonical)
	if err := e.analyses.Complete(ctx, analysisID, generation, result); err != nil {
		log.Error().Err(err).Str("analysis_id", analysisID.String()).Msg("failed to persist scan result")
		return
	}

	if e.events != nil {
		e.events.PublishScanCompleted(ctx, analysisID, jobID, false)
	}
	log.Info().Str("analysis_id", analysisID.String()).Float64("score", result.Score).Msg("ats scan complete")
}

func (e *Engine) fail(ctx context.Context, analysisID, jobID uuid.UUID, generation int, message string) {
	log := logger.Get()
	log.Error().Str("analysis_id", analysisID.String()).Str("reason", message).Msg("ats scan failed")

	if err := e.analyses.Fail(ctx, analysisID, generation, message); err != nil {
		log.Error().Err(err).Str("analysis_id", analysisID.String()).Msg("failed to persist scan error")
		return
	}
	if e.events != nil {
		e.events.PublishScanCompleted(ctx, analysisID, jobID, true)
	}
}

// deriveResult maps the canonical validated response onto the persisted
// record shape. The overall score is the model's atsScore;
// skillMatchPercentage stays an independent metric and is never
// recombined from the breakdown.
func deriveResult(c *CanonicalResponse) *ScanResult {
	return &ScanResult{
		Score:     c.ATSScore,
		Breakdown: c.ScoreBreakdown,
		SkillMatch: &models.SkillMatchDetails{
			MatchedSkills:        c.MatchedSkills,
			MissingSkills:        c.MissingSkills,
			SkillMatchPercentage: c.SkillMatchPercentage,
			Recommendations:      c.Recommendations,
			GapAnalysis:          gapOrEmpty(c.GapAnalysis),
		},
		Compliance: &models.ComplianceDetails{
			MatchedKeywords:  c.MatchedKeywords,
			MissingKeywords:  c.MissingKeywords,
			FormattingIssues: c.FormattingIssues,
			SectionScores:    c.SectionScores,
			Suggestions:      c.Recommendations,
		},
		Extra:    c.Extra,
		CachedAt: time.Now().UTC(),
	}
}

func gapOrEmpty(gap *models.GapAnalysis) models.GapAnalysis {
	if gap == nil {
		return models.GapAnalysis{}
	}
	return *gap
}
