package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/internal/models"
)

// Common errors
var (
	ErrApplicationNotFound = errors.New("job application not found")
	ErrNoDescription       = errors.New("job application has no description text")
)

// GenerationsRepository is the data layer for generation records.
type GenerationsRepository interface {
	// GetByJobID returns nil when no record exists yet.
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error)
	Upsert(ctx context.Context, rec *models.GenerationRecord) error
}

// ApplicationsReader provides job application lookups.
type ApplicationsReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
}

// Storage is the file store for the base CV and rendered outputs.
type Storage interface {
	LoadBaseCV() (string, error)
	WriteOutput(filename string, data []byte) error
}

// LLMClient abstracts the LLM provider.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Broadcaster pushes generation lifecycle events to connected clients.
type Broadcaster interface {
	Broadcast(event interface{})
}

// Service orchestrates document generation for job applications. All
// operations on one application are serialized through a per-job lock;
// operations on different applications run independently.
type Service struct {
	generations GenerationsRepository
	apps        ApplicationsReader
	storage     Storage
	llm         LLMClient
	pdf         Renderer

	broadcaster Broadcaster // optional

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates a generation service.
func NewService(generations GenerationsRepository, apps ApplicationsReader, storage Storage, llmClient LLMClient, pdf Renderer) *Service {
	return &Service{
		generations: generations,
		apps:        apps,
		storage:     storage,
		llm:         llmClient,
		pdf:         pdf,
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetBroadcaster sets the WebSocket event broadcaster.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *Service) lockJob(jobID uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[jobID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[jobID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the generation record for an application, or a fresh
// "none" record when generation was never started.
func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error) {
	rec, err := s.generations.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch generation record: %w", err)
	}
	if rec == nil {
		rec = &models.GenerationRecord{
			JobApplicationID: jobID,
			Status:           models.GenerationStatusNone,
		}
	}
	return rec, nil
}

// Generate starts (or restarts) document generation. The record moves
// to pending_generation immediately and the LLM round runs in the
// background; an existing draft stays readable until the new result
// replaces it.
func (s *Service) Generate(ctx context.Context, jobID uuid.UUID, language, theme string) (*models.GenerationRecord, error) {
	unlock := s.lockJob(jobID)
	defer unlock()

	app, err := s.apps.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch application: %w", err)
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if app.Description == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrecondition, ErrNoDescription)
	}

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(OpGenerate, rec.Status); err != nil {
		return nil, err
	}

	baseCV, err := s.storage.LoadBaseCV()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrecondition, err)
	}

	prev := *rec
	rec.Status = models.GenerationStatusPendingGeneration
	rec.ErrorMessage = nil
	if language != "" {
		rec.Language = language
	}
	if rec.Language == "" {
		rec.Language = app.Language
	}
	if theme != "" {
		rec.Theme = theme
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := s.generations.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist generation record: %w", err)
	}

	s.emit("generation.started", jobID, nil)
	go s.runGeneration(jobID, &prev, baseCV, app.Description, rec.Language, "")

	return rec, nil
}

// SubmitInputs supplies values for the fields the model reported
// missing and restarts generation with them. Only valid while the
// record is pending_input; the submitted values must answer every
// required input.
func (s *Service) SubmitInputs(ctx context.Context, jobID uuid.UUID, values map[string]string) (*models.GenerationRecord, error) {
	unlock := s.lockJob(jobID)
	defer unlock()

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(OpSubmitInputs, rec.Status); err != nil {
		return nil, err
	}

	if missing := MissingInputNames(rec.RequiredInputs, values); len(missing) > 0 {
		return nil, fmt.Errorf("%w: no value for %s", ErrMissingPrecondition, strings.Join(missing, ", "))
	}

	app, err := s.apps.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch application: %w", err)
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}

	baseCV, err := s.storage.LoadBaseCV()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrecondition, err)
	}

	userInputs := FormatUserInputs(rec.RequiredInputs, values)

	prev := *rec
	rec.Status = models.GenerationStatusPendingGeneration
	rec.ErrorMessage = nil
	rec.UpdatedAt = time.Now().UTC()

	if err := s.generations.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist generation record: %w", err)
	}

	s.emit("generation.started", jobID, nil)
	go s.runGeneration(jobID, &prev, baseCV, app.Description, rec.Language, userInputs)

	return rec, nil
}

// SaveDraft persists edited draft content. nil leaves a field unchanged.
func (s *Service) SaveDraft(ctx context.Context, jobID uuid.UUID, cvJSON, coverLetter *string) (*models.GenerationRecord, error) {
	unlock := s.lockJob(jobID)
	defer unlock()

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(OpSaveDraft, rec.Status); err != nil {
		return nil, err
	}

	if cvJSON != nil {
		if !json.Valid([]byte(*cvJSON)) {
			return nil, fmt.Errorf("%w: draft cv is not valid JSON", ErrMissingPrecondition)
		}
		rec.DraftCVJSON = cvJSON
	}
	if coverLetter != nil {
		rec.DraftCoverLetter = coverLetter
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := s.generations.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist generation record: %w", err)
	}
	return rec, nil
}

// Finalize renders both PDFs from the current draft and locks the
// record. The draft stays readable after finalization.
func (s *Service) Finalize(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error) {
	unlock := s.lockJob(jobID)
	defer unlock()

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(OpFinalize, rec.Status); err != nil {
		return nil, err
	}
	if !rec.HasDraft() {
		return nil, fmt.Errorf("%w: no draft cv to finalize", ErrMissingPrecondition)
	}

	cvName, err := s.renderCV(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.CVFilename = &cvName

	if rec.DraftCoverLetter != nil && *rec.DraftCoverLetter != "" {
		clName, err := s.renderCoverLetter(ctx, rec)
		if err != nil {
			return nil, err
		}
		rec.CoverLetterFilename = &clName
	}

	rec.Status = models.GenerationStatusFinalized
	rec.UpdatedAt = time.Now().UTC()

	if err := s.generations.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist generation record: %w", err)
	}

	s.emit("generation.finalized", jobID, map[string]any{
		"cv_filename":           rec.CVFilename,
		"cover_letter_filename": rec.CoverLetterFilename,
	})
	return rec, nil
}

// RenderCVPDF renders only the CV PDF from the current draft. A
// successful partial render moves the record to finalized; the cover
// letter filename stays independently nullable.
func (s *Service) RenderCVPDF(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error) {
	unlock := s.lockJob(jobID)
	defer unlock()

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(OpRender, rec.Status); err != nil {
		return nil, err
	}
	if !rec.HasDraft() {
		return nil, fmt.Errorf("%w: no draft cv to render", ErrMissingPrecondition)
	}

	name, err := s.renderCV(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.CVFilename = &name
	rec.Status = models.GenerationStatusFinalized
	rec.UpdatedAt = time.Now().UTC()

	if err := s.generations.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist generation record: %w", err)
	}
	s.emit("generation.finalized", jobID, map[string]any{
		"cv_filename": rec.CVFilename,
	})
	return rec, nil
}

// RenderCoverLetterPDF renders only the cover letter PDF and moves the
// record to finalized, leaving the CV filename untouched.
func (s *Service) RenderCoverLetterPDF(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error) {
	unlock := s.lockJob(jobID)
	defer unlock()

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(OpRender, rec.Status); err != nil {
		return nil, err
	}
	if rec.DraftCoverLetter == nil || *rec.DraftCoverLetter == "" {
		return nil, fmt.Errorf("%w: no cover letter to render", ErrMissingPrecondition)
	}

	name, err := s.renderCoverLetter(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.CoverLetterFilename = &name
	rec.Status = models.GenerationStatusFinalized
	rec.UpdatedAt = time.Now().UTC()

	if err := s.generations.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist generation record: %w", err)
	}
	s.emit("generation.finalized", jobID, map[string]any{
		"cover_letter_filename": rec.CoverLetterFilename,
	})
	return rec, nil
}

func (s *Service) renderCV(ctx context.Context, rec *models.GenerationRecord) (string, error) {
	data, err := s.pdf.RenderCV(ctx, *rec.DraftCVJSON, rec.Theme)
	if err != nil {
		return "", fmt.Errorf("render cv pdf: %w", err)
	}
	name := fmt.Sprintf("cv_%s_%d.pdf", rec.JobApplicationID, time.Now().Unix())
	if err := s.storage.WriteOutput(name, data); err != nil {
		return "", fmt.Errorf("save cv pdf: %w", err)
	}
	return name, nil
}

func (s *Service) renderCoverLetter(ctx context.Context, rec *models.GenerationRecord) (string, error) {
	data, err := s.pdf.RenderCoverLetter(ctx, *rec.DraftCoverLetter, rec.Theme)
	if err != nil {
		return "", fmt.Errorf("render cover letter pdf: %w", err)
	}
	name := fmt.Sprintf("cover_letter_%s_%d.pdf", rec.JobApplicationID, time.Now().Unix())
	if err := s.storage.WriteOutput(name, data); err != nil {
		return "", fmt.Errorf("save cover letter pdf: %w", err)
	}
	return name, nil
}

// tailoringResult is the shape the tailoring prompt demands.
type tailoringResult struct {
	CV            json.RawMessage `json:"cv"`
	CoverLetter   string          `json:"coverLetter"`
	MissingFields []string        `json:"missingFields"`
}

// runGeneration executes one tailoring round in the background. The
// record was already moved to pending_generation under the job lock;
// this goroutine lands the outcome. On failure a record that had a
// usable draft rolls back to it instead of discarding user work.
func (s *Service) runGeneration(jobID uuid.UUID, prev *models.GenerationRecord, baseCV, jobText, language, userInputs string) {
	log := logger.Get()
	ctx := context.Background()

	log.Info().Str("job_id", jobID.String()).Msg("starting document generation")

	raw, err := s.llm.Complete(ctx, llm.TailoringSystemPrompt, llm.BuildTailoringPrompt(baseCV, jobText, language, userInputs))
	if err != nil {
		s.failGeneration(ctx, jobID, prev, "llm unavailable: "+err.Error())
		return
	}

	result, err := parseTailoring(raw)
	if err != nil {
		s.failGeneration(ctx, jobID, prev, err.Error())
		return
	}

	unlock := s.lockJob(jobID)
	defer unlock()

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to reload generation record")
		return
	}

	cvJSON := string(result.CV)
	rec.DraftCVJSON = &cvJSON
	if result.CoverLetter != "" {
		rec.DraftCoverLetter = &result.CoverLetter
	}
	rec.ErrorMessage = nil

	if len(result.MissingFields) > 0 {
		rec.Status = models.GenerationStatusPendingInput
		rec.RequiredInputs = BuildRequiredInputs(result.MissingFields)
		s.emit("generation.input_required", jobID, map[string]any{"required_inputs": rec.RequiredInputs})
	} else {
		rec.Status = models.GenerationStatusDraftReady
		rec.RequiredInputs = nil
		s.emit("generation.draft_ready", jobID, nil)
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := s.generations.Upsert(ctx, rec); err != nil {
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to persist generation result")
		return
	}

	log.Info().Str("job_id", jobID.String()).Str("status", string(rec.Status)).Msg("document generation complete")
}

// failGeneration records a failed round. A regeneration that started
// from a settled state with a draft rolls back to that state so the
// draft stays usable; a first generation lands in the error state.
func (s *Service) failGeneration(ctx context.Context, jobID uuid.UUID, prev *models.GenerationRecord, message string) {
	log := logger.Get()
	log.Error().Str("job_id", jobID.String()).Str("reason", message).Msg("document generation failed")

	unlock := s.lockJob(jobID)
	defer unlock()

	rec := *prev
	if !rec.HasDraft() {
		rec.Status = models.GenerationStatusError
		rec.RequiredInputs = nil
	}
	rec.ErrorMessage = &message
	rec.UpdatedAt = time.Now().UTC()

	if err := s.generations.Upsert(ctx, &rec); err != nil {
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to persist generation error")
		return
	}
	s.emit("generation.error", jobID, map[string]any{"error": message})
}

// parseTailoring validates the tailoring completion. cv must be a JSON
// object; missingFields may name data the model refused to invent.
func parseTailoring(raw string) (*tailoringResult, error) {
	cleaned := cleanResponse(raw)

	var result tailoringResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("invalid model output: not a JSON object: %v", err)
	}
	if len(result.CV) == 0 || string(result.CV) == "null" {
		return nil, errors.New("invalid model output: cv object missing")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(result.CV, &obj); err != nil {
		return nil, errors.New("invalid model output: cv is not an object")
	}
	return &result, nil
}

// cleanResponse removes markdown code blocks if present.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func (s *Service) emit(eventType string, jobID uuid.UUID, payload map[string]any) {
	if s.broadcaster == nil {
		return
	}
	body := map[string]any{"job_id": jobID.String()}
	for k, v := range payload {
		body[k] = v
	}
	s.broadcaster.Broadcast(map[string]any{
		"type":    eventType,
		"payload": body,
	})
}
