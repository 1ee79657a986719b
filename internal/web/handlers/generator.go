package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/generator"
	"github.com/applypilot/applypilot/internal/models"
)

// GenerationService defines the interface for the document generation
// pipeline.
type GenerationService interface {
	Get(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error)
	Generate(ctx context.Context, jobID uuid.UUID, language, theme string) (*models.GenerationRecord, error)
	SubmitInputs(ctx context.Context, jobID uuid.UUID, values map[string]string) (*models.GenerationRecord, error)
	Finalize(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error)
	RenderCVPDF(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error)
	RenderCoverLetterPDF(ctx context.Context, jobID uuid.UUID) (*models.GenerationRecord, error)
}

// DraftQueuer debounces draft saves.
type DraftQueuer interface {
	Queue(jobID uuid.UUID, cvJSON, coverLetter *string)
}

// OutputResolver resolves rendered filenames to paths on disk.
type OutputResolver interface {
	OutputPath(filename string) (string, error)
}

// GeneratorHandler handles document generation requests.
type GeneratorHandler struct {
	service GenerationService
	drafts  DraftQueuer
	outputs OutputResolver
}

// NewGeneratorHandler creates a new GeneratorHandler.
func NewGeneratorHandler(service GenerationService, drafts DraftQueuer, outputs OutputResolver) *GeneratorHandler {
	return &GeneratorHandler{service: service, drafts: drafts, outputs: outputs}
}

// Routes mounts the generator endpoints.
func (h *GeneratorHandler) Routes(r chi.Router) {
	r.Route("/generator", func(r chi.Router) {
		r.Get("/download/{filename}", h.Download)
		r.Get("/{jobId}", h.Get)
		r.Post("/{jobId}", h.Generate)
		r.Post("/{jobId}/inputs", h.SubmitInputs)
		r.Put("/{jobId}/draft", h.SaveDraft)
		r.Post("/{jobId}/finalize", h.Finalize)
		r.Post("/{jobId}/render-cv-pdf", h.RenderCVPDF)
		r.Post("/{jobId}/render-cover-letter-pdf", h.RenderCoverLetterPDF)
	})
}

func (h *GeneratorHandler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job application ID")
		return uuid.Nil, false
	}
	return id, true
}

// writeGeneratorError maps pipeline errors onto the HTTP contract:
// state conflicts are 409, missing preconditions 422.
func writeGeneratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, generator.ErrStateConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, generator.ErrMissingPrecondition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, generator.ErrApplicationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logHandlerError("generator request failed", err)
		writeError(w, http.StatusInternalServerError, "generation request failed")
	}
}

// Get returns the generation record for an application.
// GET /api/v1/generator/{jobId}
func (h *GeneratorHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		writeGeneratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Generate starts document generation.
// POST /api/v1/generator/{jobId}
func (h *GeneratorHandler) Generate(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Language string `json:"language"`
		Theme    string `json:"theme"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	rec, err := h.service.Generate(r.Context(), jobID, payload.Language, payload.Theme)
	if err != nil {
		writeGeneratorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

// SubmitInputs supplies values for required inputs and restarts
// generation.
// POST /api/v1/generator/{jobId}/inputs
func (h *GeneratorHandler) SubmitInputs(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var payload struct {
		UserInputData map[string]string `json:"userInputData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	rec, err := h.service.SubmitInputs(r.Context(), jobID, payload.UserInputData)
	if err != nil {
		writeGeneratorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

// SaveDraft queues a debounced draft save and returns immediately.
// PUT /api/v1/generator/{jobId}/draft
func (h *GeneratorHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var payload struct {
		DraftCVJSON      *string `json:"draft_cv_json"`
		DraftCoverLetter *string `json:"draft_cover_letter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.DraftCVJSON == nil && payload.DraftCoverLetter == nil {
		writeError(w, http.StatusBadRequest, "nothing to save")
		return
	}

	h.drafts.Queue(jobID, payload.DraftCVJSON, payload.DraftCoverLetter)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Finalize renders the PDFs and locks the record. Callers that batch
// input submission with finalize may carry userInputData here: the
// inputs restart tailoring first (202), and the record is finalized
// once the new draft lands.
// POST /api/v1/generator/{jobId}/finalize
func (h *GeneratorHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var payload struct {
		UserInputData map[string]string `json:"userInputData"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	if len(payload.UserInputData) > 0 {
		rec, err := h.service.SubmitInputs(r.Context(), jobID, payload.UserInputData)
		if err != nil {
			writeGeneratorError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, rec)
		return
	}

	rec, err := h.service.Finalize(r.Context(), jobID)
	if err != nil {
		writeGeneratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RenderCVPDF re-renders the CV PDF only.
// POST /api/v1/generator/{jobId}/render-cv-pdf
func (h *GeneratorHandler) RenderCVPDF(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.RenderCVPDF(r.Context(), jobID)
	if err != nil {
		writeGeneratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RenderCoverLetterPDF re-renders the cover letter PDF only.
// POST /api/v1/generator/{jobId}/render-cover-letter-pdf
func (h *GeneratorHandler) RenderCoverLetterPDF(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.RenderCoverLetterPDF(r.Context(), jobID)
	if err != nil {
		writeGeneratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Download serves a rendered PDF by filename.
// GET /api/v1/generator/download/{filename}
func (h *GeneratorHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := h.outputs.OutputPath(filename)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}
