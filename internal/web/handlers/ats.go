package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/ats"
	"github.com/applypilot/applypilot/internal/models"
)

// ScanService defines the interface for the ATS scoring engine.
type ScanService interface {
	StartScan(ctx context.Context, jobApplicationID, existing uuid.UUID) (uuid.UUID, error)
	GetScore(ctx context.Context, analysisID uuid.UUID) (*models.AtsAnalysisRecord, error)
	ListScans(ctx context.Context, jobApplicationID uuid.UUID) ([]models.AtsAnalysisRecord, error)
}

// AtsHandler handles ATS scan requests.
type AtsHandler struct {
	engine ScanService
}

// NewAtsHandler creates a new AtsHandler.
func NewAtsHandler(engine ScanService) *AtsHandler {
	return &AtsHandler{engine: engine}
}

// Routes mounts the ats endpoints.
func (h *AtsHandler) Routes(r chi.Router) {
	r.Route("/ats", func(r chi.Router) {
		r.Post("/scan", h.StartScan)
		r.Get("/scores/{analysisId}", h.GetScore)
		r.Get("/scans/{jobId}", h.ListScans)
	})
}

// StartScan kicks off a scan and returns the analysis id to poll.
// Passing analysisId reruns an earlier scan in place.
// POST /api/v1/ats/scan
func (h *AtsHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobApplicationID uuid.UUID  `json:"jobApplicationId"`
		AnalysisID       *uuid.UUID `json:"analysisId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.JobApplicationID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "jobApplicationId is required")
		return
	}

	existing := uuid.Nil
	if payload.AnalysisID != nil {
		existing = *payload.AnalysisID
	}

	analysisID, err := h.engine.StartScan(r.Context(), payload.JobApplicationID, existing)
	if err != nil {
		switch {
		case errors.Is(err, ats.ErrApplicationNotFound), errors.Is(err, ats.ErrAnalysisNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ats.ErrNoDescription):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			logHandlerError("failed to start ats scan", err)
			writeError(w, http.StatusInternalServerError, "failed to start scan")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"analysisId": analysisID})
}

// GetScore returns the current state of an analysis. A pending record
// comes back with neither score nor error; clients poll until one
// appears.
// GET /api/v1/ats/scores/{analysisId}
func (h *AtsHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	analysisID, err := uuid.Parse(chi.URLParam(r, "analysisId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis ID")
		return
	}

	rec, err := h.engine.GetScore(r.Context(), analysisID)
	if err != nil {
		if errors.Is(err, ats.ErrAnalysisNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		logHandlerError("failed to fetch analysis", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch analysis")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListScans returns all scan rounds for an application, newest first.
// GET /api/v1/ats/scans/{jobId}
func (h *AtsHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job application ID")
		return
	}

	records, err := h.engine.ListScans(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ats.ErrApplicationNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logHandlerError("failed to list analyses", err)
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if records == nil {
		records = []models.AtsAnalysisRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"analyses": records})
}
