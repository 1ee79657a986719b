package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/models"
)

// ApplicationsRepository defines the interface for application data access.
type ApplicationsRepository interface {
	Create(ctx context.Context, app *models.JobApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
	List(ctx context.Context, status models.ApplicationStatus) ([]models.JobApplication, error)
	Update(ctx context.Context, app *models.JobApplication) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ApplicationsHandler handles job application CRUD requests.
type ApplicationsHandler struct {
	repo ApplicationsRepository
}

// NewApplicationsHandler creates a new ApplicationsHandler.
func NewApplicationsHandler(repo ApplicationsRepository) *ApplicationsHandler {
	return &ApplicationsHandler{repo: repo}
}

// Routes mounts the applications endpoints.
func (h *ApplicationsHandler) Routes(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.GetByID)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Delete("/{id}", h.Delete)
	})
}

// List returns applications, optionally filtered by ?status=.
// GET /api/v1/applications
func (h *ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.ApplicationStatus(r.URL.Query().Get("status"))
	if status != "" && !models.ValidApplicationStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	apps, err := h.repo.List(r.Context(), status)
	if err != nil {
		logHandlerError("failed to list applications", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch applications")
		return
	}
	if apps == nil {
		apps = []models.JobApplication{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"applications": apps,
		"total":        len(apps),
	})
}

// Create creates a new job application.
// POST /api/v1/applications
func (h *ApplicationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       string  `json:"title"`
		Company     string  `json:"company"`
		JobURL      *string `json:"job_url"`
		Language    string  `json:"language"`
		Description string  `json:"description"`
		Notes       *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.Title == "" || payload.Company == "" {
		writeError(w, http.StatusBadRequest, "title and company are required")
		return
	}

	app := &models.JobApplication{
		Title:       payload.Title,
		Company:     payload.Company,
		JobURL:      payload.JobURL,
		Language:    payload.Language,
		Description: payload.Description,
		Notes:       payload.Notes,
	}
	if err := h.repo.Create(r.Context(), app); err != nil {
		logHandlerError("failed to create application", err)
		writeError(w, http.StatusInternalServerError, "failed to create application")
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

// GetByID returns a single application.
// GET /api/v1/applications/{id}
func (h *ApplicationsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application ID")
		return
	}

	app, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		logHandlerError("failed to fetch application", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch application")
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, app)
}

// Update rewrites an application.
// PUT /api/v1/applications/{id}
func (h *ApplicationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application ID")
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		logHandlerError("failed to fetch application", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch application")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	var payload struct {
		Title       string  `json:"title"`
		Company     string  `json:"company"`
		JobURL      *string `json:"job_url"`
		Language    string  `json:"language"`
		Description string  `json:"description"`
		Notes       *string `json:"notes"`
		Status      string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if payload.Title != "" {
		existing.Title = payload.Title
	}
	if payload.Company != "" {
		existing.Company = payload.Company
	}
	if payload.JobURL != nil {
		existing.JobURL = payload.JobURL
	}
	if payload.Language != "" {
		existing.Language = payload.Language
	}
	if payload.Description != "" {
		existing.Description = payload.Description
	}
	if payload.Notes != nil {
		existing.Notes = payload.Notes
	}
	if payload.Status != "" {
		status := models.ApplicationStatus(payload.Status)
		if !models.ValidApplicationStatus(status) {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		existing.Status = status
	}

	if err := h.repo.Update(r.Context(), existing); err != nil {
		logHandlerError("failed to update application", err)
		writeError(w, http.StatusInternalServerError, "failed to update application")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// UpdateStatus moves an application along the pipeline.
// PATCH /api/v1/applications/{id}/status
func (h *ApplicationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application ID")
		return
	}

	var payload struct {
		Status models.ApplicationStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if !models.ValidApplicationStatus(payload.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), id, payload.Status); err != nil {
		logHandlerError("failed to update application status", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": payload.Status})
}

// Delete removes an application and everything attached to it.
// DELETE /api/v1/applications/{id}
func (h *ApplicationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application ID")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		logHandlerError("failed to delete application", err)
		writeError(w, http.StatusInternalServerError, "failed to delete application")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
