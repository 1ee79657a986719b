package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/chat"
	"github.com/applypilot/applypilot/internal/models"
)

// ChatService defines the interface for job posting Q&A.
type ChatService interface {
	Ask(ctx context.Context, jobID uuid.UUID, question string) ([]models.ChatMessage, error)
	History(ctx context.Context, jobID uuid.UUID) ([]models.ChatMessage, error)
}

// ChatHandler handles chat requests.
type ChatHandler struct {
	service ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Routes mounts the chat endpoints.
func (h *ChatHandler) Routes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/{jobId}", h.Ask)
		r.Get("/{jobId}/history", h.History)
	})
}

// Ask answers a question about the job posting. The full stored pair
// is available via History.
// POST /api/v1/chat/{jobId}
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job application ID")
		return
	}

	var payload struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	pair, err := h.service.Ask(r.Context(), jobID, payload.Question)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chat.ErrApplicationNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, chat.ErrNoDescription):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			logHandlerError("chat request failed", err)
			writeError(w, http.StatusBadGateway, "failed to answer question")
		}
		return
	}

	answer := ""
	if len(pair) > 0 {
		answer = pair[len(pair)-1].Text
	}
	writeJSON(w, http.StatusOK, map[string]any{"answer": answer})
}

// History returns the full conversation for a job application.
// GET /api/v1/chat/{jobId}/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job application ID")
		return
	}

	messages, err := h.service.History(r.Context(), jobID)
	if err != nil {
		logHandlerError("failed to load chat history", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": messages})
}
