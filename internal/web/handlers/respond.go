// Package handlers contains the HTTP handlers for the API surface.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/applypilot/applypilot/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_ = err // Client disconnected
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func logHandlerError(context string, err error) {
	logger.Get().Error().Err(err).Msg(context)
}
