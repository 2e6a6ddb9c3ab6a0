package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"TitanMusic/config"
	"TitanMusic/core/auth"
	"TitanMusic/core/catalog"
	"TitanMusic/logger"
	"TitanMusic/repository"
)

// APIHandler serves the JSON API.
type APIHandler struct {
	catalog *catalog.Service
	users   repository.UserRepository
	tokens  *auth.TokenManager
	cfg     *config.Config
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(svc *catalog.Service, users repository.UserRepository, tokens *auth.TokenManager, cfg *config.Config) *APIHandler {
	return &APIHandler{
		catalog: svc,
		users:   users,
		tokens:  tokens,
		cfg:     cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// writeServiceError maps catalog errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "Track not found")
	case errors.Is(err, catalog.ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, catalog.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrStorageUnavailable):
		logger.Error("storage unavailable",
			logger.String("path", r.URL.Path), logger.ErrorField(err))
		writeError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable")
	default:
		logger.Error("request failed",
			logger.String("path", r.URL.Path), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
