// File: internal/infra/web/errors.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"personal-ai-assistant/internal/domain"
)

// writeError maps domain errors onto HTTP statuses and emits a JSON body. The
// mapping is intentionally the single place where transport meets the domain.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrValidation):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrChatBusy):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrNotReady):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUsernameTaken), errors.Is(err, domain.ErrAlreadyExists):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrRateLimitExceeded):
		status, msg = http.StatusTooManyRequests, err.Error()
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrRetrievalFailure):
		status, msg = http.StatusBadGateway, err.Error()
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
