package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/dailynotes/internal/apperr"
)

// WarningHeader carries a persistence warning on an otherwise successful response.
const WarningHeader = "X-Persistence-Warning"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// persistenceWarning sets WarningHeader and returns the message when err is
// a write failure. Any other non-nil error is returned as-is for the caller
// to map.
func persistenceWarning(w http.ResponseWriter, err error) (string, error) {
	var we *apperr.WriteError
	if errors.As(err, &we) {
		msg := we.Error()
		w.Header().Set(WarningHeader, msg)
		return msg, nil
	}
	return "", err
}
