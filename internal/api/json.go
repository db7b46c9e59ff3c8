package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/starford/hpml/internal/apperr"
)

const maxJSONBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrUnreadableInput, err)
	}
	return nil
}

// writeError maps a domain error to its status code. Client and
// availability errors carry their message; anything else is logged and
// reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case apperr.IsUnavailable(err):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	case apperr.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
