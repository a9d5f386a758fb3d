package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/polytrack/internal/adapters/repository"
	service "github.com/okian/polytrack/internal/app"
	"github.com/okian/polytrack/internal/domain/sanitize"
)

type errorResponse struct {
	Error string `json:"error"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers read endpoints: {"error": "..."}.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: message(status, err)})
}

// writeFailure answers write endpoints: {"success": false, "error": "..."}.
func writeFailure(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, failureResponse{Success: false, Error: message(status, err)})
}

// message hides internal details of server errors.
func message(status int, err error) string {
	switch {
	case err == nil:
		return http.StatusText(status)
	case errors.Is(err, repository.ErrWrite):
		return repository.ErrWrite.Error()
	case status >= http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *sanitize.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, ErrMalformedBody),
		errors.Is(err, ErrPayloadTooLarge),
		errors.Is(err, ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTrackNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON object of at most maxBytes. An empty body decodes
// as {}.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrPayloadTooLarge
		}
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] != '{' {
		return ErrMalformedBody
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return ErrMalformedBody
	}
	return nil
}

// parseLimit reads ?limit. Absent means def; otherwise it must be in [1, max].
func parseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrInvalidLimit
	}
	if n > max {
		return 0, fmt.Errorf("%w: at most %d", ErrInvalidLimit, max)
	}
	return n, nil
}
