package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/presence-check/internal/verification"
)

// maxUploadBytes bounds multipart bodies carrying a frame.
const maxUploadBytes = 16 << 20

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorResponse is the body of a failed registration or verification.
type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
	Outcome   string `json:"outcome,omitempty"`
}

// statusForError maps the verification error taxonomy to HTTP status codes.
// Input problems are 4xx, collaborator outages 503, storage failures 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, verification.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, verification.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, verification.ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, verification.ErrDuplicateFace):
		return http.StatusConflict
	case errors.Is(err, verification.ErrDetectionAmbiguous):
		return http.StatusUnprocessableEntity
	case errors.Is(err, verification.ErrSensorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondAttemptError writes err using the taxonomy mapping. Storage and
// unknown errors are logged and reported without internal detail.
func respondAttemptError(w http.ResponseWriter, err error, outcome string) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Attempt failed: %v", err)
		message = "internal storage error, contact an administrator"
	}
	respondJSON(w, status, errorResponse{
		Error:     message,
		Kind:      verification.Kind(err),
		Retryable: verification.Retryable(err),
		Outcome:   outcome,
	})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
