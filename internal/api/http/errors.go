package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/gradewise/internal/export"
	"github.com/mind-engage/gradewise/internal/gradebook"
	"github.com/mind-engage/gradewise/internal/workspace"
)

var validate = validator.New()

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadJSON
	}
	return validate.Struct(dst)
}

var errBadJSON = errors.New("bad json")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBadRequest reports decode failures; validator errors are listed per field.
func writeBadRequest(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": fields})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, workspace.ErrStudentNotFound):
		return http.StatusNotFound
	case errors.Is(err, gradebook.ErrInvalidConfig),
		errors.Is(err, workspace.ErrUnknownSubject),
		errors.Is(err, export.ErrEmptySheet),
		errors.Is(err, export.ErrMissingColumn):
		return http.StatusBadRequest
	case errors.Is(err, gradebook.ErrDuplicateEnrollment),
		errors.Is(err, workspace.ErrWrongPhase),
		errors.Is(err, workspace.ErrPendingError):
		return http.StatusConflict
	case errors.Is(err, gradebook.ErrMarkAboveMax):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: %v", err)
	}
	http.Error(w, err.Error(), status)
}
