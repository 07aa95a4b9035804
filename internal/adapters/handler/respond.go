package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
)

// envelope is the fixed response contract: success responses carry
// {status:"success", message?, data}, failures {status:"error", message}.
type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: "success", Message: message, Data: data})
}

// writeError maps the core's typed failures onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Status:  "error",
			Message: "validation failed",
			Errors:  ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Status: "error", Message: "resource not found"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, envelope{Status: "error", Message: "forbidden"})
	case errors.Is(err, domain.ErrInactiveUser):
		writeJSON(w, http.StatusForbidden, envelope{Status: "error", Message: "user account is deactivated"})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, envelope{Status: "error", Message: "unauthorized"})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, envelope{Status: "error", Message: "conflict"})
	default:
		log.Printf("Unhandled error: %v", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "internal server error"})
	}
}
