package handler

import (
	"customer-api/internal/api/handler/dto"
	"customer-api/internal/pkg/apperrors"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// decodeJSON tolerates unknown fields so that clients may echo a full
// customer, id included, back to the API.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: no request body", apperrors.ErrInvalidArgument)
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", apperrors.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", apperrors.ErrInvalidArgument, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Customer not found."
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidArgument):
		status, message = http.StatusBadRequest, err.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	respondJSON(w, status, dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	})
}

func customerIDFromURL(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "customerID")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("customerID", fmt.Sprintf("invalid customer id %q: must be a UUID", idStr))
	}
	return id, nil
}
