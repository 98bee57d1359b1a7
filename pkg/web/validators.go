package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors flattens validator errors into field -> rule messages.
// The second result is false when err is not a validation error.
func ValidationErrors(err error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	errorResponse := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		// fieldErr.Tag() returns "required", "gt", etc.
		errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	return errorResponse, true
}

// RespondValidation writes a 400 describing why v.Struct rejected the payload.
func RespondValidation(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if fields, ok := ValidationErrors(err); ok {
		logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
		RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": fields})
		return
	}
	logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
}
