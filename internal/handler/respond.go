package handler

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"pointsboard/internal/domain"
	apperrors "pointsboard/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, appErr *apperrors.AppError) {
	respondJSON(w, appErr.StatusCode, map[string]interface{}{
		"error": appErr,
	})
}

// mapDomainError translates service errors into the HTTP error surface.
// Validation and not-found errors are terminal; anything else is treated as a
// transient store failure the caller may retry.
func mapDomainError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrInvalidAward):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, domain.ErrUnknownParticipant):
		return apperrors.NewValidationError("participant is unknown", nil)
	case errors.Is(err, domain.ErrParticipantInactive):
		return apperrors.NewValidationError("participant is inactive", nil)
	case errors.Is(err, domain.ErrClaimNotFound):
		return apperrors.NewNotFoundError("claim not found")
	case errors.Is(err, domain.ErrParticipantNotFound):
		return apperrors.NewNotFoundError("participant not found")
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return apperrors.NewConflictError("claim already submitted")
	default:
		return apperrors.NewUnavailableError("store temporarily unavailable", err)
	}
}

// generateETag derives an entity tag from the response payload so polling
// clients can short-circuit with If-None-Match.
func generateETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return fmt.Sprintf(`"%x"`, hash)
}
