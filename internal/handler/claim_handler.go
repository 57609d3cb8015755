package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pointsboard/internal/domain"
	"pointsboard/internal/service"
	apperrors "pointsboard/pkg/errors"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ClaimHandler exposes the write surface of the points ledger
type ClaimHandler struct {
	claimService *service.ClaimService
}

func NewClaimHandler(claimService *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// SubmitClaim handles POST /api/v1/claims
func (h *ClaimHandler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidationError("invalid request body", nil))
		return
	}

	if err := h.validateClaimRequest(&req); err != nil {
		respondError(w, apperrors.NewValidationError(err.Error(), nil))
		return
	}

	claim, err := h.claimService.Submit(ctx, &req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	respondJSON(w, http.StatusCreated, claim)
}

// RevokeClaim handles POST /api/v1/claims/{claimId}/revoke
func (h *ClaimHandler) RevokeClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID := chi.URLParam(r, "claimId")
	if claimID == "" {
		respondError(w, apperrors.NewValidationError("claim id is required", nil))
		return
	}

	claim, err := h.claimService.Revoke(ctx, claimID)
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	respondJSON(w, http.StatusOK, claim)
}

// GetClaim handles GET /api/v1/claims/{claimId}
func (h *ClaimHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID := chi.URLParam(r, "claimId")
	if claimID == "" {
		respondError(w, apperrors.NewValidationError("claim id is required", nil))
		return
	}

	claim, err := h.claimService.GetClaim(ctx, claimID)
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	respondJSON(w, http.StatusOK, claim)
}

// GetHistory handles GET /api/v1/participants/{participantId}/claims
func (h *ClaimHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participantID := chi.URLParam(r, "participantId")
	if participantID == "" {
		respondError(w, apperrors.NewValidationError("participant id is required", nil))
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), defaultHistoryLimit, maxHistoryLimit)

	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, apperrors.NewValidationError("before must be RFC3339", nil))
			return
		}
		before = parsed
	}

	claims, err := h.claimService.History(ctx, participantID, limit, before)
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"participant_id": participantID,
		"claims":         claims,
	})
}

func (h *ClaimHandler) validateClaimRequest(req *domain.ClaimRequest) error {
	if req.ParticipantID == "" {
		return fmt.Errorf("participant_id is required")
	}
	if req.ClaimType == "" {
		return fmt.Errorf("claim_type is required")
	}
	if !req.ClaimType.IsValid() {
		return fmt.Errorf("claim_type must be one of random, bonus, manual")
	}
	if req.Points != nil && (*req.Points < domain.MinClaimPoints || *req.Points > domain.MaxClaimPoints) {
		return fmt.Errorf("points must be between %d and %d", domain.MinClaimPoints, domain.MaxClaimPoints)
	}
	return nil
}

func parseLimit(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
