package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pointsboard/internal/service"
	"pointsboard/pkg/errors"
)

// AdminHandler exposes operational endpoints for aggregate reconciliation
type AdminHandler struct {
	reconcileService *service.ReconcileService
}

func NewAdminHandler(reconcileService *service.ReconcileService) *AdminHandler {
	return &AdminHandler{
		reconcileService: reconcileService,
	}
}

// ReconcileParticipant handles POST /api/admin/reconcile/{participantId}
func (h *AdminHandler) ReconcileParticipant(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "participantId")
	if participantID == "" {
		respondError(w, errors.NewValidationError("participant id is required", nil))
		return
	}

	result, err := h.reconcileService.ReconcileParticipant(r.Context(), participantID)
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ReconcileAll handles POST /api/admin/reconcile
func (h *AdminHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.reconcileService.ReconcileAll(r.Context())
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"repaired": len(results),
		"results":  results,
	})
}
