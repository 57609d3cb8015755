package handler

import (
	"net/http"

	"pointsboard/internal/domain"
	"pointsboard/internal/service"
	apperrors "pointsboard/pkg/errors"

	"github.com/go-chi/chi/v5"
)

const (
	defaultBoardLimit = 50
	maxBoardLimit     = 100
)

// LeaderboardHandler exposes the ranking read surface the dashboard polls
type LeaderboardHandler struct {
	rankingService  *service.RankingService
	positionService *service.PositionService
}

func NewLeaderboardHandler(rankingService *service.RankingService, positionService *service.PositionService) *LeaderboardHandler {
	return &LeaderboardHandler{
		rankingService:  rankingService,
		positionService: positionService,
	}
}

// GetGlobalLeaderboard handles GET /api/v1/leaderboard (polling endpoint)
func (h *LeaderboardHandler) GetGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := parseLimit(r.URL.Query().Get("limit"), defaultBoardLimit, maxBoardLimit)

	board, err := h.rankingService.GlobalLeaderboard(ctx, limit)
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	// The tag covers the standings only, not LastUpdate; a recompute that
	// changes nothing must keep serving 304s to the poller.
	etag := generateETag(struct {
		Entries []domain.LeaderboardEntry `json:"entries"`
		Total   int                       `json:"total"`
	}{board.Entries, board.TotalParticipants})
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=10")

	respondJSON(w, http.StatusOK, board)
}

// GetWindowedLeaderboard handles GET /api/v1/leaderboard/{period}
func (h *LeaderboardHandler) GetWindowedLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period := domain.Period(chi.URLParam(r, "period"))
	if !period.IsValid() {
		respondError(w, apperrors.NewValidationError("period must be one of today, week, month, year", nil))
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), defaultBoardLimit, maxBoardLimit)

	board, err := h.rankingService.WindowedLeaderboard(ctx, period, limit)
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	etag := generateETag(struct {
		Period  domain.Period          `json:"period"`
		Entries []domain.WindowedEntry `json:"entries"`
	}{board.Period, board.Entries})
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=10")

	respondJSON(w, http.StatusOK, board)
}

// GetPosition handles GET /api/v1/participants/{participantId}/position
func (h *LeaderboardHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participantID := chi.URLParam(r, "participantId")
	if participantID == "" {
		respondError(w, apperrors.NewValidationError("participant id is required", nil))
		return
	}

	pos, err := h.positionService.Position(ctx, participantID)
	if err != nil {
		respondError(w, mapDomainError(err))
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=5")

	respondJSON(w, http.StatusOK, pos)
}
