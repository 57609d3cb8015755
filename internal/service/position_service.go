package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"pointsboard/internal/domain"
	"pointsboard/internal/repository"

	"go.uber.org/zap"
)

// neighborhoodSpan is 2 participants above, the participant, 2 below
const neighborhoodSpan = 5

// PositionService answers "where does this participant stand" without
// materializing the full leaderboard response. Rank, percentile and
// neighborhood are all derived from one snapshot of the ordered standings, so
// the three values are always consistent with each other.
type PositionService struct {
	participants repository.ParticipantStore
	cache        *CacheService
	logger       *zap.Logger
	now          func() time.Time
}

func NewPositionService(participants repository.ParticipantStore, cache *CacheService, logger *zap.Logger) *PositionService {
	return &PositionService{
		participants: participants,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// Position computes competition rank, percentile and the surrounding
// neighborhood for a participant. Competition ranking shares a rank across
// exact point ties, unlike the leaderboard's positional ranks; the two views
// intentionally disagree on tied participants.
func (s *PositionService) Position(ctx context.Context, participantID string) (*domain.Position, error) {
	if pos, ok := s.cache.GetPosition(ctx, participantID); ok {
		return pos, nil
	}

	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if p == nil {
		return nil, domain.ErrParticipantNotFound
	}
	if !p.IsActive {
		return nil, domain.ErrParticipantInactive
	}

	// One snapshot for every derived value; rank and percentile must never
	// be computed against different population counts.
	snapshot, err := s.participants.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active participants: %w", err)
	}

	idx := -1
	strictlyGreater := 0
	for i, other := range snapshot {
		if other.TotalPoints > p.TotalPoints {
			strictlyGreater++
		}
		if other.ID == p.ID {
			idx = i
		}
	}
	if idx == -1 {
		// Deactivated between the two reads; treat like any other
		// inactive participant.
		return nil, domain.ErrParticipantInactive
	}

	total := len(snapshot)
	rank := 1 + strictlyGreater
	percentile := int(math.Round((1 - float64(rank-1)/float64(total)) * 100))

	pos := &domain.Position{
		ParticipantID: p.ID,
		Rank:          rank,
		Percentile:    percentile,
		TotalActive:   total,
		Neighborhood:  neighborhood(snapshot, idx),
	}
	s.cache.SetPosition(ctx, pos)

	return pos, nil
}

// neighborhood returns the window of standings around idx, clamped at the
// list boundaries: near the top the window extends further down instead of
// underflowing, and near the bottom it extends further up.
func neighborhood(snapshot []domain.Participant, idx int) []domain.LeaderboardEntry {
	start := idx - 2
	if start+neighborhoodSpan > len(snapshot) {
		start = len(snapshot) - neighborhoodSpan
	}
	if start < 0 {
		start = 0
	}
	end := start + neighborhoodSpan
	if end > len(snapshot) {
		end = len(snapshot)
	}

	entries := make([]domain.LeaderboardEntry, 0, end-start)
	for i := start; i < end; i++ {
		entries = append(entries, domain.LeaderboardEntry{
			Participant: snapshot[i],
			Rank:        i + 1,
			Badge:       domain.BadgeForRank(i + 1),
		})
	}
	return entries
}
