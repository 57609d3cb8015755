package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pointsboard/internal/domain"
	"pointsboard/internal/repository"

	"go.uber.org/zap"
)

// RankingService computes ordered standings. Global standings read the
// aggregate view; windowed standings re-derive sums from the ledger so they
// only count claims inside the window. The service never mutates state.
type RankingService struct {
	participants repository.ParticipantStore
	ledger       repository.LedgerStore
	cache        *CacheService
	logger       *zap.Logger
	now          func() time.Time
}

func NewRankingService(participants repository.ParticipantStore, ledger repository.LedgerStore, cache *CacheService, logger *zap.Logger) *RankingService {
	return &RankingService{
		participants: participants,
		ledger:       ledger,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// GlobalLeaderboard returns the top limit active participants ordered by
// TotalPoints descending with ties broken by registration time. Ranks are
// positional: even exact point ties get distinct sequential ranks.
func (s *RankingService) GlobalLeaderboard(ctx context.Context, limit int) (*domain.Leaderboard, error) {
	if board, ok := s.cache.GetLeaderboard(ctx); ok {
		return trimLeaderboard(board, limit), nil
	}

	participants, err := s.participants.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active participants: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(participants))
	for i, p := range participants {
		rank := i + 1
		entries[i] = domain.LeaderboardEntry{
			Participant: p,
			Rank:        rank,
			Badge:       domain.BadgeForRank(rank),
		}
	}

	board := &domain.Leaderboard{
		Entries:           entries,
		TotalParticipants: len(participants),
		LastUpdate:        s.now(),
	}
	s.cache.SetLeaderboard(ctx, board)

	return trimLeaderboard(board, limit), nil
}

// WindowedLeaderboard ranks active participants by their point sum inside the
// period window, ordered by windowed points descending then windowed claim
// count descending. Participants with no claims in the window are excluded.
func (s *RankingService) WindowedLeaderboard(ctx context.Context, period domain.Period, limit int) (*domain.WindowedLeaderboard, error) {
	if !period.IsValid() {
		return nil, fmt.Errorf("%w: unknown period %q", domain.ErrInvalidAward, period)
	}

	if board, ok := s.cache.GetWindowedLeaderboard(ctx, period); ok {
		return trimWindowed(board, limit), nil
	}

	now := s.now()
	claims, err := s.ledger.InWindow(ctx, period.WindowStart(now), now)
	if err != nil {
		return nil, fmt.Errorf("failed to read window from ledger: %w", err)
	}

	type windowSum struct {
		points int
		claims int
	}
	sums := make(map[string]windowSum)
	for _, claim := range claims {
		sum := sums[claim.ParticipantID]
		sum.points += claim.Points
		sum.claims++
		sums[claim.ParticipantID] = sum
	}

	participants, err := s.participants.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active participants: %w", err)
	}

	var entries []domain.WindowedEntry
	for _, p := range participants {
		sum, ok := sums[p.ID]
		if !ok {
			continue
		}
		entries = append(entries, domain.WindowedEntry{
			Participant:  p,
			PeriodPoints: sum.points,
			PeriodClaims: sum.claims,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PeriodPoints != entries[j].PeriodPoints {
			return entries[i].PeriodPoints > entries[j].PeriodPoints
		}
		if entries[i].PeriodClaims != entries[j].PeriodClaims {
			return entries[i].PeriodClaims > entries[j].PeriodClaims
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Badge = domain.BadgeForRank(i + 1)
	}

	board := &domain.WindowedLeaderboard{
		Period:     period,
		Entries:    entries,
		LastUpdate: now,
	}
	s.cache.SetWindowedLeaderboard(ctx, board)

	s.logger.Debug("Windowed leaderboard computed",
		zap.String("period", string(period)),
		zap.Int("entries", len(entries)),
		zap.Int("window_claims", len(claims)))

	return trimWindowed(board, limit), nil
}

func trimLeaderboard(board *domain.Leaderboard, limit int) *domain.Leaderboard {
	if limit <= 0 || len(board.Entries) <= limit {
		return board
	}
	trimmed := *board
	trimmed.Entries = board.Entries[:limit]
	return &trimmed
}

func trimWindowed(board *domain.WindowedLeaderboard, limit int) *domain.WindowedLeaderboard {
	if limit <= 0 || len(board.Entries) <= limit {
		return board
	}
	trimmed := *board
	trimmed.Entries = board.Entries[:limit]
	return &trimmed
}
