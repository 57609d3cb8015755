package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pointsboard/internal/domain"
	"pointsboard/pkg/redis"
)

func newCacheFixture(t *testing.T) (*miniredis.Miniredis, *CacheService) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return mr, NewCacheService(client, zap.NewNop())
}

func TestCacheService_LeaderboardRoundtrip(t *testing.T) {
	_, cache := newCacheFixture(t)
	ctx := context.Background()

	_, ok := cache.GetLeaderboard(ctx)
	assert.False(t, ok)

	board := &domain.Leaderboard{
		Entries: []domain.LeaderboardEntry{
			{Participant: domain.Participant{ID: "p1", TotalPoints: 10}, Rank: 1, Badge: domain.BadgeGold},
		},
		TotalParticipants: 1,
		LastUpdate:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	cache.SetLeaderboard(ctx, board)

	got, ok := cache.GetLeaderboard(ctx)
	require.True(t, ok)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "p1", got.Entries[0].ID)
	assert.Equal(t, domain.BadgeGold, got.Entries[0].Badge)
	assert.Equal(t, 1, got.TotalParticipants)
}

func TestCacheService_LeaderboardExpires(t *testing.T) {
	mr, cache := newCacheFixture(t)
	ctx := context.Background()

	cache.SetLeaderboard(ctx, &domain.Leaderboard{TotalParticipants: 1})

	mr.FastForward(redis.TTLLeaderboard + time.Second)

	_, ok := cache.GetLeaderboard(ctx)
	assert.False(t, ok)
}

func TestCacheService_WindowedLeaderboardRoundtrip(t *testing.T) {
	_, cache := newCacheFixture(t)
	ctx := context.Background()

	board := &domain.WindowedLeaderboard{
		Period: domain.PeriodWeek,
		Entries: []domain.WindowedEntry{
			{Participant: domain.Participant{ID: "p1"}, PeriodPoints: 8, PeriodClaims: 2, Rank: 1, Badge: domain.BadgeGold},
		},
		LastUpdate: time.Now(),
	}
	cache.SetWindowedLeaderboard(ctx, board)

	got, ok := cache.GetWindowedLeaderboard(ctx, domain.PeriodWeek)
	require.True(t, ok)
	assert.Equal(t, domain.PeriodWeek, got.Period)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, 8, got.Entries[0].PeriodPoints)

	// Periods cache independently
	_, ok = cache.GetWindowedLeaderboard(ctx, domain.PeriodToday)
	assert.False(t, ok)
}

func TestCacheService_PositionRoundtrip(t *testing.T) {
	_, cache := newCacheFixture(t)
	ctx := context.Background()

	pos := &domain.Position{
		ParticipantID: "p1",
		Rank:          3,
		Percentile:    80,
		TotalActive:   10,
	}
	cache.SetPosition(ctx, pos)

	got, ok := cache.GetPosition(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, 3, got.Rank)
	assert.Equal(t, 80, got.Percentile)

	_, ok = cache.GetPosition(ctx, "p2")
	assert.False(t, ok)
}

func TestCacheService_InvalidateRankingCaches(t *testing.T) {
	_, cache := newCacheFixture(t)
	ctx := context.Background()

	cache.SetLeaderboard(ctx, &domain.Leaderboard{TotalParticipants: 1})
	cache.SetWindowedLeaderboard(ctx, &domain.WindowedLeaderboard{Period: domain.PeriodToday})
	cache.SetWindowedLeaderboard(ctx, &domain.WindowedLeaderboard{Period: domain.PeriodYear})

	cache.InvalidateRankingCaches(ctx)

	_, ok := cache.GetLeaderboard(ctx)
	assert.False(t, ok)
	_, ok = cache.GetWindowedLeaderboard(ctx, domain.PeriodToday)
	assert.False(t, ok)
	_, ok = cache.GetWindowedLeaderboard(ctx, domain.PeriodYear)
	assert.False(t, ok)
}

func TestCacheService_TryIdempotencyLock(t *testing.T) {
	mr, cache := newCacheFixture(t)
	ctx := context.Background()

	acquired, err := cache.TryIdempotencyLock(ctx, "req-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = cache.TryIdempotencyLock(ctx, "req-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	// Different key is independent
	acquired, err = cache.TryIdempotencyLock(ctx, "req-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// Lock frees itself after the TTL
	mr.FastForward(2 * time.Minute)
	acquired, err = cache.TryIdempotencyLock(ctx, "req-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestCacheService_ReconcilePendingSet(t *testing.T) {
	_, cache := newCacheFixture(t)
	ctx := context.Background()

	assert.Empty(t, cache.PendingReconcile(ctx))

	cache.FlagForReconcile(ctx, "p1")
	cache.FlagForReconcile(ctx, "p2")
	cache.FlagForReconcile(ctx, "p1") // set member, not a counter

	pending := cache.PendingReconcile(ctx)
	assert.ElementsMatch(t, []string{"p1", "p2"}, pending)

	cache.ClearReconciled(ctx, "p1")
	pending = cache.PendingReconcile(ctx)
	assert.ElementsMatch(t, []string{"p2"}, pending)
}

func TestCacheService_NilRedisDegradesToNoOps(t *testing.T) {
	cache := NewCacheService(nil, zap.NewNop())
	ctx := context.Background()

	_, ok := cache.GetLeaderboard(ctx)
	assert.False(t, ok)
	cache.SetLeaderboard(ctx, &domain.Leaderboard{})
	cache.InvalidateRankingCaches(ctx)

	acquired, err := cache.TryIdempotencyLock(ctx, "req-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "without Redis every submission is treated as new")

	cache.FlagForReconcile(ctx, "p1")
	assert.Nil(t, cache.PendingReconcile(ctx))
	assert.NoError(t, cache.HealthCheck(ctx))
}
