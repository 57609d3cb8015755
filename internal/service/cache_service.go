package service

import (
	"context"
	"encoding/json"
	"time"

	"pointsboard/internal/domain"
	"pointsboard/pkg/redis"

	"go.uber.org/zap"
)

// CacheService fronts the ranking reads with cache-aside Redis caching so the
// polling dashboard can refresh every few seconds without recomputing
// standings on every request. All methods degrade to no-ops when Redis is not
// configured; a cache failure never fails the request.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// GetLeaderboard returns the cached global leaderboard, if present
func (c *CacheService) GetLeaderboard(ctx context.Context) (*domain.Leaderboard, bool) {
	if c.redis == nil {
		return nil, false
	}

	cachedData, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyLeaderboardGlobal())
	if err != nil || cachedData == "" {
		return nil, false
	}

	var board domain.Leaderboard
	if err := json.Unmarshal([]byte(cachedData), &board); err != nil {
		c.logger.Warn("Leaderboard cache corrupted, falling back to stores", zap.Error(err))
		return nil, false
	}
	return &board, true
}

// SetLeaderboard caches the global leaderboard
func (c *CacheService) SetLeaderboard(ctx context.Context, board *domain.Leaderboard) {
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(board)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.redis.KeyBuilder.KeyLeaderboardGlobal(), string(data), redis.TTLLeaderboard); err != nil {
		c.logger.Warn("Failed to cache leaderboard", zap.Error(err))
	}
}

// GetWindowedLeaderboard returns the cached windowed leaderboard, if present
func (c *CacheService) GetWindowedLeaderboard(ctx context.Context, period domain.Period) (*domain.WindowedLeaderboard, bool) {
	if c.redis == nil {
		return nil, false
	}

	cachedData, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyLeaderboardWindowed(string(period)))
	if err != nil || cachedData == "" {
		return nil, false
	}

	var board domain.WindowedLeaderboard
	if err := json.Unmarshal([]byte(cachedData), &board); err != nil {
		c.logger.Warn("Windowed leaderboard cache corrupted, falling back to stores",
			zap.String("period", string(period)),
			zap.Error(err))
		return nil, false
	}
	return &board, true
}

// SetWindowedLeaderboard caches a windowed leaderboard
func (c *CacheService) SetWindowedLeaderboard(ctx context.Context, board *domain.WindowedLeaderboard) {
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(board)
	if err != nil {
		return
	}
	key := c.redis.KeyBuilder.KeyLeaderboardWindowed(string(board.Period))
	if err := c.redis.Set(ctx, key, string(data), redis.TTLWindowed); err != nil {
		c.logger.Warn("Failed to cache windowed leaderboard",
			zap.String("period", string(board.Period)),
			zap.Error(err))
	}
}

// GetPosition returns the cached position for a participant, if present
func (c *CacheService) GetPosition(ctx context.Context, participantID string) (*domain.Position, bool) {
	if c.redis == nil {
		return nil, false
	}

	cachedData, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyPosition(participantID))
	if err != nil || cachedData == "" {
		return nil, false
	}

	var pos domain.Position
	if err := json.Unmarshal([]byte(cachedData), &pos); err != nil {
		return nil, false
	}
	return &pos, true
}

// SetPosition caches a participant position
func (c *CacheService) SetPosition(ctx context.Context, pos *domain.Position) {
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(pos)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.redis.KeyBuilder.KeyPosition(pos.ParticipantID), string(data), redis.TTLPosition); err != nil {
		c.logger.Warn("Failed to cache position",
			zap.String("participant_id", pos.ParticipantID),
			zap.Error(err))
	}
}

// InvalidateRankingCaches drops the leaderboard caches after a write so the
// next poll observes the new totals. Position caches expire on their own
// short TTL.
func (c *CacheService) InvalidateRankingCaches(ctx context.Context) {
	if c.redis == nil {
		return
	}

	keys := []string{
		c.redis.KeyBuilder.KeyLeaderboardGlobal(),
		c.redis.KeyBuilder.KeyLeaderboardWindowed(string(domain.PeriodToday)),
		c.redis.KeyBuilder.KeyLeaderboardWindowed(string(domain.PeriodWeek)),
		c.redis.KeyBuilder.KeyLeaderboardWindowed(string(domain.PeriodMonth)),
		c.redis.KeyBuilder.KeyLeaderboardWindowed(string(domain.PeriodYear)),
	}
	if err := c.redis.Delete(ctx, keys...); err != nil {
		c.logger.Warn("Failed to invalidate ranking caches", zap.Error(err))
	}
}

// TryIdempotencyLock attempts to acquire an idempotency lock for the given
// key. Returns true if acquired (first time), false if the key already exists
// within the dedupe TTL. Without Redis every submission is treated as new.
func (c *CacheService) TryIdempotencyLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c.redis == nil {
		return true, nil
	}
	return c.redis.SetNX(ctx, c.redis.KeyBuilder.KeyIdempotency(key), "1", ttl)
}

// ReleaseIdempotencyLock frees a lock whose submission never reached the
// ledger, so a retry with the same key is not rejected as a replay.
func (c *CacheService) ReleaseIdempotencyLock(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeyIdempotency(key)); err != nil {
		c.logger.Warn("Failed to release idempotency lock",
			zap.String("key", key),
			zap.Error(err))
	}
}

// FlagForReconcile marks a participant whose aggregate update failed after a
// successful ledger write, so the reconciliation sweep repairs it.
func (c *CacheService) FlagForReconcile(ctx context.Context, participantID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.SAdd(ctx, c.redis.KeyBuilder.KeyReconcilePending(), participantID); err != nil {
		c.logger.Error("Failed to flag participant for reconciliation",
			zap.String("participant_id", participantID),
			zap.Error(err))
	}
}

// PendingReconcile lists participants flagged for reconciliation
func (c *CacheService) PendingReconcile(ctx context.Context) []string {
	if c.redis == nil {
		return nil
	}
	members, err := c.redis.SMembers(ctx, c.redis.KeyBuilder.KeyReconcilePending())
	if err != nil {
		c.logger.Warn("Failed to list pending reconciliations", zap.Error(err))
		return nil
	}
	return members
}

// ClearReconciled removes a repaired participant from the pending set
func (c *CacheService) ClearReconciled(ctx context.Context, participantID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.SRem(ctx, c.redis.KeyBuilder.KeyReconcilePending(), participantID); err != nil {
		c.logger.Warn("Failed to clear reconciled participant",
			zap.String("participant_id", participantID),
			zap.Error(err))
	}
}

// HealthCheck verifies the cache connection
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Health(ctx)
}
