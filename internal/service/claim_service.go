package service

import (
	"context"
	"fmt"
	"time"

	"pointsboard/internal/domain"
	"pointsboard/internal/repository"
	"pointsboard/pkg/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClaimService is the single entry point for awarding and revoking points.
// All mutation of the ledger and the aggregate view goes through Submit and
// Revoke; nothing else writes to either store.
type ClaimService struct {
	ledger       repository.LedgerStore
	participants repository.ParticipantStore
	cache        *CacheService
	points       PointSource
	logger       *zap.Logger
}

func NewClaimService(ledger repository.LedgerStore, participants repository.ParticipantStore, cache *CacheService, points PointSource, logger *zap.Logger) *ClaimService {
	return &ClaimService{
		ledger:       ledger,
		participants: participants,
		cache:        cache,
		points:       points,
		logger:       logger,
	}
}

// Submit validates and records a claim, then drives the aggregate update.
// idempotencyKey is optional; when set, a replay within the dedupe window is
// rejected before any write.
func (s *ClaimService) Submit(ctx context.Context, req *domain.ClaimRequest, idempotencyKey string) (*domain.Claim, error) {
	if !req.ClaimType.IsValid() {
		return nil, fmt.Errorf("%w: unknown claim type %q", domain.ErrInvalidAward, req.ClaimType)
	}

	points, err := s.resolvePoints(req)
	if err != nil {
		return nil, err
	}

	exists, err := s.participants.Exists(ctx, req.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !exists {
		return nil, domain.ErrUnknownParticipant
	}

	active, err := s.participants.IsActive(ctx, req.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant active state: %w", err)
	}
	if !active {
		return nil, domain.ErrParticipantInactive
	}

	if idempotencyKey != "" {
		acquired, err := s.cache.TryIdempotencyLock(ctx, idempotencyKey, redis.TTLIdempotency)
		if err != nil {
			s.logger.Warn("Idempotency check failed, accepting submission",
				zap.String("participant_id", req.ParticipantID),
				zap.Error(err))
		} else if !acquired {
			return nil, domain.ErrDuplicateSubmission
		}
	}

	claim := &domain.Claim{
		ID:            uuid.NewString(),
		ParticipantID: req.ParticipantID,
		Points:        points,
		ClaimType:     req.ClaimType,
	}

	if err := s.ledger.Append(ctx, claim); err != nil {
		// Nothing was recorded, so the dedupe key must not block a retry
		if idempotencyKey != "" {
			s.cache.ReleaseIdempotencyLock(ctx, idempotencyKey)
		}
		return nil, fmt.Errorf("failed to record claim: %w", err)
	}

	// The ledger write is the source of truth. If the aggregate increment
	// fails the totals lag behind the ledger until reconciliation repairs
	// them, so the claim is still returned.
	if err := s.participants.ApplyClaimDelta(ctx, claim.ParticipantID, claim.Points, 1, claim.CreatedAt); err != nil {
		s.logger.Error("Aggregate update failed after ledger append, flagging for reconciliation",
			zap.String("participant_id", claim.ParticipantID),
			zap.String("claim_id", claim.ID),
			zap.Error(err))
		s.cache.FlagForReconcile(ctx, claim.ParticipantID)
	}

	s.cache.InvalidateRankingCaches(ctx)

	s.logger.Info("Claim recorded",
		zap.String("claim_id", claim.ID),
		zap.String("participant_id", claim.ParticipantID),
		zap.String("claim_type", string(claim.ClaimType)),
		zap.Int("points", claim.Points))

	return claim, nil
}

// Revoke invalidates a claim and reverses the aggregate exactly once.
// Revoking an already-invalid claim returns its current state without
// touching the aggregate, so repeated calls cannot double-decrement.
func (s *ClaimService) Revoke(ctx context.Context, claimID string) (*domain.Claim, error) {
	claim, transitioned, err := s.ledger.Invalidate(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to invalidate claim: %w", err)
	}
	if claim == nil {
		return nil, domain.ErrClaimNotFound
	}
	if !transitioned {
		s.logger.Debug("Claim already invalid, revoke is a no-op",
			zap.String("claim_id", claimID))
		return claim, nil
	}

	now := time.Now()
	if err := s.participants.ApplyClaimDelta(ctx, claim.ParticipantID, -claim.Points, -1, now); err != nil {
		s.logger.Error("Aggregate reversal failed after invalidation, flagging for reconciliation",
			zap.String("participant_id", claim.ParticipantID),
			zap.String("claim_id", claim.ID),
			zap.Error(err))
		s.cache.FlagForReconcile(ctx, claim.ParticipantID)
	}

	s.cache.InvalidateRankingCaches(ctx)

	s.logger.Info("Claim revoked",
		zap.String("claim_id", claim.ID),
		zap.String("participant_id", claim.ParticipantID),
		zap.Int("points", claim.Points))

	return claim, nil
}

// GetClaim retrieves a single claim by id
func (s *ClaimService) GetClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	claim, err := s.ledger.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	if claim == nil {
		return nil, domain.ErrClaimNotFound
	}
	return claim, nil
}

// History returns a participant's valid claims, newest first. A non-zero
// before cursor restarts the sequence from that point.
func (s *ClaimService) History(ctx context.Context, participantID string, limit int, before time.Time) ([]domain.Claim, error) {
	exists, err := s.participants.Exists(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !exists {
		return nil, domain.ErrParticipantNotFound
	}

	claims, err := s.ledger.History(ctx, participantID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim history: %w", err)
	}
	return claims, nil
}

// resolvePoints determines the award magnitude for a submission. Random
// claims may omit points and get a drawn magnitude; every other type must
// supply one.
func (s *ClaimService) resolvePoints(req *domain.ClaimRequest) (int, error) {
	if req.Points == nil {
		if req.ClaimType != domain.ClaimTypeRandom {
			return 0, fmt.Errorf("%w: %s claims require explicit points", domain.ErrInvalidAward, req.ClaimType)
		}
		return s.points.Draw(), nil
	}

	points := *req.Points
	if points < domain.MinClaimPoints || points > domain.MaxClaimPoints {
		return 0, fmt.Errorf("%w: points %d outside [%d, %d]",
			domain.ErrInvalidAward, points, domain.MinClaimPoints, domain.MaxClaimPoints)
	}
	return points, nil
}
