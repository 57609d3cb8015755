package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pointsboard/internal/domain"
	"pointsboard/internal/repository"

	"go.uber.org/zap"
)

// ReconcileResult reports what a reconciliation run did to one participant
type ReconcileResult struct {
	ParticipantID string `json:"participant_id"`
	Repaired      bool   `json:"repaired"`
	TotalPoints   int    `json:"total_points"`
	ClaimsCount   int    `json:"claims_count"`
}

// ReconcileService restores the aggregate invariant by recomputing totals
// straight from the ledger. It is safe to run at any time, on any schedule,
// concurrently with live traffic: it re-derives, it never assumes exclusive
// access. Drift is logged and repaired, never surfaced to callers.
type ReconcileService struct {
	ledger       repository.LedgerStore
	participants repository.ParticipantStore
	cache        *CacheService
	logger       *zap.Logger
	interval     time.Duration

	ticker    *time.Ticker
	stopSweep chan struct{}
	mu        sync.Mutex
	isRunning bool
}

func NewReconcileService(ledger repository.LedgerStore, participants repository.ParticipantStore, cache *CacheService, logger *zap.Logger, interval time.Duration) *ReconcileService {
	return &ReconcileService{
		ledger:       ledger,
		participants: participants,
		cache:        cache,
		logger:       logger,
		interval:     interval,
	}
}

// Start begins the periodic sweep over flagged participants
func (s *ReconcileService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	// Each run gets a fresh stop channel; the previous one was closed by
	// Stop and cannot be reused.
	s.ticker = time.NewTicker(s.interval)
	s.stopSweep = make(chan struct{})
	go s.sweepRoutine(ctx, s.ticker, s.stopSweep)

	s.isRunning = true
	s.logger.Info("Reconciliation sweep started",
		zap.Duration("interval", s.interval))
	return nil
}

// Stop shuts down the periodic sweep
func (s *ReconcileService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.ticker.Stop()
	close(s.stopSweep)

	s.isRunning = false
	s.logger.Info("Reconciliation sweep stopped")
	return nil
}

// ReconcileParticipant resets one participant's aggregates to the sum and
// count of their valid ledger entries. Idempotent: running it against an
// already-consistent aggregate changes nothing.
func (s *ReconcileService) ReconcileParticipant(ctx context.Context, participantID string) (*ReconcileResult, error) {
	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if p == nil {
		return nil, domain.ErrParticipantNotFound
	}

	points, claims, err := s.ledger.AggregateFor(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger: %w", err)
	}

	result := &ReconcileResult{
		ParticipantID: participantID,
		TotalPoints:   points,
		ClaimsCount:   claims,
	}

	if p.TotalPoints == points && p.ClaimsCount == claims {
		s.cache.ClearReconciled(ctx, participantID)
		return result, nil
	}

	// Aggregate drift: the displayed totals disagree with the ledger.
	// Repair and log; this is never a caller-facing failure.
	s.logger.Warn("Aggregate inconsistency detected, repairing from ledger",
		zap.String("participant_id", participantID),
		zap.Int("aggregate_points", p.TotalPoints),
		zap.Int("ledger_points", points),
		zap.Int("aggregate_claims", p.ClaimsCount),
		zap.Int("ledger_claims", claims))

	if err := s.participants.SetAggregates(ctx, participantID, points, claims); err != nil {
		return nil, fmt.Errorf("failed to repair aggregates: %w", err)
	}

	result.Repaired = true
	s.cache.ClearReconciled(ctx, participantID)
	s.cache.InvalidateRankingCaches(ctx)

	return result, nil
}

// ReconcileAll sweeps every participant, active or not
func (s *ReconcileService) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	ids, err := s.participants.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	var repaired []ReconcileResult
	for _, id := range ids {
		result, err := s.ReconcileParticipant(ctx, id)
		if err != nil {
			s.logger.Error("Reconciliation failed for participant",
				zap.String("participant_id", id),
				zap.Error(err))
			continue
		}
		if result.Repaired {
			repaired = append(repaired, *result)
		}
	}

	s.logger.Info("Full reconciliation sweep completed",
		zap.Int("participants", len(ids)),
		zap.Int("repaired", len(repaired)))

	return repaired, nil
}

// sweepRoutine periodically repairs participants flagged after failed
// aggregate updates
func (s *ReconcileService) sweepRoutine(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			for _, id := range s.cache.PendingReconcile(ctx) {
				if _, err := s.ReconcileParticipant(ctx, id); err != nil {
					s.logger.Error("Failed to reconcile flagged participant",
						zap.String("participant_id", id),
						zap.Error(err))
				}
			}
		case <-stop:
			s.logger.Debug("Reconciliation routine stopped")
			return
		case <-ctx.Done():
			s.logger.Debug("Reconciliation routine cancelled")
			return
		}
	}
}
