package repository

import (
	"context"
	"time"

	"pointsboard/internal/domain"
)

// LedgerStore is the append-mostly log of claims: the source of truth for how
// many points a participant ever legitimately earned.
type LedgerStore interface {
	// Append inserts a new immutable claim. The store fills CreatedAt.
	Append(ctx context.Context, claim *domain.Claim) error

	// GetByID retrieves a claim by id, returning (nil, nil) when it does
	// not exist.
	GetByID(ctx context.Context, claimID string) (*domain.Claim, error)

	// Invalidate sets is_valid=false exactly once. It returns the claim
	// and whether this call performed the valid->invalid transition;
	// invalidating an already-invalid claim is a no-op returning current
	// state. Returns (nil, false, nil) when the claim does not exist.
	Invalidate(ctx context.Context, claimID string) (*domain.Claim, bool, error)

	// History returns the participant's valid claims ordered by CreatedAt
	// descending. A non-zero before restricts to claims strictly older
	// than it, which makes the sequence restartable from any point.
	History(ctx context.Context, participantID string, limit int, before time.Time) ([]domain.Claim, error)

	// InWindow returns all valid claims with CreatedAt in [start, end].
	InWindow(ctx context.Context, start, end time.Time) ([]domain.Claim, error)

	// AggregateFor sums points and counts entries over the participant's
	// valid claims, straight from the ledger. Reconciliation reads this.
	AggregateFor(ctx context.Context, participantID string) (points int, claims int, err error)
}

// ParticipantDirectory is the read surface the core consumes from the
// externally-owned participant registry.
type ParticipantDirectory interface {
	Exists(ctx context.Context, participantID string) (bool, error)
	IsActive(ctx context.Context, participantID string) (bool, error)
	CreatedAt(ctx context.Context, participantID string) (time.Time, error)
}

// ParticipantStore maintains the per-participant aggregate view over the
// ledger and serves the ranking reads.
type ParticipantStore interface {
	ParticipantDirectory

	// GetByID retrieves a participant by id, returning (nil, nil) when it
	// does not exist.
	GetByID(ctx context.Context, participantID string) (*domain.Participant, error)

	// ApplyClaimDelta adjusts TotalPoints by points and ClaimsCount by
	// claims in a single atomic increment at the storage layer, and
	// advances LastActivity to activity. Concurrent deltas for the same
	// participant must compose without lost updates.
	ApplyClaimDelta(ctx context.Context, participantID string, points, claims int, activity time.Time) error

	// SetAggregates overwrites TotalPoints and ClaimsCount. Only the
	// reconciliation path calls this.
	SetAggregates(ctx context.Context, participantID string, totalPoints, claimsCount int) error

	// ListActive returns all active participants ordered by TotalPoints
	// descending, then CreatedAt ascending. This is the one snapshot both
	// ranking views derive from.
	ListActive(ctx context.Context) ([]domain.Participant, error)

	// ListIDs returns the ids of every participant, active or not, for
	// the reconciliation sweep.
	ListIDs(ctx context.Context) ([]string, error)
}
