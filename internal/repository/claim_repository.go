package repository

import (
	"context"
	"fmt"
	"time"

	"pointsboard/internal/domain"
	"pointsboard/pkg/database"

	"github.com/jackc/pgx/v5"
)

// ClaimRepository is the Postgres-backed ledger store
type ClaimRepository struct {
	db *database.PostgresDB
}

func NewClaimRepository(db *database.PostgresDB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Append inserts a new claim record
func (r *ClaimRepository) Append(ctx context.Context, claim *domain.Claim) error {
	query := `
		INSERT INTO claims (id, participant_id, points, claim_type, is_valid)
		VALUES ($1, $2, $3, $4, true)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		claim.ID,
		claim.ParticipantID,
		claim.Points,
		claim.ClaimType,
	).Scan(&claim.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append claim: %w", err)
	}
	claim.IsValid = true

	return nil
}

// GetByID gets a claim by id
func (r *ClaimRepository) GetByID(ctx context.Context, claimID string) (*domain.Claim, error) {
	var claim domain.Claim
	query := `
		SELECT id, participant_id, points, claim_type, is_valid, created_at
		FROM claims
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, claimID).Scan(
		&claim.ID,
		&claim.ParticipantID,
		&claim.Points,
		&claim.ClaimType,
		&claim.IsValid,
		&claim.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return &claim, nil
}

// Invalidate flips is_valid to false exactly once. The UPDATE's WHERE clause
// carries the is_valid guard, so two concurrent calls can both succeed but
// only one observes the transition.
func (r *ClaimRepository) Invalidate(ctx context.Context, claimID string) (*domain.Claim, bool, error) {
	var claim domain.Claim
	query := `
		UPDATE claims
		SET is_valid = false
		WHERE id = $1 AND is_valid = true
		RETURNING id, participant_id, points, claim_type, is_valid, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, claimID).Scan(
		&claim.ID,
		&claim.ParticipantID,
		&claim.Points,
		&claim.ClaimType,
		&claim.IsValid,
		&claim.CreatedAt,
	)

	if err == nil {
		return &claim, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, fmt.Errorf("failed to invalidate claim: %w", err)
	}

	// Either the claim does not exist or it was already invalid
	existing, err := r.GetByID(ctx, claimID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// History gets the participant's valid claims, newest first
func (r *ClaimRepository) History(ctx context.Context, participantID string, limit int, before time.Time) ([]domain.Claim, error) {
	query := `
		SELECT id, participant_id, points, claim_type, is_valid, created_at
		FROM claims
		WHERE participant_id = $1 AND is_valid = true
	`
	args := []interface{}{participantID}

	if !before.IsZero() {
		query += ` AND created_at < $2`
		args = append(args, before)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim history: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// InWindow gets all valid claims created within [start, end]
func (r *ClaimRepository) InWindow(ctx context.Context, start, end time.Time) ([]domain.Claim, error) {
	query := `
		SELECT id, participant_id, points, claim_type, is_valid, created_at
		FROM claims
		WHERE is_valid = true AND created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims in window: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// AggregateFor sums the participant's valid claims directly from the ledger
func (r *ClaimRepository) AggregateFor(ctx context.Context, participantID string) (int, int, error) {
	var points, claims int
	query := `
		SELECT COALESCE(SUM(points), 0), COUNT(*)
		FROM claims
		WHERE participant_id = $1 AND is_valid = true
	`

	err := r.db.Pool.QueryRow(ctx, query, participantID).Scan(&points, &claims)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate claims: %w", err)
	}

	return points, claims, nil
}

func scanClaims(rows pgx.Rows) ([]domain.Claim, error) {
	var claims []domain.Claim
	for rows.Next() {
		var claim domain.Claim
		err := rows.Scan(
			&claim.ID,
			&claim.ParticipantID,
			&claim.Points,
			&claim.ClaimType,
			&claim.IsValid,
			&claim.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}
