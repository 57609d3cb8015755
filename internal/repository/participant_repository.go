package repository

import (
	"context"
	"fmt"
	"time"

	"pointsboard/internal/domain"
	"pointsboard/pkg/database"

	"github.com/jackc/pgx/v5"
)

// ParticipantRepository is the Postgres-backed participant store. Participant
// rows are created by the external registration flow; this repository only
// reads them and adjusts the aggregate columns.
type ParticipantRepository struct {
	db *database.PostgresDB
}

func NewParticipantRepository(db *database.PostgresDB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// GetByID gets a participant by id
func (r *ParticipantRepository) GetByID(ctx context.Context, participantID string) (*domain.Participant, error) {
	var p domain.Participant
	query := `
		SELECT id, name, email, total_points, claims_count, is_active, last_activity, created_at
		FROM participants
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, participantID).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.TotalPoints,
		&p.ClaimsCount,
		&p.IsActive,
		&p.LastActivity,
		&p.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return &p, nil
}

// Exists checks whether the participant id is known to the directory
func (r *ParticipantRepository) Exists(ctx context.Context, participantID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM participants WHERE id = $1)`

	if err := r.db.Pool.QueryRow(ctx, query, participantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check participant existence: %w", err)
	}

	return exists, nil
}

// IsActive checks whether the participant is active
func (r *ParticipantRepository) IsActive(ctx context.Context, participantID string) (bool, error) {
	var active bool
	query := `SELECT is_active FROM participants WHERE id = $1`

	err := r.db.Pool.QueryRow(ctx, query, participantID).Scan(&active)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check participant active state: %w", err)
	}

	return active, nil
}

// CreatedAt returns the participant's registration time
func (r *ParticipantRepository) CreatedAt(ctx context.Context, participantID string) (time.Time, error) {
	var created time.Time
	query := `SELECT created_at FROM participants WHERE id = $1`

	err := r.db.Pool.QueryRow(ctx, query, participantID).Scan(&created)
	if err == pgx.ErrNoRows {
		return time.Time{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get participant creation time: %w", err)
	}

	return created, nil
}

// ApplyClaimDelta adjusts the aggregate columns with a single increment
// statement, so concurrent deltas for the same participant compose at the
// database rather than through read-modify-write in the application.
func (r *ParticipantRepository) ApplyClaimDelta(ctx context.Context, participantID string, points, claims int, activity time.Time) error {
	query := `
		UPDATE participants
		SET total_points = total_points + $2,
		    claims_count = claims_count + $3,
		    last_activity = GREATEST(last_activity, $4)
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, participantID, points, claims, activity)
	if err != nil {
		return fmt.Errorf("failed to apply claim delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}

	return nil
}

// SetAggregates overwrites the aggregate columns with reconciled values
func (r *ParticipantRepository) SetAggregates(ctx context.Context, participantID string, totalPoints, claimsCount int) error {
	query := `
		UPDATE participants
		SET total_points = $2,
		    claims_count = $3
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, participantID, totalPoints, claimsCount)
	if err != nil {
		return fmt.Errorf("failed to set aggregates: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}

	return nil
}

// ListActive returns active participants in leaderboard order
func (r *ParticipantRepository) ListActive(ctx context.Context) ([]domain.Participant, error) {
	query := `
		SELECT id, name, email, total_points, claims_count, is_active, last_activity, created_at
		FROM participants
		WHERE is_active = true
		ORDER BY total_points DESC, created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Email,
			&p.TotalPoints,
			&p.ClaimsCount,
			&p.IsActive,
			&p.LastActivity,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// ListIDs returns every participant id, active or not
func (r *ParticipantRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id FROM participants`)
	if err != nil {
		return nil, fmt.Errorf("failed to list participant ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
