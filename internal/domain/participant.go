package domain

import (
	"time"
)

// Participant carries the directory fields the ledger depends on plus the
// derived aggregate fields. Registration and profile management live outside
// this service; only TotalPoints, ClaimsCount and LastActivity are mutated
// here.
type Participant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	TotalPoints  int       `json:"total_points"`
	ClaimsCount  int       `json:"claims_count"`
	IsActive     bool      `json:"is_active"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}
