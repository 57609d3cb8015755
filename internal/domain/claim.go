package domain

import (
	"time"
)

// ClaimType identifies how a point award was produced
type ClaimType string

const (
	ClaimTypeRandom ClaimType = "random"
	ClaimTypeBonus  ClaimType = "bonus"
	ClaimTypeManual ClaimType = "manual"
)

// Award magnitude bounds for a single claim
const (
	MinClaimPoints = 1
	MaxClaimPoints = 10
)

// IsValid reports whether the claim type is one of the known types
func (t ClaimType) IsValid() bool {
	switch t {
	case ClaimTypeRandom, ClaimTypeBonus, ClaimTypeManual:
		return true
	}
	return false
}

// Claim is an immutable record of a point award to one participant.
// The only mutation allowed after creation is the single valid->invalid
// transition performed by revocation.
type Claim struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	Points        int       `json:"points"`
	ClaimType     ClaimType `json:"claim_type"`
	IsValid       bool      `json:"is_valid"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClaimRequest represents a claim submission request
type ClaimRequest struct {
	ParticipantID string    `json:"participant_id"`
	ClaimType     ClaimType `json:"claim_type"`
	Points        *int      `json:"points,omitempty"`
}
