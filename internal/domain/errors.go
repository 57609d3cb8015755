package domain

import "errors"

// Sentinel errors for the claim and ranking operations. Handlers map these to
// HTTP statuses; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrInvalidAward rejects points outside [MinClaimPoints, MaxClaimPoints]
	// or a malformed claim type, before any write happens.
	ErrInvalidAward = errors.New("invalid award")

	// ErrUnknownParticipant rejects claims for participants the directory
	// does not know.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrParticipantInactive rejects claims for deactivated participants.
	ErrParticipantInactive = errors.New("participant is inactive")

	// ErrClaimNotFound reports operations referencing a nonexistent claim id.
	ErrClaimNotFound = errors.New("claim not found")

	// ErrParticipantNotFound reports read operations referencing a
	// nonexistent participant id.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrDuplicateSubmission reports a claim submission replayed under the
	// same idempotency key within the dedupe window.
	ErrDuplicateSubmission = errors.New("duplicate claim submission")
)
