package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pointsboard/internal/domain"
)

// MemoryLedger is an in-process LedgerStore. It backs local development
// without Postgres and carries the service-level tests.
type MemoryLedger struct {
	mu     sync.Mutex
	claims map[string]*domain.Claim
	order  []string // claim ids in insertion order, for deterministic iteration
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		claims: make(map[string]*domain.Claim),
	}
}

func (s *MemoryLedger) Append(ctx context.Context, claim *domain.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now()
	}
	claim.IsValid = true

	cp := *claim
	s.claims[claim.ID] = &cp
	s.order = append(s.order, claim.ID)
	return nil
}

func (s *MemoryLedger) GetByID(ctx context.Context, claimID string) (*domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return nil, nil
	}
	cp := *claim
	return &cp, nil
}

func (s *MemoryLedger) Invalidate(ctx context.Context, claimID string) (*domain.Claim, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return nil, false, nil
	}

	transitioned := claim.IsValid
	claim.IsValid = false

	cp := *claim
	return &cp, transitioned, nil
}

func (s *MemoryLedger) History(ctx context.Context, participantID string, limit int, before time.Time) ([]domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claims []domain.Claim
	for _, id := range s.order {
		claim := s.claims[id]
		if claim.ParticipantID != participantID || !claim.IsValid {
			continue
		}
		if !before.IsZero() && !claim.CreatedAt.Before(before) {
			continue
		}
		claims = append(claims, *claim)
	}

	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].CreatedAt.After(claims[j].CreatedAt)
	})

	if limit > 0 && len(claims) > limit {
		claims = claims[:limit]
	}
	return claims, nil
}

func (s *MemoryLedger) InWindow(ctx context.Context, start, end time.Time) ([]domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claims []domain.Claim
	for _, id := range s.order {
		claim := s.claims[id]
		if !claim.IsValid {
			continue
		}
		if claim.CreatedAt.Before(start) || claim.CreatedAt.After(end) {
			continue
		}
		claims = append(claims, *claim)
	}

	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].CreatedAt.After(claims[j].CreatedAt)
	})
	return claims, nil
}

func (s *MemoryLedger) AggregateFor(ctx context.Context, participantID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var points, count int
	for _, claim := range s.claims {
		if claim.ParticipantID == participantID && claim.IsValid {
			points += claim.Points
			count++
		}
	}
	return points, count, nil
}

// MemoryParticipants is an in-process ParticipantStore. Aggregate deltas
// happen under the store mutex, so each delta is a single indivisible update
// just like the SQL increment.
type MemoryParticipants struct {
	mu           sync.Mutex
	participants map[string]*domain.Participant
}

func NewMemoryParticipants() *MemoryParticipants {
	return &MemoryParticipants{
		participants: make(map[string]*domain.Participant),
	}
}

// Add seeds a participant row. Registration is external to the service, so
// only the memory store and the migrate tool create participants.
func (s *MemoryParticipants) Add(p domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.participants[p.ID] = &cp
}

func (s *MemoryParticipants) GetByID(ctx context.Context, participantID string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryParticipants) Exists(ctx context.Context, participantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.participants[participantID]
	return ok, nil
}

func (s *MemoryParticipants) IsActive(ctx context.Context, participantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return false, nil
	}
	return p.IsActive, nil
}

func (s *MemoryParticipants) CreatedAt(ctx context.Context, participantID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return time.Time{}, domain.ErrParticipantNotFound
	}
	return p.CreatedAt, nil
}

func (s *MemoryParticipants) ApplyClaimDelta(ctx context.Context, participantID string, points, claims int, activity time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}

	p.TotalPoints += points
	p.ClaimsCount += claims
	if activity.After(p.LastActivity) {
		p.LastActivity = activity
	}
	return nil
}

func (s *MemoryParticipants) SetAggregates(ctx context.Context, participantID string, totalPoints, claimsCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}

	p.TotalPoints = totalPoints
	p.ClaimsCount = claimsCount
	return nil
}

func (s *MemoryParticipants) ListActive(ctx context.Context) ([]domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var participants []domain.Participant
	for _, p := range s.participants {
		if p.IsActive {
			participants = append(participants, *p)
		}
	}

	sort.SliceStable(participants, func(i, j int) bool {
		if participants[i].TotalPoints != participants[j].TotalPoints {
			return participants[i].TotalPoints > participants[j].TotalPoints
		}
		return participants[i].CreatedAt.Before(participants[j].CreatedAt)
	})
	return participants, nil
}

func (s *MemoryParticipants) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
