package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pointsboard/internal/domain"
	"pointsboard/internal/repository"
	"pointsboard/pkg/redis"
)

// stubPointSource replays a fixed sequence of draws
type stubPointSource struct {
	values []int
	next   int
}

func (s *stubPointSource) Draw() int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func intPtr(v int) *int {
	return &v
}

type claimFixture struct {
	service      *ClaimService
	ledger       *repository.MemoryLedger
	participants *repository.MemoryParticipants
	points       *stubPointSource
}

// newClaimFixture wires a ClaimService over in-memory stores with no Redis.
// The cache degrades to no-ops, so every submission is treated as new.
func newClaimFixture(t *testing.T, draws ...int) *claimFixture {
	t.Helper()

	if len(draws) == 0 {
		draws = []int{7}
	}

	ledger := repository.NewMemoryLedger()
	participants := repository.NewMemoryParticipants()
	points := &stubPointSource{values: draws}
	cache := NewCacheService(nil, zap.NewNop())

	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	participants.Add(domain.Participant{ID: "p1", Name: "Alice", IsActive: true, CreatedAt: created, LastActivity: created})
	participants.Add(domain.Participant{ID: "p2", Name: "Bruno", IsActive: true, CreatedAt: created.Add(time.Hour), LastActivity: created})
	participants.Add(domain.Participant{ID: "gone", Name: "Ghost", IsActive: false, CreatedAt: created, LastActivity: created})

	return &claimFixture{
		service:      NewClaimService(ledger, participants, cache, points, zap.NewNop()),
		ledger:       ledger,
		participants: participants,
		points:       points,
	}
}

func (f *claimFixture) mustSubmit(t *testing.T, participantID string, points int) *domain.Claim {
	t.Helper()
	claim, err := f.service.Submit(context.Background(), &domain.ClaimRequest{
		ParticipantID: participantID,
		ClaimType:     domain.ClaimTypeBonus,
		Points:        intPtr(points),
	}, "")
	require.NoError(t, err)
	return claim
}

func TestClaimService_Submit_UpdatesAggregates(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	f.mustSubmit(t, "p1", 5)
	f.mustSubmit(t, "p1", 3)
	f.mustSubmit(t, "p1", 2)

	p, err := f.participants.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.TotalPoints)
	assert.Equal(t, 3, p.ClaimsCount)
}

func TestClaimService_Submit_RandomDrawsPoints(t *testing.T) {
	f := newClaimFixture(t, 4)
	ctx := context.Background()

	claim, err := f.service.Submit(ctx, &domain.ClaimRequest{
		ParticipantID: "p1",
		ClaimType:     domain.ClaimTypeRandom,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 4, claim.Points)
	assert.Equal(t, domain.ClaimTypeRandom, claim.ClaimType)
	assert.True(t, claim.IsValid)

	p, err := f.participants.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, p.TotalPoints)
	assert.Equal(t, 1, p.ClaimsCount)
}

func TestClaimService_Submit_RandomAcceptsExplicitPoints(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.service.Submit(context.Background(), &domain.ClaimRequest{
		ParticipantID: "p1",
		ClaimType:     domain.ClaimTypeRandom,
		Points:        intPtr(9),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 9, claim.Points)
}

func TestClaimService_Submit_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     *domain.ClaimRequest
		wantErr error
	}{
		{
			name:    "unknown claim type",
			req:     &domain.ClaimRequest{ParticipantID: "p1", ClaimType: "jackpot", Points: intPtr(5)},
			wantErr: domain.ErrInvalidAward,
		},
		{
			name:    "bonus without points",
			req:     &domain.ClaimRequest{ParticipantID: "p1", ClaimType: domain.ClaimTypeBonus},
			wantErr: domain.ErrInvalidAward,
		},
		{
			name:    "manual without points",
			req:     &domain.ClaimRequest{ParticipantID: "p1", ClaimType: domain.ClaimTypeManual},
			wantErr: domain.ErrInvalidAward,
		},
		{
			name:    "points below minimum",
			req:     &domain.ClaimRequest{ParticipantID: "p1", ClaimType: domain.ClaimTypeBonus, Points: intPtr(0)},
			wantErr: domain.ErrInvalidAward,
		},
		{
			name:    "points above maximum",
			req:     &domain.ClaimRequest{ParticipantID: "p1", ClaimType: domain.ClaimTypeBonus, Points: intPtr(11)},
			wantErr: domain.ErrInvalidAward,
		},
		{
			name:    "unknown participant",
			req:     &domain.ClaimRequest{ParticipantID: "nobody", ClaimType: domain.ClaimTypeBonus, Points: intPtr(5)},
			wantErr: domain.ErrUnknownParticipant,
		},
		{
			name:    "inactive participant",
			req:     &domain.ClaimRequest{ParticipantID: "gone", ClaimType: domain.ClaimTypeBonus, Points: intPtr(5)},
			wantErr: domain.ErrParticipantInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClaimFixture(t)

			claim, err := f.service.Submit(context.Background(), tt.req, "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claim)

			// Rejected submissions must not touch the ledger
			history, err := f.ledger.History(context.Background(), "p1", 10, time.Time{})
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestClaimService_Revoke(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	f.mustSubmit(t, "p1", 5)
	f.mustSubmit(t, "p1", 3)
	target := f.mustSubmit(t, "p1", 2)

	revoked, err := f.service.Revoke(ctx, target.ID)
	require.NoError(t, err)
	assert.False(t, revoked.IsValid)
	assert.Equal(t, 2, revoked.Points)

	p, err := f.participants.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 8, p.TotalPoints)
	assert.Equal(t, 2, p.ClaimsCount)
}

func TestClaimService_Revoke_Idempotent(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	target := f.mustSubmit(t, "p1", 5)
	f.mustSubmit(t, "p1", 3)

	_, err := f.service.Revoke(ctx, target.ID)
	require.NoError(t, err)

	// Second revoke returns the claim but reverses nothing
	again, err := f.service.Revoke(ctx, target.ID)
	require.NoError(t, err)
	assert.False(t, again.IsValid)

	p, err := f.participants.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalPoints)
	assert.Equal(t, 1, p.ClaimsCount)
}

func TestClaimService_Revoke_NotFound(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.service.Revoke(context.Background(), "no-such-claim")
	assert.ErrorIs(t, err, domain.ErrClaimNotFound)
	assert.Nil(t, claim)
}

func TestClaimService_GetClaim(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	submitted := f.mustSubmit(t, "p1", 5)

	claim, err := f.service.GetClaim(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, claim.ID)

	_, err = f.service.GetClaim(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrClaimNotFound)
}

func TestClaimService_History(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	f.mustSubmit(t, "p1", 1)
	f.mustSubmit(t, "p1", 2)
	f.mustSubmit(t, "p2", 9)

	claims, err := f.service.History(ctx, "p1", 10, time.Time{})
	require.NoError(t, err)
	assert.Len(t, claims, 2)

	_, err = f.service.History(ctx, "nobody", 10, time.Time{})
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)
}

func TestClaimService_Submit_IdempotencyKey(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	ledger := repository.NewMemoryLedger()
	participants := repository.NewMemoryParticipants()
	participants.Add(domain.Participant{ID: "p1", IsActive: true, CreatedAt: time.Now()})

	cache := NewCacheService(client, zap.NewNop())
	svc := NewClaimService(ledger, participants, cache, &stubPointSource{values: []int{5}}, zap.NewNop())

	ctx := context.Background()
	req := &domain.ClaimRequest{ParticipantID: "p1", ClaimType: domain.ClaimTypeBonus, Points: intPtr(5)}

	first, err := svc.Submit(ctx, req, "req-123")
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same key within the dedupe window is rejected before any write
	dup, err := svc.Submit(ctx, req, "req-123")
	assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	assert.Nil(t, dup)

	points, count, err := ledger.AggregateFor(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, points)
	assert.Equal(t, 1, count)

	// A different key is a new submission
	second, err := svc.Submit(ctx, req, "req-456")
	require.NoError(t, err)
	require.NotNil(t, second)

	// After the dedupe window expires the key can be reused
	mr.FastForward(2 * time.Hour)
	third, err := svc.Submit(ctx, req, "req-123")
	require.NoError(t, err)
	require.NotNil(t, third)
}

// failingLedger rejects the first n appends before delegating
type failingLedger struct {
	*repository.MemoryLedger
	failAppends int
	mu          sync.Mutex
}

func (l *failingLedger) Append(ctx context.Context, claim *domain.Claim) error {
	l.mu.Lock()
	fail := l.failAppends > 0
	if fail {
		l.failAppends--
	}
	l.mu.Unlock()
	if fail {
		return errors.New("ledger store unavailable")
	}
	return l.MemoryLedger.Append(ctx, claim)
}

func TestClaimService_Submit_AppendFailureFreesIdempotencyKey(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	ledger := &failingLedger{MemoryLedger: repository.NewMemoryLedger(), failAppends: 1}
	participants := repository.NewMemoryParticipants()
	participants.Add(domain.Participant{ID: "p1", IsActive: true, CreatedAt: time.Now()})

	cache := NewCacheService(client, zap.NewNop())
	svc := NewClaimService(ledger, participants, cache, &stubPointSource{values: []int{5}}, zap.NewNop())

	ctx := context.Background()
	req := &domain.ClaimRequest{ParticipantID: "p1", ClaimType: domain.ClaimTypeBonus, Points: intPtr(5)}

	// The append fails after the dedupe key is taken; nothing was recorded
	_, err = svc.Submit(ctx, req, "req-123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateSubmission)

	// A retry carrying the same key must not be rejected as a replay
	claim, err := svc.Submit(ctx, req, "req-123")
	require.NoError(t, err)
	require.NotNil(t, claim)

	points, count, err := ledger.AggregateFor(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, points)
	assert.Equal(t, 1, count)
}

func TestClaimService_ConcurrentSubmitAndRevoke(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	const workers = 50
	claims := make([]*domain.Claim, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claim, err := f.service.Submit(ctx, &domain.ClaimRequest{
				ParticipantID: "p1",
				ClaimType:     domain.ClaimTypeBonus,
				Points:        intPtr(i%domain.MaxClaimPoints + 1),
			}, "")
			if err != nil {
				t.Errorf("Submit() error = %v", err)
				return
			}
			claims[i] = claim
		}(i)
	}
	wg.Wait()

	// Revoke every other claim, racing two revokes per claim so the
	// reversal must land exactly once
	for i := 0; i < workers; i += 2 {
		claim := claims[i]
		if claim == nil {
			continue
		}
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := f.service.Revoke(ctx, id); err != nil {
					t.Errorf("Revoke() error = %v", err)
				}
			}(claim.ID)
		}
	}
	wg.Wait()

	points, count, err := f.ledger.AggregateFor(ctx, "p1")
	require.NoError(t, err)

	p, err := f.participants.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, points, p.TotalPoints)
	assert.Equal(t, count, p.ClaimsCount)
	assert.Equal(t, workers/2, p.ClaimsCount)
}

func TestRandomPointSource_Bounds(t *testing.T) {
	source := NewRandomPointSource()

	for i := 0; i < 1000; i++ {
		points := source.Draw()
		if points < domain.MinClaimPoints || points > domain.MaxClaimPoints {
			t.Fatalf("Draw() = %d, want within [%d, %d]", points, domain.MinClaimPoints, domain.MaxClaimPoints)
		}
	}
}
