package service

import (
	"math/rand"
	"sync"
	"time"

	"pointsboard/internal/domain"
)

// PointSource supplies award magnitudes for random claims submitted without
// explicit points. It is injected into the ClaimService so tests can supply a
// deterministic sequence.
type PointSource interface {
	Draw() int
}

// randomPointSource draws uniformly from [MinClaimPoints, MaxClaimPoints]
type randomPointSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPointSource creates the production point source
func NewRandomPointSource() PointSource {
	return &randomPointSource{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *randomPointSource) Draw() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.MinClaimPoints + s.rng.Intn(domain.MaxClaimPoints-domain.MinClaimPoints+1)
}
