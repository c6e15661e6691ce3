package memory

import (
	"context"
	"sync"

	"party-game-engine/internal/domain"
)

// EligibilitySource serves content facts from an in-memory map. Useful for
// tests and demo mode; production uses the postgres-backed source.
type EligibilitySource struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewEligibilitySource(counts map[string]int) *EligibilitySource {
	if counts == nil {
		counts = make(map[string]int)
	}
	return &EligibilitySource{counts: counts}
}

// SetCount updates a participant's qualifying content count.
func (s *EligibilitySource) SetCount(participantID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[participantID] = count
}

func (s *EligibilitySource) ContentFacts(_ context.Context) ([]domain.ContentFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	facts := make([]domain.ContentFact, 0, len(s.counts))
	for id, count := range s.counts {
		facts = append(facts, domain.ContentFact{ParticipantID: id, ItemCount: count})
	}
	return facts, nil
}
