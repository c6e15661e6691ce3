package memory

import (
	"context"
	"sync"

	"party-game-engine/internal/domain"
)

// DrawStore keeps lottery history and the exclusion set in process memory.
type DrawStore struct {
	mu        sync.Mutex
	draws     []domain.DrawRecord
	excluded  map[string]struct{}
	resetMark int
}

func NewDrawStore() *DrawStore {
	return &DrawStore{excluded: make(map[string]struct{})}
}

func (s *DrawStore) AppendDraw(_ context.Context, record domain.DrawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws = append(s.draws, record)
	return nil
}

func (s *DrawStore) Draws(_ context.Context) ([]domain.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DrawRecord, len(s.draws))
	copy(out, s.draws)
	return out, nil
}

func (s *DrawStore) AddExclusion(_ context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excluded[participantID] = struct{}{}
	return nil
}

func (s *DrawStore) Exclusions(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.excluded))
	for id := range s.excluded {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *DrawStore) ClearExclusions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excluded = make(map[string]struct{})
	s.resetMark = len(s.draws)
	return nil
}

func (s *DrawStore) ResetMark(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetMark, nil
}
