package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"party-game-engine/internal/domain"
)

// RoundLoader fetches round configuration from a backing store.
type RoundLoader interface {
	LoadRound(ctx context.Context, roundID string) (domain.Round, error)
}

// RoundRepository caches round configs with TTL to avoid repeated store hits
// while a round is armed and graded. Concurrent misses for the same round are
// collapsed through singleflight.
type RoundRepository struct {
	loader RoundLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedRound
}

type cachedRound struct {
	round     domain.Round
	expiresAt time.Time
}

func NewRoundRepository(loader RoundLoader, ttl time.Duration) *RoundRepository {
	return &RoundRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedRound),
	}
}

func (r *RoundRepository) GetRound(ctx context.Context, roundID string) (domain.Round, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[roundID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.round, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(roundID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[roundID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.round, nil
		}
		r.mu.RUnlock()

		round, err := r.loader.LoadRound(ctx, roundID)
		if err != nil {
			return domain.Round{}, err
		}

		r.mu.Lock()
		r.cache[roundID] = cachedRound{
			round:     round,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return round, nil
	})
	if err != nil {
		return domain.Round{}, err
	}
	return result.(domain.Round), nil
}

func (r *RoundRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticRoundLoader serves rounds from an in-memory map (tests/demos).
type StaticRoundLoader struct {
	rounds map[string]domain.Round
}

func NewStaticRoundLoader(rounds map[string]domain.Round) *StaticRoundLoader {
	return &StaticRoundLoader{rounds: rounds}
}

func (l *StaticRoundLoader) LoadRound(_ context.Context, roundID string) (domain.Round, error) {
	if round, ok := l.rounds[roundID]; ok {
		return round, nil
	}
	return domain.Round{}, domain.ErrRoundNotFound
}
