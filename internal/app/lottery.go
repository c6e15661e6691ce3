package app

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"party-game-engine/internal/domain"
)

// Lottery performs duplicate-safe random draws over the dynamically-eligible
// population. Eligibility is recomputed per draw from content facts; the
// exclusion set and the append-only draw history live in the DrawStore.
//
// The draw commits its DrawRecord before touching the exclusion set, and
// Restore re-derives exclusions from committed records, so a crash between
// "pick" and "record" can never surface two different winners on retry.
type Lottery struct {
	mu       sync.Mutex
	store    DrawStore
	source   EligibilitySource
	policy   domain.ExclusionPolicy
	weighted bool
	clock    func() time.Time
	hub      *Hub
}

func NewLottery(store DrawStore, source EligibilitySource, policy domain.ExclusionPolicy, weighted bool, hub *Hub) *Lottery {
	return &Lottery{
		store:    store,
		source:   source,
		policy:   policy,
		weighted: weighted,
		clock:    time.Now,
		hub:      hub,
	}
}

// Restore reconciles the exclusion set with the committed draw history, so a
// crash between "record the draw" and "exclude the winner" never re-admits a
// winner. All-time replays every recorded winner; current replays only the
// winners drawn since the last reset mark.
func (l *Lottery) Restore(ctx context.Context) error {
	if l.policy == domain.ExclusionNone {
		return nil
	}
	draws, err := l.store.Draws(ctx)
	if err != nil {
		return fmt.Errorf("restore draw history: %w", err)
	}
	if l.policy == domain.ExclusionCurrent {
		mark, err := l.store.ResetMark(ctx)
		if err != nil {
			return fmt.Errorf("restore reset mark: %w", err)
		}
		if mark > len(draws) {
			mark = len(draws)
		}
		draws = draws[mark:]
	}
	for _, record := range draws {
		if err := l.store.AddExclusion(ctx, record.WinnerID); err != nil {
			return fmt.Errorf("restore exclusion: %w", err)
		}
	}
	return nil
}

// EligiblePool returns the facts for participants with at least one
// qualifying public content item who are not in the exclusion set, ordered by
// participant id for deterministic seeded draws.
func (l *Lottery) EligiblePool(ctx context.Context) ([]domain.ContentFact, error) {
	facts, err := l.source.ContentFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load content facts: %w", err)
	}
	excluded, err := l.store.Exclusions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}

	pool := make([]domain.ContentFact, 0, len(facts))
	for _, fact := range facts {
		if fact.ItemCount < 1 {
			continue
		}
		if _, out := excluded[fact.ParticipantID]; out {
			continue
		}
		pool = append(pool, fact)
	}
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].ParticipantID < pool[j].ParticipantID
	})
	return pool, nil
}

// Draw picks one winner from the eligible pool, appends the DrawRecord and,
// per policy, adds the winner to the exclusion set. Content count gates
// eligibility only; it becomes the selection weight only when the weighting
// policy is on.
func (l *Lottery) Draw(ctx context.Context, seed int64) (domain.DrawRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pool, err := l.EligiblePool(ctx)
	if err != nil {
		return domain.DrawRecord{}, err
	}
	if len(pool) == 0 {
		return domain.DrawRecord{}, domain.ErrEmptyPool
	}

	rng := rand.New(rand.NewSource(seed))
	winner := pool[l.pick(rng, pool)]

	poolIDs := make([]string, len(pool))
	for i, fact := range pool {
		poolIDs[i] = fact.ParticipantID
	}
	record := domain.DrawRecord{
		DrawID:   uuid.NewString(),
		WinnerID: winner.ParticipantID,
		DrawnAt:  l.clock(),
		Pool:     poolIDs,
	}

	if err := l.store.AppendDraw(ctx, record); err != nil {
		return domain.DrawRecord{}, fmt.Errorf("append draw record: %w", err)
	}
	if l.policy != domain.ExclusionNone {
		if err := l.store.AddExclusion(ctx, record.WinnerID); err != nil {
			return domain.DrawRecord{}, fmt.Errorf("exclude winner: %w", err)
		}
	}

	l.hub.Publish(NewEvent(EventLotteryDrawn, map[string]any{
		"winner": record.WinnerID,
		"drawId": record.DrawID,
	}))
	return record, nil
}

func (l *Lottery) pick(rng *rand.Rand, pool []domain.ContentFact) int {
	if !l.weighted {
		return rng.Intn(len(pool))
	}
	total := 0
	for _, fact := range pool {
		total += fact.ItemCount
	}
	ticket := rng.Intn(total)
	for i, fact := range pool {
		ticket -= fact.ItemCount
		if ticket < 0 {
			return i
		}
	}
	return len(pool) - 1
}

// Reset clears the exclusion set. Draw history is permanent; only future
// eligibility changes.
func (l *Lottery) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.ClearExclusions(ctx); err != nil {
		return fmt.Errorf("clear exclusions: %w", err)
	}
	return nil
}

// History returns the committed draw records, oldest first.
func (l *Lottery) History(ctx context.Context) ([]domain.DrawRecord, error) {
	return l.store.Draws(ctx)
}
