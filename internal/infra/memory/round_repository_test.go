package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"party-game-engine/internal/domain"
)

type countingLoader struct {
	RoundLoader
	calls int
}

func (l *countingLoader) LoadRound(ctx context.Context, roundID string) (domain.Round, error) {
	l.calls++
	return l.RoundLoader.LoadRound(ctx, roundID)
}

func TestRoundRepositoryCachesLoads(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{
		RoundLoader: NewStaticRoundLoader(map[string]domain.Round{
			"round-1": {ID: "round-1", TimeLimit: 30 * time.Second},
		}),
	}
	repo := NewRoundRepository(loader, time.Minute)

	if _, err := repo.GetRound(ctx, "round-1"); err != nil {
		t.Fatalf("get round: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	if _, err := repo.GetRound(ctx, "round-1"); err != nil {
		t.Fatalf("get round: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestRoundRepositoryUnknownRound(t *testing.T) {
	repo := NewRoundRepository(NewStaticRoundLoader(nil), time.Minute)
	if _, err := repo.GetRound(context.Background(), "missing"); !errors.Is(err, domain.ErrRoundNotFound) {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}
}
