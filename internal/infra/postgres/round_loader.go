package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"party-game-engine/internal/domain"
)

// RoundLoader loads round config JSONB from Postgres. Transient store errors
// are retried with exponential backoff here at the boundary; grading never
// retries because it is a pure recomputation.
type RoundLoader struct {
	pool *pgxpool.Pool
}

func NewRoundLoader(pool *pgxpool.Pool) *RoundLoader {
	return &RoundLoader{pool: pool}
}

func (l *RoundLoader) LoadRound(ctx context.Context, roundID string) (domain.Round, error) {
	var raw []byte
	err := retry(ctx, func() error {
		err := l.pool.QueryRow(ctx, `SELECT data FROM rounds WHERE id=$1`, roundID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return backoff.Permanent(domain.ErrRoundNotFound)
		}
		return err
	})
	if errors.Is(err, domain.ErrRoundNotFound) {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	if err != nil {
		return domain.Round{}, fmt.Errorf("load round: %w", err)
	}
	var round domain.Round
	if err := json.Unmarshal(raw, &round); err != nil {
		return domain.Round{}, fmt.Errorf("unmarshal round: %w", err)
	}
	return round, nil
}

// EligibilitySource derives content facts from the content_items table: one
// fact per participant with a count of public, non-deleted items.
type EligibilitySource struct {
	pool *pgxpool.Pool
}

func NewEligibilitySource(pool *pgxpool.Pool) *EligibilitySource {
	return &EligibilitySource{pool: pool}
}

func (s *EligibilitySource) ContentFacts(ctx context.Context) ([]domain.ContentFact, error) {
	var facts []domain.ContentFact
	err := retry(ctx, func() error {
		rows, err := s.pool.Query(ctx, `
			SELECT participant_id, COUNT(*)
			FROM content_items
			WHERE public AND NOT deleted
			GROUP BY participant_id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		facts = facts[:0]
		for rows.Next() {
			var fact domain.ContentFact
			if err := rows.Scan(&fact.ParticipantID, &fact.ItemCount); err != nil {
				return err
			}
			facts = append(facts, fact)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load content facts: %w", err)
	}
	return facts, nil
}

func retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, policy)
}
