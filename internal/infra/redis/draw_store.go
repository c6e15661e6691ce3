package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"party-game-engine/internal/domain"
)

// DrawStore keeps the lottery history as an append-only Redis list and the
// exclusion set as a Redis set:
//
//	RPUSH lottery:draws    {record JSON}
//	SADD  lottery:excluded {participantID}
//
// History is never deleted; reset only clears the exclusion set.
type DrawStore struct {
	client *redis.Client
}

func NewDrawStore(client *redis.Client) *DrawStore {
	return &DrawStore{client: client}
}

func (s *DrawStore) AppendDraw(ctx context.Context, record domain.DrawRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal draw record: %w", err)
	}
	if err := s.client.RPush(ctx, s.drawsKey(), payload).Err(); err != nil {
		return fmt.Errorf("append draw record: %w", err)
	}
	return nil
}

func (s *DrawStore) Draws(ctx context.Context) ([]domain.DrawRecord, error) {
	raw, err := s.client.LRange(ctx, s.drawsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read draw history: %w", err)
	}
	out := make([]domain.DrawRecord, 0, len(raw))
	for _, payload := range raw {
		var record domain.DrawRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("unmarshal draw record: %w", err)
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *DrawStore) AddExclusion(ctx context.Context, participantID string) error {
	if err := s.client.SAdd(ctx, s.excludedKey(), participantID).Err(); err != nil {
		return fmt.Errorf("add exclusion: %w", err)
	}
	return nil
}

func (s *DrawStore) Exclusions(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.client.SMembers(ctx, s.excludedKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read exclusions: %w", err)
	}
	out := make(map[string]struct{}, len(members))
	for _, id := range members {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *DrawStore) ClearExclusions(ctx context.Context) error {
	draws, err := s.client.LLen(ctx, s.drawsKey()).Result()
	if err != nil {
		return fmt.Errorf("count draw history: %w", err)
	}
	// Mark first: a crash after the mark only over-resets, never re-excludes.
	if err := s.client.Set(ctx, s.resetMarkKey(), draws, 0).Err(); err != nil {
		return fmt.Errorf("record reset mark: %w", err)
	}
	if err := s.client.Del(ctx, s.excludedKey()).Err(); err != nil {
		return fmt.Errorf("clear exclusions: %w", err)
	}
	return nil
}

func (s *DrawStore) ResetMark(ctx context.Context) (int, error) {
	mark, err := s.client.Get(ctx, s.resetMarkKey()).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read reset mark: %w", err)
	}
	return mark, nil
}

func (s *DrawStore) drawsKey() string {
	return "lottery:draws"
}

func (s *DrawStore) excludedKey() string {
	return "lottery:excluded"
}

func (s *DrawStore) resetMarkKey() string {
	return "lottery:reset_mark"
}
