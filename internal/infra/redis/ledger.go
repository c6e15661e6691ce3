package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"party-game-engine/internal/domain"
)

// Ledger stores submissions in Redis, one hash per round:
//
//	HSETNX round:{roundID}:submissions {participantID} {submission JSON}
//
// HSETNX is the atomic insert-if-absent: of two racing submissions for the
// same (participant, round) pair exactly one observes a successful set.
type Ledger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLedger(client *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{client: client, ttl: ttl}
}

func (l *Ledger) Append(ctx context.Context, round domain.Round, participantID, optionID string, now time.Time) (domain.Submission, error) {
	if round.Status != domain.RoundOpen {
		return domain.Submission{}, domain.ErrRoundNotOpen
	}
	if !now.Before(round.Deadline()) {
		return domain.Submission{}, domain.ErrDeadlineExceeded
	}

	submission := domain.Submission{
		ParticipantID: participantID,
		RoundID:       round.ID,
		OptionID:      optionID,
		SubmittedAt:   now,
		Elapsed:       now.Sub(round.OpenedAt),
	}
	payload, err := json.Marshal(submission)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("marshal submission: %w", err)
	}

	key := l.roundKey(round.ID)
	inserted, err := l.client.HSetNX(ctx, key, participantID, payload).Result()
	if err != nil {
		return domain.Submission{}, fmt.Errorf("append submission: %w", err)
	}
	if !inserted {
		return domain.Submission{}, domain.ErrDuplicateSubmission
	}
	if l.ttl > 0 {
		_ = l.client.Expire(ctx, key, l.ttl).Err()
	}
	if err := l.client.SAdd(ctx, l.indexKey(), round.ID).Err(); err != nil {
		return submission, nil // index is best-effort; the submission is committed
	}
	return submission, nil
}

func (l *Ledger) RoundSubmissions(ctx context.Context, roundID string) ([]domain.Submission, error) {
	raw, err := l.client.HGetAll(ctx, l.roundKey(roundID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read round submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(raw))
	for _, payload := range raw {
		var sub domain.Submission
		if err := json.Unmarshal([]byte(payload), &sub); err != nil {
			return nil, fmt.Errorf("unmarshal submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, nil
}

func (l *Ledger) Reset(ctx context.Context) error {
	roundIDs, err := l.client.SMembers(ctx, l.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("list ledger rounds: %w", err)
	}
	keys := make([]string, 0, len(roundIDs)+1)
	for _, id := range roundIDs {
		keys = append(keys, l.roundKey(id))
	}
	keys = append(keys, l.indexKey())
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	return nil
}

func (l *Ledger) roundKey(roundID string) string {
	return "round:" + roundID + ":submissions"
}

func (l *Ledger) indexKey() string {
	return "ledger:rounds"
}
