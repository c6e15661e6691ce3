package memory

import (
	"context"
	"sync"
	"time"

	"party-game-engine/internal/domain"
)

type pairKey struct {
	participantID string
	roundID       string
}

// Ledger is the in-process implementation of app.Ledger. The whole append is
// one critical section, so the duplicate check and insert are atomic.
type Ledger struct {
	mu          sync.Mutex
	submissions map[pairKey]domain.Submission
}

func NewLedger() *Ledger {
	return &Ledger{submissions: make(map[pairKey]domain.Submission)}
}

func (l *Ledger) Append(_ context.Context, round domain.Round, participantID, optionID string, now time.Time) (domain.Submission, error) {
	if round.Status != domain.RoundOpen {
		return domain.Submission{}, domain.ErrRoundNotOpen
	}
	// Server clock decides lateness; client-reported elapsed time is ignored.
	if !now.Before(round.Deadline()) {
		return domain.Submission{}, domain.ErrDeadlineExceeded
	}

	key := pairKey{participantID: participantID, roundID: round.ID}
	submission := domain.Submission{
		ParticipantID: participantID,
		RoundID:       round.ID,
		OptionID:      optionID,
		SubmittedAt:   now,
		Elapsed:       now.Sub(round.OpenedAt),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.submissions[key]; exists {
		return domain.Submission{}, domain.ErrDuplicateSubmission
	}
	l.submissions[key] = submission
	return submission, nil
}

func (l *Ledger) RoundSubmissions(_ context.Context, roundID string) ([]domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Submission, 0)
	for key, sub := range l.submissions {
		if key.roundID == roundID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (l *Ledger) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submissions = make(map[pairKey]domain.Submission)
	return nil
}
