package app

import (
	"context"
	"time"

	"party-game-engine/internal/domain"
)

// Ledger is the exactly-once record of participant submissions. Append must
// be an atomic "insert if absent" keyed by (participant, round): racing
// submissions for the same pair resolve so exactly one is accepted and the
// other sees domain.ErrDuplicateSubmission.
type Ledger interface {
	// Append validates the round is open and the deadline has not passed
	// (server clock is authoritative), then records the submission. Returns
	// the accepted submission including server-computed elapsed time.
	Append(ctx context.Context, round domain.Round, participantID, optionID string, now time.Time) (domain.Submission, error)
	// RoundSubmissions returns every accepted submission for a round.
	RoundSubmissions(ctx context.Context, roundID string) ([]domain.Submission, error)
	// Reset drops all submissions. Only the full administrative reset calls it.
	Reset(ctx context.Context) error
}

// RoundRepository loads round configuration (from cache/backing store).
type RoundRepository interface {
	GetRound(ctx context.Context, roundID string) (domain.Round, error)
}

// DrawStore persists lottery history and the active exclusion set.
// AppendDraw is append-only; records are never rewritten or deleted.
type DrawStore interface {
	AppendDraw(ctx context.Context, record domain.DrawRecord) error
	Draws(ctx context.Context) ([]domain.DrawRecord, error)
	AddExclusion(ctx context.Context, participantID string) error
	Exclusions(ctx context.Context) (map[string]struct{}, error)
	// ClearExclusions empties the exclusion set and durably marks the current
	// history length, so post-reset winners stay re-derivable from history.
	ClearExclusions(ctx context.Context) error
	// ResetMark returns how many draws had been committed at the last reset
	// (zero if never reset).
	ResetMark(ctx context.Context) (int, error)
}

// EligibilitySource recomputes content-eligibility facts on demand; facts are
// derived from externally-stored content and never cached as engine state.
type EligibilitySource interface {
	ContentFacts(ctx context.Context) ([]domain.ContentFact, error)
}
