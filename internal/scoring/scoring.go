// Package scoring implements the grading rules for a closed round. Grading is
// a pure function of the round config, the ledger slice and the eligible
// participant set, so a crash mid-grade is always recoverable by re-running it.
package scoring

import (
	"sort"
	"time"

	"party-game-engine/internal/domain"
)

// Grade computes one ScoreDelta per eligible participant for a round:
//
//  1. no submission by close, or a blank option → timeout penalty (or 0),
//  2. correct option → +BaseScore,
//  3. wrong option → wrong-answer penalty (or 0).
//
// An explicit blank answer is scored as a timeout on purpose; it is not a
// separate penalty tier. Output is sorted by participant id so repeated calls
// on identical input yield identical sequences.
func Grade(round domain.Round, submissions []domain.Submission, eligible []string, closedAt time.Time) []domain.ScoreDelta {
	correct := round.CorrectOption()

	byParticipant := make(map[string]domain.Submission, len(submissions))
	for _, sub := range submissions {
		if sub.RoundID != round.ID {
			continue
		}
		// The ledger guarantees one submission per pair; keep the first if a
		// corrupted slice ever carries more.
		if _, ok := byParticipant[sub.ParticipantID]; !ok {
			byParticipant[sub.ParticipantID] = sub
		}
	}

	deltas := make([]domain.ScoreDelta, 0, len(eligible))
	for _, participantID := range eligible {
		sub, answered := byParticipant[participantID]
		deltas = append(deltas, gradeOne(round, participantID, sub, answered, correct, closedAt))
	}

	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].ParticipantID < deltas[j].ParticipantID
	})
	return deltas
}

func gradeOne(round domain.Round, participantID string, sub domain.Submission, answered bool, correct string, closedAt time.Time) domain.ScoreDelta {
	delta := domain.ScoreDelta{
		ParticipantID: participantID,
		RoundID:       round.ID,
		AppliedAt:     closedAt,
	}

	switch {
	case !answered:
		delta.Outcome = domain.OutcomeTimeout
		delta.Points = -round.TimeoutPenalty.Value()
	case sub.OptionID == "":
		// Explicit "I don't know" is not penalized differently from silence.
		delta.Outcome = domain.OutcomeNoAnswer
		delta.Points = -round.TimeoutPenalty.Value()
	case sub.OptionID == correct:
		delta.Outcome = domain.OutcomeCorrect
		delta.Points = round.BaseScore
	default:
		delta.Outcome = domain.OutcomeIncorrect
		delta.Points = -round.WrongPenalty.Value()
	}
	return delta
}

// ValidateRound checks the config constraints enforced at arm time: time
// limit within bounds, a positive base score, and exactly one correct option.
func ValidateRound(round domain.Round) error {
	if round.TimeLimit < domain.MinTimeLimit || round.TimeLimit > domain.MaxTimeLimit {
		return domain.ErrInvalidConfig
	}
	if round.BaseScore <= 0 {
		return domain.ErrInvalidConfig
	}
	correct := 0
	for _, opt := range round.Options {
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 {
		return domain.ErrInvalidConfig
	}
	return nil
}
