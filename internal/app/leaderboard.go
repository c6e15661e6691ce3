package app

import (
	"sort"
	"sync"
	"time"

	"party-game-engine/internal/domain"
)

// Leaderboard maintains running totals from an append-only delta log. The log
// is the source of truth: totals are a cache and can always be rebuilt from
// it. Administrative adjustments are ordinary signed deltas with provenance,
// never edits of history.
type Leaderboard struct {
	mu        sync.RWMutex
	clock     func() time.Time
	log       []domain.ScoreDelta
	totals    map[string]int
	reachedAt map[string]time.Time // when each participant reached its current total
}

func NewLeaderboard() *Leaderboard {
	return newLeaderboardWithClock(time.Now)
}

func newLeaderboardWithClock(clock func() time.Time) *Leaderboard {
	return &Leaderboard{
		clock:     clock,
		totals:    make(map[string]int),
		reachedAt: make(map[string]time.Time),
	}
}

// Apply appends graded deltas and folds them into the running totals. Deltas
// within one round are commutative; rounds must be applied in close order,
// which the round machine guarantees by grading synchronously.
func (l *Leaderboard) Apply(deltas []domain.ScoreDelta) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, delta := range deltas {
		l.applyLocked(delta)
	}
}

// Adjust records an administrative signed delta with provenance and returns it.
func (l *Leaderboard) Adjust(adminID, participantID string, points int, reason string) domain.ScoreDelta {
	delta := domain.ScoreDelta{
		ParticipantID: participantID,
		Points:        points,
		Outcome:       domain.OutcomeAdjustment,
		AppliedAt:     l.clock(),
		AdminID:       adminID,
		Reason:        reason,
	}
	l.mu.Lock()
	l.applyLocked(delta)
	l.mu.Unlock()
	return delta
}

func (l *Leaderboard) applyLocked(delta domain.ScoreDelta) {
	l.log = append(l.log, delta)
	l.totals[delta.ParticipantID] += delta.Points
	// A zero delta (disabled penalty axis) does not change the total, so it
	// must not cost the participant their "reached it first" tie-break.
	if delta.Points != 0 {
		l.reachedAt[delta.ParticipantID] = delta.AppliedAt
	}
}

// Total returns the current total for a participant.
func (l *Leaderboard) Total(participantID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals[participantID]
}

// TotalAt sums every delta for the participant with AppliedAt at or before t.
func (l *Leaderboard) TotalAt(participantID string, t time.Time) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0
	for _, delta := range l.log {
		if delta.ParticipantID == participantID && !delta.AppliedAt.After(t) {
			total += delta.Points
		}
	}
	return total
}

// Snapshot produces the ordered scoreboard. Joined participants without any
// delta yet appear with a zero score. Order is total: score descending, then
// whoever reached that total first, then participant id, so repeated queries
// over the same input never reorder ties.
func (l *Leaderboard) Snapshot(eventID string, joined []string, names func(string) string) domain.Leaderboard {
	l.mu.RLock()
	scores := make(map[string]int, len(l.totals)+len(joined))
	for _, id := range joined {
		scores[id] = 0
	}
	for id, score := range l.totals {
		scores[id] = score
	}
	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	reached := make(map[string]time.Time, len(l.reachedAt))
	for id, score := range scores {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      id,
			DisplayName: names(id),
			Score:       score,
		})
		reached[id] = l.reachedAt[id]
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		ri, rj := reached[entries[i].UserID], reached[entries[j].UserID]
		if !ri.Equal(rj) {
			return ri.Before(rj)
		}
		return entries[i].UserID < entries[j].UserID
	})

	return domain.Leaderboard{
		EventID:   eventID,
		Entries:   entries,
		UpdatedAt: l.clock(),
	}
}

// Log returns a copy of the full delta history.
func (l *Leaderboard) Log() []domain.ScoreDelta {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.ScoreDelta, len(l.log))
	copy(out, l.log)
	return out
}

// Rebuild recomputes totals from the delta log alone and replaces the cached
// state. Used by the consistency re-check after an invariant violation.
func (l *Leaderboard) Rebuild() {
	l.mu.Lock()
	defer l.mu.Unlock()
	totals := make(map[string]int, len(l.totals))
	reachedAt := make(map[string]time.Time, len(l.reachedAt))
	for _, delta := range l.log {
		totals[delta.ParticipantID] += delta.Points
		if delta.Points != 0 {
			reachedAt[delta.ParticipantID] = delta.AppliedAt
		}
	}
	l.totals = totals
	l.reachedAt = reachedAt
}

// Reset drops the whole delta log and totals. Only the full administrative
// score reset calls it.
func (l *Leaderboard) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = nil
	l.totals = make(map[string]int)
	l.reachedAt = make(map[string]time.Time)
}
