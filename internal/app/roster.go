package app

import (
	"sort"
	"sync"
	"time"

	"party-game-engine/internal/domain"
)

// Roster tracks who is joined to the live event. The joined set defines the
// eligible participants for timeout grading when a round closes.
type Roster struct {
	mu           sync.RWMutex
	clock        func() time.Time
	participants map[string]domain.Participant
}

func NewRoster() *Roster {
	return newRosterWithClock(time.Now)
}

func newRosterWithClock(clock func() time.Time) *Roster {
	return &Roster{
		clock:        clock,
		participants: make(map[string]domain.Participant),
	}
}

// Join registers or refreshes a participant.
func (r *Roster) Join(userID, displayName string) domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	participant, ok := r.participants[userID]
	if !ok {
		participant = domain.Participant{UserID: userID, JoinedAt: r.clock()}
	}
	participant.DisplayName = displayName
	r.participants[userID] = participant
	return participant
}

// Leave removes a participant from the event.
func (r *Roster) Leave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, userID)
}

// Contains reports whether the participant has joined.
func (r *Roster) Contains(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.participants[userID]
	return ok
}

// IDs returns the joined participant ids in stable order.
func (r *Roster) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DisplayName resolves a participant's name, falling back to the id for
// participants that already left.
func (r *Roster) DisplayName(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.participants[userID]; ok && p.DisplayName != "" {
		return p.DisplayName
	}
	return userID
}

// Size returns the number of joined participants.
func (r *Roster) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}
