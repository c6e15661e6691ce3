package app

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"party-game-engine/internal/domain"
	"party-game-engine/internal/scoring"
)

// MachineState is the lifecycle of the round machine itself.
type MachineState string

const (
	StateIdle    MachineState = "idle"
	StateArmed   MachineState = "armed"
	StateOpen    MachineState = "open"
	StateGrading MachineState = "grading"
)

// RoundMachine owns the single-active-round lifecycle:
// idle → armed → open → grading → closed → idle. All transitions are
// serialized through one mutex (single-writer discipline); many concurrent
// submits race only inside the ledger's atomic insert-if-absent.
type RoundMachine struct {
	mu sync.Mutex
	// gradeMu fences ledger appends against grading: submits hold it shared
	// for the duration of the append, Close takes it exclusively, so no
	// submission can land in the ledger after the grade has read it.
	gradeMu     sync.RWMutex
	clock       func() time.Time
	ledger      Ledger
	leaderboard *Leaderboard
	roster      *Roster
	hub         *Hub
	countdown   *Countdown

	state       MachineState
	pending     *domain.Round // armed, not yet open
	current     *domain.Round // open or grading
	lastSummary *domain.RoundSummary
}

func NewRoundMachine(ledger Ledger, leaderboard *Leaderboard, roster *Roster, hub *Hub) *RoundMachine {
	return newRoundMachineWithClock(ledger, leaderboard, roster, hub, time.Now)
}

// NewRoundMachineWithClock is test-only for deterministic deadlines.
func NewRoundMachineWithClock(ledger Ledger, leaderboard *Leaderboard, roster *Roster, hub *Hub, clock func() time.Time) *RoundMachine {
	return newRoundMachineWithClock(ledger, leaderboard, roster, hub, clock)
}

// newRoundMachineWithClock allows deterministic deadlines in tests.
func newRoundMachineWithClock(ledger Ledger, leaderboard *Leaderboard, roster *Roster, hub *Hub, clock func() time.Time) *RoundMachine {
	return &RoundMachine{
		clock:       clock,
		ledger:      ledger,
		leaderboard: leaderboard,
		roster:      roster,
		hub:         hub,
		countdown:   NewCountdown(),
		state:       StateIdle,
	}
}

// State returns the current machine state.
func (m *RoundMachine) State() MachineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentRound returns the open or grading round, if any.
func (m *RoundMachine) CurrentRound() (domain.Round, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return domain.Round{}, false
	}
	return *m.current, true
}

// LastSummary returns the most recent round summary, if a round has closed.
func (m *RoundMachine) LastSummary() (domain.RoundSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastSummary == nil {
		return domain.RoundSummary{}, false
	}
	return *m.lastSummary, true
}

// Arm validates the round config and makes it the pending round. Arming has
// no side effect beyond that; re-arming replaces the pending round.
func (m *RoundMachine) Arm(round domain.Round) error {
	if err := scoring.ValidateRound(round); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateOpen || m.state == StateGrading {
		return domain.ErrConflictingRound
	}
	round.Status = domain.RoundArmed
	m.pending = &round
	m.state = StateArmed
	return nil
}

// Open transitions the armed round to open, stamps the opened-at time and
// starts the deadline countdown.
func (m *RoundMachine) Open(ctx context.Context) (domain.Round, error) {
	m.mu.Lock()
	if m.state != StateArmed || m.pending == nil {
		defer m.mu.Unlock()
		if m.state == StateOpen || m.state == StateGrading {
			return domain.Round{}, domain.ErrConflictingRound
		}
		return domain.Round{}, domain.ErrRoundNotFound
	}

	round := *m.pending
	round.OpenedAt = m.clock()
	round.Status = domain.RoundOpen
	m.current = &round
	m.pending = nil
	m.state = StateOpen
	m.mu.Unlock()

	m.countdown.Start(round.TimeLimit, func() {
		if _, err := m.Close(context.Background()); err != nil {
			log.Printf("deadline close for round %s: %v", round.ID, err)
		}
	})

	m.hub.Publish(NewEvent(EventRoundOpened, map[string]any{
		"roundId":  round.ID,
		"prompt":   round.Prompt,
		"options":  publicOptions(round.Options),
		"deadline": round.Deadline(),
	}))
	return round, nil
}

// Submit records a participant's answer through the ledger. Round state never
// changes on rejection; the caller just learns the reason.
func (m *RoundMachine) Submit(ctx context.Context, participantID, optionID string) (domain.Submission, error) {
	if !m.roster.Contains(participantID) {
		return domain.Submission{}, domain.ErrParticipantNotFound
	}

	m.gradeMu.RLock()
	defer m.gradeMu.RUnlock()

	m.mu.Lock()
	if m.state != StateOpen || m.current == nil {
		m.mu.Unlock()
		return domain.Submission{}, domain.ErrRoundNotOpen
	}
	round := *m.current
	m.mu.Unlock()

	return m.ledger.Append(ctx, round, participantID, optionID, m.clock())
}

// Close drives open → grading → closed. The deadline firing and an admin
// close race for this transition; whichever arrives first wins and the other
// is a no-op. A failure mid-grading leaves the machine in grading, and a
// retry re-runs the same pure grade over the ledger.
func (m *RoundMachine) Close(ctx context.Context) (domain.RoundSummary, error) {
	// Taking gradeMu exclusively drains in-flight submits before the ledger
	// is read, so the grade sees every accepted submission.
	m.gradeMu.Lock()
	defer m.gradeMu.Unlock()

	// The mutex is held across the whole grade so racing closers cannot both
	// reach the apply step; the loser observes idle and gets the summary.
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateOpen:
		m.current.Status = domain.RoundGrading
		m.state = StateGrading
	case StateGrading:
		// Retry of a failed grade; fall through and recompute.
	default:
		// With the next round already armed the previous summary is stale;
		// only a truly idle machine answers the idempotent-close case.
		if m.lastSummary != nil && m.pending == nil {
			return *m.lastSummary, nil
		}
		return domain.RoundSummary{}, domain.ErrRoundNotOpen
	}
	round := *m.current

	m.countdown.Stop()

	submissions, err := m.ledger.RoundSubmissions(ctx, round.ID)
	if err != nil {
		return domain.RoundSummary{}, err
	}

	closedAt := m.clock()
	deltas := scoring.Grade(round, submissions, m.roster.IDs(), closedAt)
	summary := buildSummary(round, submissions, deltas, closedAt)

	m.leaderboard.Apply(deltas)
	m.current = nil
	m.lastSummary = &summary
	m.state = StateIdle

	m.hub.Publish(NewEvent(EventRoundClosed, summary))
	return summary, nil
}

// Recheck recomputes the machine's view after a suspected invariant
// violation: it rebuilds leaderboard totals from the delta log and reports
// the authoritative state instead of crashing the engine.
func (m *RoundMachine) Recheck() MachineState {
	m.leaderboard.Rebuild()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Status == domain.RoundOpen && m.state != StateOpen {
		log.Printf("round %s status drifted from machine state %s; trusting round", m.current.ID, m.state)
		m.state = StateOpen
	}
	return m.state
}

func buildSummary(round domain.Round, submissions []domain.Submission, deltas []domain.ScoreDelta, closedAt time.Time) domain.RoundSummary {
	counts := make(map[string]int)
	for _, sub := range submissions {
		if sub.OptionID != "" {
			counts[sub.OptionID]++
		}
	}
	optionCounts := make([]domain.OptionCount, 0, len(round.Options))
	for _, opt := range round.Options {
		optionCounts = append(optionCounts, domain.OptionCount{OptionID: opt.ID, Count: counts[opt.ID]})
	}
	sort.Slice(optionCounts, func(i, j int) bool { return optionCounts[i].OptionID < optionCounts[j].OptionID })

	return domain.RoundSummary{
		RoundID:       round.ID,
		CorrectOption: round.CorrectOption(),
		OptionCounts:  optionCounts,
		Deltas:        deltas,
		ClosedAt:      closedAt,
	}
}

// publicOptions strips the correctness flag before broadcast.
func publicOptions(options []domain.Option) []domain.Option {
	out := make([]domain.Option, len(options))
	for i, opt := range options {
		out[i] = domain.Option{ID: opt.ID, Text: opt.Text}
	}
	return out
}
