package domain

import "time"

// RoundStatus tracks the lifecycle of a quiz round.
type RoundStatus string

const (
	RoundArmed   RoundStatus = "armed"
	RoundOpen    RoundStatus = "open"
	RoundGrading RoundStatus = "grading"
	RoundClosed  RoundStatus = "closed"
)

// Round time-limit bounds. Shorter than MinTimeLimit is not playable over a
// real network; longer than MaxTimeLimit stalls the event.
const (
	MinTimeLimit = 5 * time.Second
	MaxTimeLimit = 300 * time.Second
)

// Penalty is one scoring axis: either disabled, or enabled with a point
// amount. Modeled as a tagged pair so grading never sees an "enabled but
// amount unset" state.
type Penalty struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Amount  int  `json:"amount" yaml:"amount"`
}

// Value returns the penalty amount, or zero when the axis is disabled.
func (p Penalty) Value() int {
	if !p.Enabled {
		return 0
	}
	return p.Amount
}

// Option represents a possible answer for a round's question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Round is one timed question instance. Exactly one option must be correct.
type Round struct {
	ID             string        `json:"id"`
	Prompt         string        `json:"prompt"`
	Options        []Option      `json:"options"`
	BaseScore      int           `json:"baseScore"`
	WrongPenalty   Penalty       `json:"wrongPenalty"`
	TimeoutPenalty Penalty       `json:"timeoutPenalty"`
	TimeLimit      time.Duration `json:"timeLimit"`
	OpenedAt       time.Time     `json:"openedAt"`
	Status         RoundStatus   `json:"status"`
}

// CorrectOption returns the id of the single correct option, or "" if the
// round is misconfigured.
func (r Round) CorrectOption() string {
	for _, opt := range r.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

// Deadline is the instant after which submissions are rejected.
func (r Round) Deadline() time.Time {
	return r.OpenedAt.Add(r.TimeLimit)
}

// Submission is one participant's accepted answer to one round. Immutable
// once accepted; at most one exists per (participant, round) pair.
type Submission struct {
	ParticipantID string        `json:"participantId"`
	RoundID       string        `json:"roundId"`
	OptionID      string        `json:"optionId"` // empty = explicit no-answer
	SubmittedAt   time.Time     `json:"submittedAt"`
	Elapsed       time.Duration `json:"elapsed"` // server-computed
}

// Outcome tags the scoring result of one submission (or non-submission).
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeNoAnswer  Outcome = "no-answer"
	// OutcomeAdjustment marks administrative deltas, which carry AdminID and
	// Reason instead of a round reference.
	OutcomeAdjustment Outcome = "adjustment"
)

// ScoreDelta is a signed point adjustment attributable to one outcome.
// Recomputing the delta for the same submission yields the same value.
type ScoreDelta struct {
	ParticipantID string    `json:"participantId"`
	RoundID       string    `json:"roundId"`
	Points        int       `json:"points"`
	Outcome       Outcome   `json:"outcome"`
	AppliedAt     time.Time `json:"appliedAt"`

	// AdminID and Reason are set only on administrative adjustments, which
	// are ordinary append-only deltas with provenance, never history edits.
	AdminID string `json:"adminId,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Participant represents someone joined to the live event.
type Participant struct {
	UserID      string
	DisplayName string
	JoinedAt    time.Time
}

// LeaderboardEntry is a snapshot-friendly view of a participant's standing.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard for the event.
type Leaderboard struct {
	EventID   string             `json:"eventId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// OptionCount pairs an option with how many submissions chose it.
type OptionCount struct {
	OptionID string `json:"optionId"`
	Count    int    `json:"count"`
}

// RoundSummary is broadcast when a round closes.
type RoundSummary struct {
	RoundID       string        `json:"roundId"`
	CorrectOption string        `json:"correctOption"`
	OptionCounts  []OptionCount `json:"optionCounts"`
	Deltas        []ScoreDelta  `json:"deltas"`
	ClosedAt      time.Time     `json:"closedAt"`
}

// ContentFact is an externally-derived eligibility fact: how many qualifying
// public content items a participant has. Recomputed on demand, never stored
// as engine state.
type ContentFact struct {
	ParticipantID string
	ItemCount     int
}

// ExclusionPolicy controls which past winners are barred from winning again.
type ExclusionPolicy string

const (
	// ExclusionNone never bars past winners.
	ExclusionNone ExclusionPolicy = "none"
	// ExclusionCurrent bars winners drawn since the last reset.
	ExclusionCurrent ExclusionPolicy = "current"
	// ExclusionAllTime bars every recorded winner, including those drawn
	// before this process started, until an explicit reset.
	ExclusionAllTime ExclusionPolicy = "all-time"
)

// DrawRecord is the immutable record of one lottery outcome. The pool
// snapshots who was eligible at draw time.
type DrawRecord struct {
	DrawID   string    `json:"drawId"`
	WinnerID string    `json:"winnerId"`
	DrawnAt  time.Time `json:"drawnAt"`
	Pool     []string  `json:"pool"`
}
