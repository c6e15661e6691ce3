package app

import (
	"context"
	"errors"
	"log"

	"party-game-engine/internal/domain"
)

// GameService contains the live-event use cases: timed quiz rounds, the
// running leaderboard and the lottery draw. One instance owns one event.
type GameService struct {
	eventID     string
	rounds      RoundRepository
	ledger      Ledger
	machine     *RoundMachine
	leaderboard *Leaderboard
	roster      *Roster
	lottery     *Lottery
	hub         *Hub
}

func NewGameService(eventID string, rounds RoundRepository, ledger Ledger, lottery *Lottery, hub *Hub) *GameService {
	roster := NewRoster()
	leaderboard := NewLeaderboard()
	return &GameService{
		eventID:     eventID,
		rounds:      rounds,
		ledger:      ledger,
		machine:     NewRoundMachine(ledger, leaderboard, roster, hub),
		leaderboard: leaderboard,
		roster:      roster,
		lottery:     lottery,
		hub:         hub,
	}
}

// Join registers or refreshes a participant and returns the current board.
func (s *GameService) Join(_ context.Context, userID, displayName string) domain.Leaderboard {
	s.roster.Join(userID, displayName)
	s.publishLeaderboard()
	return s.snapshot()
}

// Leave removes a participant from the event roster. Their deltas remain in
// the log; the roster only gates future rounds and timeout grading.
func (s *GameService) Leave(_ context.Context, userID string) {
	s.roster.Leave(userID)
}

// ArmRound loads the round config and stages it as the pending round.
func (s *GameService) ArmRound(ctx context.Context, roundID string) (domain.Round, error) {
	round, err := s.rounds.GetRound(ctx, roundID)
	if err != nil {
		return domain.Round{}, err
	}
	if err := s.machine.Arm(round); err != nil {
		return domain.Round{}, err
	}
	return round, nil
}

// OpenRound opens the armed round and starts its countdown.
func (s *GameService) OpenRound(ctx context.Context) (domain.Round, error) {
	round, err := s.machine.Open(ctx)
	if errors.Is(err, domain.ErrConflictingRound) {
		// Two open rounds would be an invariant breach; re-check instead of
		// trusting possibly drifted state.
		state := s.machine.Recheck()
		log.Printf("open refused, machine state %s after recheck", state)
	}
	return round, err
}

// CloseRound force-closes the open round. Racing with the deadline is safe:
// whichever fires first grades, the other is a no-op.
func (s *GameService) CloseRound(ctx context.Context) (domain.RoundSummary, error) {
	summary, err := s.machine.Close(ctx)
	if err == nil {
		s.publishLeaderboard()
	}
	return summary, err
}

// SubmitAnswer records one participant's answer to the open round.
func (s *GameService) SubmitAnswer(ctx context.Context, userID, optionID string) (domain.Submission, error) {
	return s.machine.Submit(ctx, userID, optionID)
}

// Leaderboard returns the current ranked scoreboard.
func (s *GameService) Leaderboard(_ context.Context) domain.Leaderboard {
	return s.snapshot()
}

// AdjustScore appends an administrative delta with provenance.
func (s *GameService) AdjustScore(_ context.Context, adminID, userID string, points int, reason string) domain.ScoreDelta {
	delta := s.leaderboard.Adjust(adminID, userID, points, reason)
	s.publishLeaderboard()
	return delta
}

// DrawLottery performs one seeded draw over the eligible pool.
func (s *GameService) DrawLottery(ctx context.Context, seed int64) (domain.DrawRecord, error) {
	return s.lottery.Draw(ctx, seed)
}

// ResetLottery clears the exclusion set; past winners become eligible again.
func (s *GameService) ResetLottery(ctx context.Context) error {
	return s.lottery.Reset(ctx)
}

// DrawHistory lists committed draw records.
func (s *GameService) DrawHistory(ctx context.Context) ([]domain.DrawRecord, error) {
	return s.lottery.History(ctx)
}

// ResetScores is the full administrative reset: it drops the delta log and
// soft-deletes the submission history.
func (s *GameService) ResetScores(ctx context.Context) error {
	if err := s.ledger.Reset(ctx); err != nil {
		return err
	}
	s.leaderboard.Reset()
	s.publishLeaderboard()
	return nil
}

// Subscribe returns the outbound event stream for one client. The caller must
// invoke cancel to avoid leaks.
func (s *GameService) Subscribe(_ context.Context) (<-chan Event, func()) {
	return s.hub.Subscribe()
}

// CurrentRound exposes the open or grading round for late joiners.
func (s *GameService) CurrentRound() (domain.Round, bool) {
	return s.machine.CurrentRound()
}

func (s *GameService) snapshot() domain.Leaderboard {
	return s.leaderboard.Snapshot(s.eventID, s.roster.IDs(), s.roster.DisplayName)
}

func (s *GameService) publishLeaderboard() {
	s.hub.Publish(NewEvent(EventLeaderboard, s.snapshot()))
}
