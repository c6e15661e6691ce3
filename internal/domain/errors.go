package domain

import "errors"

var (
	// ErrInvalidConfig is returned when a round fails validation on arm.
	ErrInvalidConfig = errors.New("invalid round config")
	// ErrConflictingRound is returned when opening while another round is open.
	ErrConflictingRound = errors.New("another round is already open")
	// ErrRoundNotOpen is returned when a submission targets a round that is
	// not currently accepting answers.
	ErrRoundNotOpen = errors.New("round not open")
	// ErrDeadlineExceeded is returned when a submission arrives at or after
	// the round deadline. Distinct from ErrDuplicateSubmission so clients can
	// tell "too late" from "already answered".
	ErrDeadlineExceeded = errors.New("round deadline exceeded")
	// ErrDuplicateSubmission is returned when a (participant, round) pair
	// already has an accepted submission. First write wins.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrEmptyPool is returned when a lottery draw finds no eligible participant.
	ErrEmptyPool = errors.New("no eligible participants in draw pool")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in event")
	// ErrRoundNotFound indicates round content could not be loaded.
	ErrRoundNotFound = errors.New("round not found")
	// ErrInvariantViolation flags an impossible state (e.g. two open rounds
	// observed). Fatal to the current operation, never to the engine.
	ErrInvariantViolation = errors.New("engine invariant violated")
)
