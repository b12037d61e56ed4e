// Package session implements the ranking workflow state machine.
//
// A Session is a pure state holder: it validates transitions and tracks the
// opponent queue, while the effects between transitions (queue building,
// vote submission) live in the app layer. Feeding it events and asserting
// states needs no I/O at all.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rkarimi/encore/internal/domain/errs"
	"github.com/rkarimi/encore/internal/domain/model"
)

// State enumerates the workflow states.
type State int

const (
	// StateClosed is the terminal (and implicit initial) state.
	StateClosed State = iota
	// StateInitializing covers the window between open() and the queue
	// build completing.
	StateInitializing
	// StateAwaiting means a pair is presented and a decision is pending.
	StateAwaiting
	// StateSubmitting means a decision is being committed.
	StateSubmitting
	// StateErrored is entered when a commit fails; it always resolves to
	// Closed.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateInitializing:
		return "initializing"
	case StateAwaiting:
		return "awaiting_comparison"
	case StateSubmitting:
		return "submitting"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// Session is the ephemeral per-workflow state. It is never persisted and is
// discarded when the workflow terminates.
type Session struct {
	mu sync.Mutex

	id        string
	ownerID   string
	setID     string
	bucket    model.Bucket
	opponents []string
	pos       int
	state     State
	openedAt  time.Time
}

// New creates a session in Initializing for the given set.
func New(ownerID, setID string, bucket model.Bucket) *Session {
	return &Session{
		id:       uuid.NewString(),
		ownerID:  ownerID,
		setID:    setID,
		bucket:   bucket,
		state:    StateInitializing,
		openedAt: time.Now().UTC(),
	}
}

// Accessors.

// ID is unique per workflow invocation; it scopes the fallback idempotency
// token so retries within one session deduplicate but later sessions do not.
func (s *Session) ID() string { return s.id }

func (s *Session) OwnerID() string { return s.ownerID }

func (s *Session) SetID() string { return s.setID }

func (s *Session) Bucket() model.Bucket { return s.bucket }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the zero-based index of the current opponent.
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Remaining returns how many comparisons are left, including the current one.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.opponents) - s.pos
}

// Activate installs the opponent queue and moves Initializing -> Awaiting.
func (s *Session) Activate(opponents []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitializing {
		return errs.Conflictf("cannot activate from %s", s.state)
	}
	if len(opponents) == 0 {
		return errs.Validationf("empty opponent queue")
	}
	s.opponents = opponents
	s.pos = 0
	s.state = StateAwaiting
	return nil
}

// CurrentPair returns the pair awaiting a decision.
func (s *Session) CurrentPair() (model.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaiting {
		return model.Pair{}, errs.Conflictf("no pending comparison in state %s", s.state)
	}
	return model.Pair{A: s.setID, B: s.opponents[s.pos]}, nil
}

// BeginDecide validates the winner and moves Awaiting -> Submitting,
// returning the implied loser. A winner outside the current pair fails
// validation and leaves the state untouched.
func (s *Session) BeginDecide(winnerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaiting {
		return "", errs.Conflictf("cannot decide from %s", s.state)
	}
	opponent := s.opponents[s.pos]
	switch winnerID {
	case s.setID:
		s.state = StateSubmitting
		return opponent, nil
	case opponent:
		s.state = StateSubmitting
		return s.setID, nil
	}
	return "", errs.Validationf("winner %s is not part of the current pair", winnerID)
}

// CompleteDecide records a committed vote and advances the queue:
// Submitting -> Awaiting while opponents remain, Submitting -> Closed once
// the queue is exhausted. Returns true when the workflow is done.
func (s *Session) CompleteDecide() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSubmitting {
		return false, errs.Conflictf("cannot complete from %s", s.state)
	}
	s.pos++
	if s.pos < len(s.opponents) {
		s.state = StateAwaiting
		return false, nil
	}
	s.state = StateClosed
	return true, nil
}

// Fail aborts the workflow after a commit or initialization error:
// Initializing|Submitting -> Errored. Comparisons already committed stay
// committed; only the remaining queue is discarded.
func (s *Session) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInitializing || s.state == StateSubmitting {
		s.state = StateErrored
	}
}

// Cancel discards the remaining queue: Awaiting|Submitting -> Closed.
// There is no compensating rollback for votes already committed.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaiting && s.state != StateSubmitting {
		return errs.Conflictf("cannot cancel from %s", s.state)
	}
	s.state = StateClosed
	return nil
}

// Close forces the terminal state. Used to resolve Errored and to finish
// skipped sessions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}
