// Package session orchestrates one live conversation: the busy-gated turn
// loop, the explicit Open/Closed lifecycle, and end-of-session summarization.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"github.com/havenchat/haven-go/internal/api"
	"github.com/havenchat/haven-go/internal/logger"
	"github.com/havenchat/haven-go/internal/transcript"
)

// State is the lifecycle position of a session. Transitions happen only
// through End: Open -> Closed on success, and there is no way back out of
// Closed.
type State string

var (
	StateOpen   State = "Open"
	StateClosed State = "Closed"
)

var triggerClose stateless.Trigger = "Close"

var (
	// ErrBusy means another request is already in flight for this session.
	// Turn ordering depends on one call at a time; the caller retries after
	// the pending call settles.
	ErrBusy = errors.New("session busy: a request is already in flight")

	// ErrUnauthenticated means the session has no user identity. Raised before
	// any network call.
	ErrUnauthenticated = errors.New("unauthenticated: session operations require a user identity")

	// ErrEmptySession means End was called before any turn was exchanged.
	ErrEmptySession = errors.New("cannot end a session with no turns")

	// ErrClosed means the session already has its summary and accepts nothing
	// further.
	ErrClosed = errors.New("session is closed")
)

// Client is the subset of the service API the session needs; small enough to
// mock in tests.
type Client interface {
	SendMessage(ctx context.Context, userID, message string, history [][2]string) (string, error)
	EndSession(ctx context.Context, userID string, history [][2]string) (api.Summary, error)
}

// Journal receives a copy of every appended turn. Implementations must absorb
// their own failures; journaling never interrupts the conversation.
type Journal interface {
	Record(sessionID string, t transcript.Turn)
}

// Session is one live conversation owned by a single user identity.
type Session struct {
	id      string
	userID  string
	started time.Time

	client  Client
	journal Journal

	mu      sync.Mutex
	busy    bool
	fsm     *stateless.StateMachine
	log     *transcript.Log
	summary *api.Summary
}

// New creates an open session for the given user. An empty userID is allowed
// here so an unauthenticated shell can still render; every operation on the
// session then fails fast with ErrUnauthenticated.
func New(client Client, journal Journal, userID string) *Session {
	s := &Session{
		id:      uuid.NewString(),
		userID:  userID,
		started: time.Now().UTC(),
		client:  client,
		journal: journal,
		log:     transcript.NewLog(),
	}

	fsm := stateless.NewStateMachine(StateOpen)
	fsm.Configure(StateOpen).
		Permit(triggerClose, StateClosed)
	fsm.Configure(StateClosed) // terminal
	s.fsm = fsm

	return s
}

// ID returns the client-side session identifier used for journaling.
func (s *Session) ID() string { return s.id }

// StartedAt returns the session start timestamp.
func (s *Session) StartedAt() time.Time { return s.started }

// Log returns the live message log.
func (s *Session) Log() *transcript.Log { return s.log }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Busy reports whether a request is currently in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Summary returns the stored summary. The second return is false until the
// session closes.
func (s *Session) Summary() (api.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return api.Summary{}, false
	}
	return *s.summary, true
}

// SendTurn submits one user message. Empty input after trimming is a no-op,
// not an error. The user turn is appended before the request goes out so the
// caller's view reflects it immediately; a failed request appends a single
// system turn describing the failure and leaves the session open and usable,
// so the error return covers only calls that never touched the log (busy,
// closed, unauthenticated). No automatic retries.
func (s *Session) SendTurn(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if s.userID == "" {
		return ErrUnauthenticated
	}

	s.mu.Lock()
	if s.stateLocked() == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}

	// snapshot the history before the new turn lands: the message travels in
	// its own request field, never inside the history array
	history := s.log.PairSlice()

	userTurn, err := transcript.NewTurn(transcript.RoleUser, text)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.log.Append(userTurn); err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy = true
	s.mu.Unlock()

	s.record(userTurn)

	reply, sendErr := s.client.SendMessage(ctx, s.userID, text, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if sendErr != nil {
		logger.L.Warn("turn send failed", "session", s.id, "error", sendErr)
		s.appendLocked(transcript.RoleSystem, fmt.Sprintf("An error occurred: %s. Please try again.", sendErr))
		return nil
	}

	s.appendLocked(transcript.RoleAssistant, reply)
	return nil
}

// End sends the full history with the end directive and stores the summary the
// service returns. On success the session transitions to Closed and stays
// there; on failure it remains Open with no summary, and the caller may retry
// or keep chatting. Ending requires at least one exchanged turn.
func (s *Session) End(ctx context.Context) (api.Summary, error) {
	if s.userID == "" {
		return api.Summary{}, ErrUnauthenticated
	}

	s.mu.Lock()
	if s.stateLocked() == StateClosed {
		s.mu.Unlock()
		return api.Summary{}, ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return api.Summary{}, ErrBusy
	}
	if s.log.Len() == 0 {
		s.mu.Unlock()
		return api.Summary{}, ErrEmptySession
	}
	history := s.log.PairSlice()
	s.busy = true
	s.mu.Unlock()

	summary, endErr := s.client.EndSession(ctx, s.userID, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if endErr != nil {
		logger.L.Error("end session failed", "session", s.id, "error", endErr)
		return api.Summary{}, endErr
	}

	s.summary = &summary
	if err := s.fsm.Fire(triggerClose); err != nil {
		logger.L.Warn("session state machine fire error", "session", s.id, "error", err)
	}
	logger.L.Info("session closed", "session", s.id, "turns", s.log.Len())
	return summary, nil
}

func (s *Session) stateLocked() State {
	return s.fsm.MustState().(State)
}

// appendLocked adds a reply or diagnostic turn; both roles pass log validation
// unconditionally, so a failure here is unreachable and only logged.
func (s *Session) appendLocked(role transcript.Role, content string) {
	turn, err := transcript.NewTurn(role, content)
	if err != nil {
		logger.L.Error("failed to build turn", "role", role, "error", err)
		return
	}
	if err := s.log.Append(turn); err != nil {
		logger.L.Error("failed to append turn", "role", role, "error", err)
		return
	}
	s.record(turn)
}

func (s *Session) record(t transcript.Turn) {
	if s.journal != nil {
		s.journal.Record(s.id, t)
	}
}
