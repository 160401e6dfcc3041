// Package transcript holds the canonical ordered turn sequence for the active
// session. The log is append-only: turns are never reordered or deleted, because
// the sequence is replayed verbatim to the remote service as conversational
// context.
package transcript

import (
	"fmt"
	"iter"
	"strings"
	"sync"
)

// Log is the in-memory message log of the active session.
type Log struct {
	mu    sync.Mutex
	turns []Turn
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{turns: make([]Turn, 0, 16)}
}

// Append adds a turn to the end of the log. The same content rule as NewTurn
// applies, so turns built by hand cannot sneak past validation.
func (l *Log) Append(t Turn) error {
	if !t.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, t.Role)
	}
	if t.Role == RoleUser && strings.TrimSpace(t.Content) == "" {
		return ErrEmptyContent
	}
	l.mu.Lock()
	l.turns = append(l.turns, t)
	l.mu.Unlock()
	return nil
}

// Len returns the number of appended turns.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// Turns returns a copy of the turn sequence in append order.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Last returns the most recently appended turn, if any.
func (l *Log) Last() (Turn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.turns) == 0 {
		return Turn{}, false
	}
	return l.turns[len(l.turns)-1], true
}

// HistoryPairs returns a lazy, restartable sequence of (speakerTag, content)
// pairs in append order, skipping system turns. The sequence iterates over a
// snapshot taken when HistoryPairs is called, so later appends do not leak into
// an in-progress replay.
func (l *Log) HistoryPairs() iter.Seq2[string, string] {
	snapshot := l.Turns()
	return func(yield func(string, string) bool) {
		for _, t := range snapshot {
			tag, ok := t.Role.SpeakerTag()
			if !ok {
				continue
			}
			if !yield(tag, t.Content) {
				return
			}
		}
	}
}

// PairSlice materializes HistoryPairs into the wire shape used by the service.
func (l *Log) PairSlice() [][2]string {
	pairs := make([][2]string, 0, l.Len())
	for tag, content := range l.HistoryPairs() {
		pairs = append(pairs, [2]string{tag, content})
	}
	return pairs
}
