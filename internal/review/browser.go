// Package review lets a user inspect previously closed sessions. It is
// independent of the live conversation: it reads the remote archive and keeps
// only local selection state.
package review

import (
	"context"
	"sync"

	"github.com/havenchat/haven-go/internal/api"
	"github.com/havenchat/haven-go/internal/logger"
)

// Client is the subset of the service API the browser needs.
type Client interface {
	ListSessions(ctx context.Context, userID string) ([]api.SessionRecord, error)
}

// Browser holds the fetched session list and the user's current selection.
type Browser struct {
	client Client
	userID string

	mu       sync.Mutex
	sessions []api.SessionRecord
	selected int
}

// NewBrowser creates a browser for the given user identity.
func NewBrowser(client Client, userID string) *Browser {
	return &Browser{
		client:   client,
		userID:   userID,
		selected: -1,
	}
}

// Refresh fetches the user's closed sessions. A failed fetch is logged and
// leaves an empty list: the page still renders, just with no sessions. Server
// order is kept verbatim; the browser imposes no sort. A missing identity
// short-circuits before any network call.
func (b *Browser) Refresh(ctx context.Context) {
	if b.userID == "" {
		logger.L.Warn("session history requested without a user identity")
		b.replace(nil)
		return
	}

	sessions, err := b.client.ListSessions(ctx, b.userID)
	if err != nil {
		logger.L.Error("failed to fetch session history", "error", err)
		b.replace(nil)
		return
	}
	b.replace(sessions)
}

// Sessions returns the fetched list in server order.
func (b *Browser) Sessions() []api.SessionRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]api.SessionRecord, len(b.sessions))
	copy(out, b.sessions)
	return out
}

// Select marks the session with the given id as selected. Pure local state
// change: the list payload already carries full detail, so there is nothing
// to fetch. Returns false if the id is not in the list.
func (b *Browser) Select(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.sessions {
		if s.ID == id {
			b.selected = i
			return true
		}
	}
	return false
}

// Selected returns the currently selected session, if any.
func (b *Browser) Selected() (api.SessionRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selected < 0 || b.selected >= len(b.sessions) {
		return api.SessionRecord{}, false
	}
	return b.sessions[b.selected], true
}

// ClearSelection drops the current selection.
func (b *Browser) ClearSelection() {
	b.mu.Lock()
	b.selected = -1
	b.mu.Unlock()
}

func (b *Browser) replace(sessions []api.SessionRecord) {
	b.mu.Lock()
	b.sessions = sessions
	b.selected = -1
	b.mu.Unlock()
}
