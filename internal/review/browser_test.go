package review_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/havenchat/haven-go/internal/api"
	"github.com/havenchat/haven-go/internal/review"
)

type mockClient struct {
	records []api.SessionRecord
	err     error
	calls   int
}

func (m *mockClient) ListSessions(_ context.Context, _ string) ([]api.SessionRecord, error) {
	m.calls++
	return m.records, m.err
}

func sampleRecords() []api.SessionRecord {
	return []api.SessionRecord{
		{ID: 7, StartTime: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC), Summary: "newest"},
		{ID: 3, StartTime: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC), Summary: "older"},
	}
}

func TestRefresh_PreservesServerOrder(t *testing.T) {
	client := &mockClient{records: sampleRecords()}
	b := review.NewBrowser(client, "user-1")

	b.Refresh(context.Background())

	got := b.Sessions()
	require.Len(t, got, 2)
	require.Equal(t, int64(7), got[0].ID)
	require.Equal(t, int64(3), got[1].ID)
}

func TestRefresh_FailureYieldsEmptyList(t *testing.T) {
	client := &mockClient{err: errors.New("service down")}
	b := review.NewBrowser(client, "user-1")

	b.Refresh(context.Background())

	require.Empty(t, b.Sessions())
	_, ok := b.Selected()
	require.False(t, ok)
}

func TestRefresh_MissingIdentitySkipsNetwork(t *testing.T) {
	client := &mockClient{records: sampleRecords()}
	b := review.NewBrowser(client, "")

	b.Refresh(context.Background())

	require.Equal(t, 0, client.calls)
	require.Empty(t, b.Sessions())
}

func TestSelect_IsLocal(t *testing.T) {
	client := &mockClient{records: sampleRecords()}
	b := review.NewBrowser(client, "user-1")
	b.Refresh(context.Background())
	require.Equal(t, 1, client.calls)

	require.True(t, b.Select(3))
	selected, ok := b.Selected()
	require.True(t, ok)
	require.Equal(t, "older", selected.Summary)

	require.False(t, b.Select(99))
	// a failed select keeps the previous selection
	selected, ok = b.Selected()
	require.True(t, ok)
	require.Equal(t, int64(3), selected.ID)

	b.ClearSelection()
	_, ok = b.Selected()
	require.False(t, ok)

	// selection never triggered another fetch
	require.Equal(t, 1, client.calls)
}

func TestRefresh_DropsStaleSelection(t *testing.T) {
	client := &mockClient{records: sampleRecords()}
	b := review.NewBrowser(client, "user-1")
	b.Refresh(context.Background())
	require.True(t, b.Select(7))

	client.records = nil
	b.Refresh(context.Background())

	_, ok := b.Selected()
	require.False(t, ok)
}
