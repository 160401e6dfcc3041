package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/havenchat/haven-go/internal/config"
	"github.com/havenchat/haven-go/internal/transcript"
)

func TestRecordAndEntries(t *testing.T) {
	j := New(config.JournalConfig{Path: filepath.Join(t.TempDir(), "journal.db")})
	defer j.Close()

	user, err := transcript.NewTurn(transcript.RoleUser, "hello")
	require.NoError(t, err)
	assistant, err := transcript.NewTurn(transcript.RoleAssistant, "hi there")
	require.NoError(t, err)

	j.Record("session-a", user)
	j.Record("session-a", assistant)
	j.Record("session-b", user)

	entries := j.Entries("session-a")
	require.Len(t, entries, 2)
	require.Equal(t, "user", entries[0].Role)
	require.Equal(t, "hello", entries[0].Content)
	require.Equal(t, "assistant", entries[1].Role)

	require.Len(t, j.Entries("session-b"), 1)
	require.Empty(t, j.Entries("session-c"))
}

func TestMemoryFallback(t *testing.T) {
	// a path inside a file that is not a directory cannot be created
	bad := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, writeFile(bad))
	j := New(config.JournalConfig{Path: filepath.Join(bad, "journal.db")})
	defer j.Close()

	turn, err := transcript.NewTurn(transcript.RoleUser, "hello")
	require.NoError(t, err)
	j.Record("session-a", turn)

	entries := j.Entries("session-a")
	require.Len(t, entries, 1)
	require.Equal(t, "hello", entries[0].Content)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}
