// Package journal mirrors every turn of the live session into a local SQLite
// file for diagnostics. The database is opened lazily and created on first
// use. If opening the DB or executing queries fails, the journal falls back to
// in-memory storage so the conversation is never interrupted. It is write-side
// only: nothing here feeds back into the live log or substitutes for the
// remote session store.
package journal

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/havenchat/haven-go/internal/config"
	"github.com/havenchat/haven-go/internal/logger"
	"github.com/havenchat/haven-go/internal/transcript"
)

// Entry is one journaled turn.
type Entry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal is a local, append-only record of turns keyed by session id.
type Journal struct {
	path string

	once    sync.Once
	db      *sql.DB
	openErr error

	mu  sync.Mutex
	mem []Entry // in-memory fallback
}

// New creates a journal backed by the configured file path.
func New(cfg config.JournalConfig) *Journal {
	path := cfg.Path
	if path == "" {
		path = "haven.db"
	}
	return &Journal{path: path}
}

// open lazily opens the SQLite database and creates the turns table if it
// doesn't exist.
func (j *Journal) open() {
	db, err := sql.Open("sqlite", "file:"+j.path+"?_busy_timeout=10000")
	if err != nil {
		j.openErr = err
		logger.L.Warn("sqlite open failed; journaling in memory only", "path", j.path, "error", err)
		return
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS turns (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT,
        role TEXT,
        content TEXT,
        created_at DATETIME
    );`); err != nil {
		j.openErr = err
		logger.L.Warn("sqlite table creation failed; journaling in memory only", "path", j.path, "error", err)
		return
	}
	j.db = db
	logger.L.Info("turn journal initialized", "path", j.path)
}

// Record persists a turn to the SQLite journal when available and always keeps
// an in-memory copy as fallback. Failures are logged, never returned; the
// caller's conversation must not stall on local bookkeeping.
func (j *Journal) Record(sessionID string, t transcript.Turn) {
	j.once.Do(j.open)

	if j.openErr == nil && j.db != nil {
		if _, err := j.db.Exec(
			`INSERT INTO turns (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			sessionID, string(t.Role), t.Content, t.CreatedAt,
		); err != nil {
			logger.L.Error("failed to journal turn in sqlite; keeping in-memory copy", "error", err)
		}
	}

	j.mu.Lock()
	j.mem = append(j.mem, Entry{
		SessionID: sessionID,
		Role:      string(t.Role),
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
	})
	j.mu.Unlock()
}

// Entries returns all journaled turns of a session in chronological order.
func (j *Journal) Entries(sessionID string) []Entry {
	j.once.Do(j.open)

	if j.openErr == nil && j.db != nil {
		rows, err := j.db.Query(
			`SELECT id, session_id, role, content, created_at FROM turns WHERE session_id = ? ORDER BY id ASC;`,
			sessionID,
		)
		if err == nil {
			defer rows.Close()
			var out []Entry
			for rows.Next() {
				var e Entry
				if err := rows.Scan(&e.ID, &e.SessionID, &e.Role, &e.Content, &e.CreatedAt); err == nil {
					out = append(out, e)
				}
			}
			return out
		}
		logger.L.Error("failed to read journal from sqlite; using in-memory copy", "error", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Entry
	for _, e := range j.mem {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// Close releases the underlying database, if one was opened.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
