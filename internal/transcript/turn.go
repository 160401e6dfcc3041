package transcript

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a turn. The set is closed; consumers switch
// exhaustively over it and reject anything else at decode boundaries.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

var (
	ErrEmptyContent = errors.New("user turn content must not be empty")
	ErrUnknownRole  = errors.New("unknown turn role")
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// SpeakerTag returns the wire tag used in history pairs sent to the service.
// System turns carry no tag: they are local diagnostics and never leave the
// client.
func (r Role) SpeakerTag() (string, bool) {
	switch r {
	case RoleUser:
		return "human", true
	case RoleAssistant:
		return "assistant", true
	case RoleSystem:
		return "", false
	}
	return "", false
}

// Turn is one exchange unit in a conversation. Immutable once appended to a Log.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn builds a turn with a fresh identifier and timestamp. User turns must
// have non-empty content after trimming; other roles have no content rule.
func NewTurn(role Role, content string) (Turn, error) {
	if !role.Valid() {
		return Turn{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if role == RoleUser && strings.TrimSpace(content) == "" {
		return Turn{}, ErrEmptyContent
	}
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}
