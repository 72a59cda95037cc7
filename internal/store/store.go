// Package store persists session history. Persistence is best-effort: the
// engine works entirely in memory, and the store exists so operators can
// audit what was proposed and approved after the fact.
package store

import "time"

// Message is one persisted conversation entry.
type Message struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	Timestamp time.Time
}

// Store persists sessions and their message history.
type Store interface {
	// CreateSession records a new session and its sandbox binding.
	CreateSession(id, sandboxID string) error

	// UpdateSessionState records a state transition.
	UpdateSessionState(id, state string) error

	// AddMessage appends a conversation entry.
	AddMessage(sessionID, role, content string) error

	// ListMessages returns a session's messages in chronological order.
	ListMessages(sessionID string) ([]Message, error)

	// Close releases the underlying storage.
	Close() error
}

// Noop discards everything. Used when no store path is configured or the
// database cannot be opened.
type Noop struct{}

func (Noop) CreateSession(string, string) error      { return nil }
func (Noop) UpdateSessionState(string, string) error { return nil }
func (Noop) AddMessage(string, string, string) error { return nil }
func (Noop) ListMessages(string) ([]Message, error)  { return nil, nil }
func (Noop) Close() error                            { return nil }
