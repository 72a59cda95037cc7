package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLite persists sessions and messages in a local database file.
type SQLite struct {
	db *sql.DB
}

// Open opens the SQLite database at path and creates tables if they don't
// exist. On failure it returns a Noop store and logs a warning: persistence
// is never a reason to refuse sessions.
func Open(path string, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return Noop{}
	}

	s, err := NewSQLite(path)
	if err != nil {
		logger.Warn("session store unavailable, continuing without persistence",
			zap.String("path", path), zap.Error(err))
		return Noop{}
	}
	return s
}

// NewSQLite opens the database at path, failing instead of degrading.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		sandbox_id TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSession records a new session bound to its sandbox.
func (s *SQLite) CreateSession(id, sandboxID string) error {
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, sandbox_id, state, created_at, updated_at)
		 VALUES (?, ?, 'idle', ?, ?)`,
		id, sandboxID, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UpdateSessionState records a state transition.
func (s *SQLite) UpdateSessionState(id, state string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// AddMessage appends a conversation entry to the session.
func (s *SQLite) AddMessage(sessionID, role, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (session_id, role, content, timestamp)
		 VALUES (?, ?, ?, ?)`,
		sessionID, role, content, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages retrieves all messages for a session in chronological order.
func (s *SQLite) ListMessages(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, role, content, timestamp
		 FROM messages
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return messages, nil
}
