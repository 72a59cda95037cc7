package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteRoundTrip(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateSession("sess-1", "box-1"))
	require.NoError(t, s.UpdateSessionState("sess-1", "proposed"))
	require.NoError(t, s.AddMessage("sess-1", "user", "fix the bucket ACL"))
	require.NoError(t, s.AddMessage("sess-1", "assistant", "proposed a patch"))

	msgs, err := s.ListMessages("sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "fix the bucket ACL", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)

	other, err := s.ListMessages("sess-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestOpenDegradesToNoop(t *testing.T) {
	// A directory path cannot be opened as a database file.
	s := Open(t.TempDir(), zap.NewNop())
	_, isNoop := s.(Noop)
	assert.True(t, isNoop)

	assert.NoError(t, s.CreateSession("x", "y"))
	assert.NoError(t, s.Close())

	s = Open("", zap.NewNop())
	_, isNoop = s.(Noop)
	assert.True(t, isNoop)
}
