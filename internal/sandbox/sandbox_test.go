package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndDestroy(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "sandboxes"), nil)
	require.NoError(t, err)

	sb, err := m.Create(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sb.ID)

	info, err := os.Stat(sb.Root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Fresh sandbox is empty.
	entries, err := os.ReadDir(sb.Root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	m.Destroy(sb)
	_, err = os.Stat(sb.Root)
	assert.True(t, os.IsNotExist(err))

	// Destroying twice is harmless.
	m.Destroy(sb)
}

func TestCreateUniqueIDs(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	a, err := m.Create(context.Background())
	require.NoError(t, err)
	b, err := m.Create(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Root, b.Root)
}

func TestCreateFromSkipsUnsafeDirs(t *testing.T) {
	seed := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(seed, "main.tf"), []byte("resource {}\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(seed, "modules", "vpc"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(seed, "modules", "vpc", "vpc.tf"), []byte("# vpc\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(seed, ".git", "objects"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(seed, ".git", "HEAD"), []byte("ref\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(seed, "node_modules", "pkg"), 0o700))

	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	sb, err := m.CreateFrom(context.Background(), seed)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(sb.Root, "main.tf"))
	require.NoError(t, err)
	assert.Equal(t, "resource {}\n", string(content))

	_, err = os.Stat(filepath.Join(sb.Root, "modules", "vpc", "vpc.tf"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(sb.Root, ".git"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(sb.Root, "node_modules"))
	assert.True(t, os.IsNotExist(err))
}

func TestResolveContainment(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	sb, err := m.Create(context.Background())
	require.NoError(t, err)

	abs, err := sb.Resolve("main.tf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Root, "main.tf"), abs)

	for _, p := range []string{"../escape.tf", "a/../../escape.tf", "/etc/passwd", ""} {
		_, err := sb.Resolve(p)
		assert.ErrorIs(t, err, ErrContainment, "path %q must be rejected", p)
	}
}
