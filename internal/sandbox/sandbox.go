// Package sandbox manages isolated per-session workspaces. Every other
// component operates only on paths resolved through a Sandbox, which is the
// containment boundary for all filesystem mutation.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mukhil0212/Sentinel-RAG/internal/sanitize"
)

// Sentinel errors returned by the sandbox package.
var (
	// ErrContainment indicates a path resolved outside the sandbox root.
	ErrContainment = errors.New("sandbox: path escapes sandbox root")

	// ErrRootUnwritable indicates the configured sandbox root cannot be created
	// or written to.
	ErrRootUnwritable = errors.New("sandbox: root is not writable")
)

// skipDirs are directories never copied into a seeded sandbox. They are either
// large, regenerable, or unsafe to scan.
var skipDirs = map[string]bool{
	".git":         true,
	".sentinel":    true,
	".venv":        true,
	"node_modules": true,
	"vendor":       true,
}

// Sandbox is an isolated, uniquely-identified workspace directory.
type Sandbox struct {
	ID   string
	Root string
}

// Resolve canonicalizes a caller-supplied relative path against the sandbox
// root. It fails with ErrContainment if the result is not the root itself or
// a descendant of it. This guards both `../` traversal and absolute-path
// override attempts.
func (s *Sandbox) Resolve(relative string) (string, error) {
	abs, err := sanitize.ValidatePath(relative, s.Root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContainment, err)
	}
	return abs, nil
}

// Manager creates and destroys sandboxes under a configured root directory.
type Manager struct {
	root   string
	logger *zap.Logger
}

// NewManager creates a sandbox manager rooted at dir.
func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("sandbox root is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{root: dir, logger: logger}, nil
}

// Create allocates a fresh, empty sandbox directory.
func (m *Manager) Create(ctx context.Context) (*Sandbox, error) {
	if err := os.MkdirAll(m.root, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootUnwritable, err)
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	path := filepath.Join(m.root, id)
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootUnwritable, err)
	}

	m.logger.Debug("sandbox created", zap.String("sandbox_id", id), zap.String("root", path))
	return &Sandbox{ID: id, Root: path}, nil
}

// CreateFrom allocates a fresh sandbox seeded with a copy of seedDir,
// skipping VCS and dependency directories.
func (m *Manager) CreateFrom(ctx context.Context, seedDir string) (*Sandbox, error) {
	sb, err := m.Create(ctx)
	if err != nil {
		return nil, err
	}

	if err := copyTree(seedDir, sb.Root); err != nil {
		m.Destroy(sb)
		return nil, fmt.Errorf("failed to seed sandbox from %s: %w", seedDir, err)
	}

	m.logger.Debug("sandbox seeded", zap.String("sandbox_id", sb.ID), zap.String("seed", seedDir))
	return sb, nil
}

// Destroy recursively removes the sandbox directory. Best-effort: failures
// are logged, never fatal to the caller.
func (m *Manager) Destroy(sb *Sandbox) {
	if sb == nil || sb.Root == "" {
		return
	}
	// Refuse to remove anything outside the manager's root.
	if _, err := sanitize.ValidatePath(sb.Root, m.root); err != nil {
		m.logger.Warn("refusing to destroy sandbox outside root",
			zap.String("sandbox_id", sb.ID), zap.Error(err))
		return
	}
	if err := os.RemoveAll(sb.Root); err != nil {
		m.logger.Warn("failed to destroy sandbox",
			zap.String("sandbox_id", sb.ID), zap.Error(err))
		return
	}
	m.logger.Debug("sandbox destroyed", zap.String("sandbox_id", sb.ID))
}

// copyTree copies src into dst, skipping skipDirs and symlinks.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o700)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, filepath.Join(dst, rel))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
