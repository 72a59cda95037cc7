// Package patch applies unified-diff operations to sandboxed files with
// containment checks, approval gating, and idempotent replay protection.
package patch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mukhil0212/Sentinel-RAG/internal/sandbox"
)

// OpType is the kind of filesystem mutation an Operation performs.
type OpType string

const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// Operation is one proposed file mutation. Diff is unified-diff text; for
// creates it applies against empty content, for deletes it is ignored.
type Operation struct {
	Type OpType `json:"type"`
	Path string `json:"path"`
	Diff string `json:"diff,omitempty"`
}

// Fingerprint identifies an operation for idempotency and approval caching.
// Two operations with the same type, path, and diff text are the same
// operation.
func (op *Operation) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(op.Type))
	h.Write([]byte{0})
	h.Write([]byte(op.Path))
	h.Write([]byte{0})
	h.Write([]byte(op.Diff))
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks structural preconditions before any I/O happens.
func (op *Operation) Validate() error {
	switch op.Type {
	case OpCreate, OpUpdate:
		if op.Diff == "" {
			return fmt.Errorf("%w: %s requires a diff", ErrInvalidOperation, op.Type)
		}
	case OpDelete:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOperation, op.Type)
	}
	if op.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidOperation)
	}
	return nil
}

// Result describes an applied (or skipped) operation with before/after
// content for diff rendering.
type Result struct {
	Type    OpType `json:"type"`
	Path    string `json:"path"`
	Diff    string `json:"diff,omitempty"`
	Before  string `json:"before,omitempty"`
	After   string `json:"after,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Approver decides whether an operation may mutate the sandbox. A denial
// reason, when non-empty, is surfaced to the caller in the ApprovalError.
type Approver interface {
	Approve(ctx context.Context, op *Operation) (approved bool, reason string, err error)
}

// AutoApprover approves every operation. Used once a human has already
// approved the containing proposal.
type AutoApprover struct{}

func (AutoApprover) Approve(context.Context, *Operation) (bool, string, error) {
	return true, "", nil
}

// Engine applies operations inside one sandbox. It is safe for concurrent
// use; the mutex also serializes filesystem mutation so interleaved
// operations on the same path cannot race.
type Engine struct {
	sandbox  *sandbox.Sandbox
	approver Approver
	logger   *zap.Logger

	mu        sync.Mutex
	applied   map[string]bool
	decisions map[string]decision
}

type decision struct {
	approved bool
	reason   string
}

// NewEngine creates a patch engine bound to sb. A nil approver means
// auto-approve.
func NewEngine(sb *sandbox.Sandbox, approver Approver, logger *zap.Logger) (*Engine, error) {
	if sb == nil {
		return nil, fmt.Errorf("%w: sandbox is required", ErrInvalidOperation)
	}
	if approver == nil {
		approver = AutoApprover{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		sandbox:   sb,
		approver:  approver,
		logger:    logger,
		applied:   make(map[string]bool),
		decisions: make(map[string]decision),
	}, nil
}

// Apply validates, gates, and performs one operation. The target file is
// never touched unless containment passes and the approver said yes; on any
// error the file keeps its prior content.
func (e *Engine) Apply(ctx context.Context, op *Operation) (*Result, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	// Containment before anything else, including approval: an operation
	// that escapes the sandbox is never worth asking about.
	target, err := e.sandbox.Resolve(op.Path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fp := op.Fingerprint()
	if e.applied[fp] {
		e.logger.Debug("skipping already-applied operation",
			zap.String("path", op.Path), zap.String("fingerprint", fp[:12]))
		return &Result{Type: op.Type, Path: op.Path, Diff: op.Diff, Skipped: true}, nil
	}

	if err := e.approve(ctx, op, fp); err != nil {
		return nil, err
	}

	res, err := e.perform(op, target)
	if err != nil {
		return nil, err
	}
	e.applied[fp] = true

	e.logger.Info("patch operation applied",
		zap.String("type", string(op.Type)), zap.String("path", op.Path))
	return res, nil
}

// ApplyAll applies operations in order, stopping at the first failure. The
// results of the operations that did apply are returned alongside the error.
func (e *Engine) ApplyAll(ctx context.Context, ops []*Operation) ([]*Result, error) {
	results := make([]*Result, 0, len(ops))
	for _, op := range ops {
		res, err := e.Apply(ctx, op)
		if err != nil {
			return results, fmt.Errorf("applying %s %s: %w", op.Type, op.Path, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Authorize records an external approval for a fingerprint, overriding any
// earlier cached denial. Used when a human approves a proposal after the
// same operations were gated during a planner turn.
func (e *Engine) Authorize(fingerprint string) {
	e.mu.Lock()
	e.decisions[fingerprint] = decision{approved: true}
	e.mu.Unlock()
}

// approve consults the approver once per unique fingerprint and caches the
// decision. Callers hold e.mu.
func (e *Engine) approve(ctx context.Context, op *Operation, fp string) error {
	d, asked := e.decisions[fp]
	if !asked {
		approved, reason, err := e.approver.Approve(ctx, op)
		if err != nil {
			return fmt.Errorf("approval check for %s: %w", op.Path, err)
		}
		d = decision{approved: approved, reason: reason}
		e.decisions[fp] = d
	}
	if !d.approved {
		return &ApprovalError{Path: op.Path, Reason: d.reason}
	}
	return nil
}

func (e *Engine) perform(op *Operation, target string) (*Result, error) {
	res := &Result{Type: op.Type, Path: op.Path, Diff: op.Diff}

	switch op.Type {
	case OpCreate:
		if _, err := os.Stat(target); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrExists, op.Path)
		}
		content, err := ApplyDiff("", op.Diff)
		if err != nil {
			return nil, conflictAt(op.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return nil, fmt.Errorf("creating parent of %s: %w", op.Path, err)
		}
		if err := os.WriteFile(target, []byte(content), 0o600); err != nil {
			return nil, fmt.Errorf("writing %s: %w", op.Path, err)
		}
		res.After = content

	case OpUpdate:
		raw, err := os.ReadFile(target)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, op.Path)
			}
			return nil, fmt.Errorf("reading %s: %w", op.Path, err)
		}
		before := string(raw)
		after, err := ApplyDiff(before, op.Diff)
		if err != nil {
			return nil, conflictAt(op.Path, err)
		}
		if err := writeAtomic(target, []byte(after)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", op.Path, err)
		}
		res.Before = before
		res.After = after

	case OpDelete:
		if raw, err := os.ReadFile(target); err == nil {
			res.Before = string(raw)
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing %s: %w", op.Path, err)
		}
	}

	return res, nil
}

// conflictAt attaches the operation path to conflict errors coming out of
// the diff engine.
func conflictAt(path string, err error) error {
	if ce, ok := err.(*ConflictError); ok {
		ce.Path = path
		return ce
	}
	return err
}

// writeAtomic writes content to a temp file in the target's directory and
// renames it into place, so a failed write never leaves a half-updated file.
func writeAtomic(target string, content []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".patch-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
