package patch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukhil0212/Sentinel-RAG/internal/sandbox"
)

func testSandbox(t *testing.T) *sandbox.Sandbox {
	t.Helper()
	return &sandbox.Sandbox{ID: "test", Root: t.TempDir()}
}

func seedFile(t *testing.T, sb *sandbox.Sandbox, rel, content string) {
	t.Helper()
	path := filepath.Join(sb.Root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, sb *sandbox.Sandbox, rel string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(sb.Root, rel))
	require.NoError(t, err)
	return string(raw)
}

// recordingApprover counts how often it is consulted.
type recordingApprover struct {
	approved bool
	reason   string
	calls    int
}

func (a *recordingApprover) Approve(context.Context, *Operation) (bool, string, error) {
	a.calls++
	return a.approved, a.reason, nil
}

func TestEngineUpdate(t *testing.T) {
	sb := testSandbox(t)
	seedFile(t, sb, "main.tf", bucketOriginal)

	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	res, err := e.Apply(context.Background(), &Operation{Type: OpUpdate, Path: "main.tf", Diff: bucketDiff})
	require.NoError(t, err)

	assert.Equal(t, bucketOriginal, res.Before)
	assert.Contains(t, res.After, `acl    = "private"`)
	assert.Equal(t, res.After, readFile(t, sb, "main.tf"))
}

func TestEngineCreateAndDelete(t *testing.T) {
	sb := testSandbox(t)
	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	createDiff := "@@ -0,0 +1,1 @@\n+region = \"eu-west-1\"\n"
	res, err := e.Apply(context.Background(), &Operation{Type: OpCreate, Path: "env/prod.tfvars", Diff: createDiff})
	require.NoError(t, err)
	assert.Equal(t, "region = \"eu-west-1\"\n", res.After)
	assert.Equal(t, res.After, readFile(t, sb, "env/prod.tfvars"))

	res, err = e.Apply(context.Background(), &Operation{Type: OpDelete, Path: "env/prod.tfvars"})
	require.NoError(t, err)
	assert.Equal(t, "region = \"eu-west-1\"\n", res.Before)
	_, statErr := os.Stat(filepath.Join(sb.Root, "env/prod.tfvars"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEngineContainment(t *testing.T) {
	sb := testSandbox(t)
	outside := filepath.Join(filepath.Dir(sb.Root), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("untouched\n"), 0o644))

	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	for _, path := range []string{"../victim.txt", "/etc/passwd", "a/../../victim.txt"} {
		_, err := e.Apply(context.Background(), &Operation{Type: OpDelete, Path: path})
		assert.ErrorIs(t, err, sandbox.ErrContainment, "path %q must be rejected", path)
	}

	raw, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Equal(t, "untouched\n", string(raw))
}

func TestEngineIdempotentReplay(t *testing.T) {
	sb := testSandbox(t)
	seedFile(t, sb, "main.tf", bucketOriginal)

	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	op := &Operation{Type: OpUpdate, Path: "main.tf", Diff: bucketDiff}
	first, err := e.Apply(context.Background(), op)
	require.NoError(t, err)
	require.False(t, first.Skipped)

	// Replaying the identical operation must not re-apply the diff, which
	// would otherwise conflict against the already-patched content.
	second, err := e.Apply(context.Background(), op)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.After, readFile(t, sb, "main.tf"))
}

func TestEngineConflictPreservesOriginal(t *testing.T) {
	sb := testSandbox(t)
	seedFile(t, sb, "main.tf", bucketOriginal)

	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	stale := "@@ -1,1 +1,1 @@\n-  acl = \"authenticated-read\"\n+  acl = \"private\"\n"
	_, err = e.Apply(context.Background(), &Operation{Type: OpUpdate, Path: "main.tf", Diff: stale})
	require.ErrorIs(t, err, ErrConflict)

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "main.tf", ce.Path)
	assert.Equal(t, bucketOriginal, readFile(t, sb, "main.tf"))
}

func TestEngineApprovalDenied(t *testing.T) {
	sb := testSandbox(t)
	seedFile(t, sb, "main.tf", bucketOriginal)

	approver := &recordingApprover{approved: false, reason: "too risky"}
	e, err := NewEngine(sb, approver, nil)
	require.NoError(t, err)

	op := &Operation{Type: OpUpdate, Path: "main.tf", Diff: bucketDiff}
	_, err = e.Apply(context.Background(), op)
	require.ErrorIs(t, err, ErrApprovalDenied)

	var ae *ApprovalError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "too risky", ae.Reason)
	assert.Equal(t, bucketOriginal, readFile(t, sb, "main.tf"))

	// The denial is cached per fingerprint, not re-asked.
	_, err = e.Apply(context.Background(), op)
	require.ErrorIs(t, err, ErrApprovalDenied)
	assert.Equal(t, 1, approver.calls)
}

func TestEngineCreateExisting(t *testing.T) {
	sb := testSandbox(t)
	seedFile(t, sb, "main.tf", "present\n")

	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	_, err = e.Apply(context.Background(), &Operation{Type: OpCreate, Path: "main.tf", Diff: "@@ -0,0 +1,1 @@\n+x\n"})
	assert.ErrorIs(t, err, ErrExists)
	assert.Equal(t, "present\n", readFile(t, sb, "main.tf"))
}

func TestEngineUpdateMissing(t *testing.T) {
	sb := testSandbox(t)
	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	_, err = e.Apply(context.Background(), &Operation{Type: OpUpdate, Path: "gone.tf", Diff: bucketDiff})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngineValidation(t *testing.T) {
	sb := testSandbox(t)
	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	for _, op := range []*Operation{
		{Type: "rename", Path: "a.tf"},
		{Type: OpUpdate, Path: ""},
		{Type: OpCreate, Path: "a.tf", Diff: ""},
	} {
		_, err := e.Apply(context.Background(), op)
		assert.ErrorIs(t, err, ErrInvalidOperation)
	}
}

func TestEngineApplyAllStopsAtFailure(t *testing.T) {
	sb := testSandbox(t)
	seedFile(t, sb, "main.tf", bucketOriginal)

	e, err := NewEngine(sb, nil, nil)
	require.NoError(t, err)

	ops := []*Operation{
		{Type: OpUpdate, Path: "main.tf", Diff: bucketDiff},
		{Type: OpUpdate, Path: "missing.tf", Diff: bucketDiff},
		{Type: OpCreate, Path: "never.tf", Diff: "@@ -0,0 +1,1 @@\n+x\n"},
	}

	results, err := e.ApplyAll(context.Background(), ops)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, results, 1)
	_, statErr := os.Stat(filepath.Join(sb.Root, "never.tf"))
	assert.True(t, os.IsNotExist(statErr), "operations after the failure must not run")
}

func TestOperationFingerprint(t *testing.T) {
	a := &Operation{Type: OpUpdate, Path: "main.tf", Diff: "x"}
	b := &Operation{Type: OpUpdate, Path: "main.tf", Diff: "x"}
	c := &Operation{Type: OpDelete, Path: "main.tf", Diff: "x"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}
