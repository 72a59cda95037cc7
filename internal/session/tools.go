package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mukhil0212/Sentinel-RAG/internal/patch"
	"github.com/mukhil0212/Sentinel-RAG/internal/planner"
	"github.com/mukhil0212/Sentinel-RAG/internal/scan"
)

// maxReadSize caps read_file output so a planner cannot pull an arbitrarily
// large file into its context.
const maxReadSize = 256 * 1024

// defaultListDepth bounds directory listings when the planner does not ask
// for a depth.
const defaultListDepth = 3

// listSkipDirs are never descended into when listing sandbox files.
var listSkipDirs = map[string]bool{
	".git":         true,
	".terraform":   true,
	".venv":        true,
	"node_modules": true,
	"vendor":       true,
}

// toolsFor builds the sandbox-bound toolset handed to the planner for one
// turn. Every path crosses sandbox.Resolve; the planner never receives a
// capability that can reach outside the session's sandbox.
func (s *service) toolsFor(sess *Session) *planner.Toolset {
	return &planner.Toolset{
		Scan: func(ctx context.Context, target, kind string) (string, error) {
			sess.State = StateScanning
			defer func() { sess.State = StateIdle }()

			report, err := s.pipeline.Run(ctx, sess.Sandbox.Root, scan.Options{Target: target, Kind: kind})
			if err != nil {
				return "", err
			}
			sess.flagged = report.IDs()
			return report.Format(), nil
		},

		ListFiles: func(ctx context.Context, path string, maxDepth int) (string, error) {
			return listFiles(sess, path, maxDepth)
		},

		ReadFile: func(ctx context.Context, path string) (string, error) {
			return readSandboxFile(sess, path)
		},

		ApplyPatch: func(ctx context.Context, ops []*patch.Operation) ([]*patch.Result, error) {
			return sess.engine.ApplyAll(ctx, ops)
		},
	}
}

// listFiles renders an indented listing of a sandbox directory.
func listFiles(sess *Session, path string, maxDepth int) (string, error) {
	if path == "" {
		path = "."
	}
	if maxDepth <= 0 {
		maxDepth = defaultListDepth
	}

	root, err := sess.Sandbox.Resolve(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := listDir(&b, root, 0, maxDepth); err != nil {
		return "", err
	}
	if b.Len() == 0 {
		return "(empty)\n", nil
	}
	return b.String(), nil
}

func listDir(b *strings.Builder, dir string, depth, maxDepth int) error {
	if depth >= maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		if e.IsDir() {
			if listSkipDirs[e.Name()] {
				continue
			}
			fmt.Fprintf(b, "%s%s/\n", indent, e.Name())
			if err := listDir(b, filepath.Join(dir, e.Name()), depth+1, maxDepth); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(b, "%s%s\n", indent, e.Name())
	}
	return nil
}

// readSandboxFile returns a sandbox file's content, truncated at
// maxReadSize.
func readSandboxFile(sess *Session, path string) (string, error) {
	abs, err := sess.Sandbox.Resolve(path)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	if len(raw) > maxReadSize {
		return string(raw[:maxReadSize]) + "\n... (truncated)\n", nil
	}
	return string(raw), nil
}
