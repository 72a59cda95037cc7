package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// File access for a session's sandbox. The HTTP file endpoints and the
// planner tools share these so containment is enforced in exactly one
// place, sandbox.Resolve.

// ReadFile returns a sandbox file's content, truncated at maxReadSize.
func (s *Session) ReadFile(path string) (string, error) {
	return readSandboxFile(s, path)
}

// ListFiles renders an indented listing of a sandbox directory.
func (s *Session) ListFiles(path string, maxDepth int) (string, error) {
	return listFiles(s, path, maxDepth)
}

// WriteFile creates or replaces a sandbox file, creating parents as needed.
func (s *Session) WriteFile(path, content string) error {
	abs, err := s.Sandbox.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		return fmt.Errorf("creating parent of %s: %w", path, err)
	}
	return os.WriteFile(abs, []byte(content), 0o600)
}

// DeleteFile removes a sandbox file. Removing an absent file is not an
// error.
func (s *Session) DeleteFile(path string) error {
	abs, err := s.Sandbox.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
