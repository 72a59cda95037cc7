// Package sanitize provides the single path-safety policy shared by every
// component that accepts caller-supplied paths (sandbox resolution, the patch
// engine, planner tools, and the HTTP file endpoints).
package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validation errors for path security checks.
var (
	// ErrPathTraversal indicates a path contains or resolves to directory traversal.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrAbsolutePath indicates an absolute path was provided where relative was expected.
	ErrAbsolutePath = errors.New("absolute path not allowed")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")
)

// hasDotDotSegment reports whether any path segment is exactly "..".
// Filenames merely containing dots, like "app..tf", are not traversal.
func hasDotDotSegment(path string) bool {
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	}) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// ValidatePath checks a path for security issues:
//   - No ".." path segment, before or after cleaning
//   - Resolves to an absolute path and validates it stays within allowedRoot
//   - Returns the cleaned, absolute path or an error
//
// If allowedRoot is empty, only traversal checks are performed. If allowedRoot
// is provided, the path must resolve to the root itself or a descendant of it.
func ValidatePath(path, allowedRoot string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	// Check for obvious traversal patterns before any processing.
	if hasDotDotSegment(path) {
		return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
	}

	cleanPath := filepath.Clean(path)

	// Re-check after cleaning (handles edge cases like "foo/../..").
	if hasDotDotSegment(cleanPath) {
		return "", fmt.Errorf("%w: resolves to traversal", ErrPathTraversal)
	}

	absPath := cleanPath
	if !filepath.IsAbs(cleanPath) {
		if allowedRoot != "" {
			absPath = filepath.Join(allowedRoot, cleanPath)
		} else {
			var err error
			absPath, err = filepath.Abs(cleanPath)
			if err != nil {
				return "", fmt.Errorf("failed to resolve path: %w", err)
			}
		}
	}

	if allowedRoot != "" {
		absRoot, err := filepath.Abs(allowedRoot)
		if err != nil {
			return "", fmt.Errorf("failed to resolve allowed root: %w", err)
		}

		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil {
			return "", fmt.Errorf("%w: path outside allowed root", ErrPathTraversal)
		}

		// If the relative path starts with "..", it's outside the root.
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: path escapes allowed root", ErrPathTraversal)
		}
	}

	return absPath, nil
}

// ValidateRelative checks a sandbox-relative path: it must be non-empty,
// non-absolute, and free of traversal. Returns the cleaned relative path.
// Leading path separators are stripped so scanner output like "/main.tf"
// normalizes to "main.tf".
func ValidateRelative(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	trimmed := strings.TrimLeft(path, "/\\")
	if trimmed == "" {
		return "", fmt.Errorf("%w: %q", ErrAbsolutePath, path)
	}
	if filepath.IsAbs(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrAbsolutePath, path)
	}
	if hasDotDotSegment(trimmed) {
		return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
	}

	clean := filepath.Clean(trimmed)
	if hasDotDotSegment(clean) {
		return "", fmt.Errorf("%w: resolves to traversal", ErrPathTraversal)
	}

	return clean, nil
}
