package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDiff indicates diff text with no parseable hunks.
	ErrMalformedDiff = errors.New("patch: malformed unified diff")

	// ErrConflict indicates a diff that does not apply cleanly.
	ErrConflict = errors.New("patch: diff does not apply cleanly")

	// ErrApprovalDenied indicates the approver rejected the operation.
	ErrApprovalDenied = errors.New("patch: operation rejected")

	// ErrExists indicates a create against an existing file.
	ErrExists = errors.New("patch: target already exists")

	// ErrNotFound indicates an update against a missing file.
	ErrNotFound = errors.New("patch: target does not exist")

	// ErrInvalidOperation indicates an operation failing validation.
	ErrInvalidOperation = errors.New("patch: invalid operation")
)

// ConflictError reports where and why a diff failed to apply so the caller
// can surface enough detail to regenerate it.
type ConflictError struct {
	Path   string
	Line   int
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("patch conflict in %s: %s", e.Path, e.Detail)
	}
	return "patch conflict: " + e.Detail
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ApprovalError reports a rejected operation along with the reason the
// approver gave, if any.
type ApprovalError struct {
	Path   string
	Reason string
}

func (e *ApprovalError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("operation on %s rejected: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("operation on %s rejected", e.Path)
}

func (e *ApprovalError) Unwrap() error { return ErrApprovalDenied }
