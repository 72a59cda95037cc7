// Package planner defines the boundary to the reasoning engine that drives
// remediation turns. The session service owns the conversation; a Planner
// only sees one turn at a time plus a continuation token to resume from.
package planner

import (
	"context"

	"github.com/mukhil0212/Sentinel-RAG/internal/patch"
	"github.com/mukhil0212/Sentinel-RAG/internal/stream"
)

// Toolset is the set of sandbox-bound capabilities a planner may invoke
// during a turn. The session service supplies implementations that are
// already scoped to the session's sandbox; planners never see paths outside
// it.
type Toolset struct {
	// Scan runs the scanner pipeline and returns the formatted report.
	Scan func(ctx context.Context, target, kind string) (string, error)

	// ListFiles renders a directory tree rooted at a sandbox-relative path.
	ListFiles func(ctx context.Context, path string, maxDepth int) (string, error)

	// ReadFile returns the content of a sandbox-relative file.
	ReadFile func(ctx context.Context, path string) (string, error)

	// ApplyPatch applies diff operations through the session's patch engine.
	ApplyPatch func(ctx context.Context, ops []*patch.Operation) ([]*patch.Result, error)
}

// TurnRequest carries one user message into the planner.
type TurnRequest struct {
	// SandboxRoot is informational only; tools are already sandbox-bound.
	SandboxRoot string

	// ContinuationToken resumes the planner's prior conversation state.
	// Empty for the first turn of a session.
	ContinuationToken string

	// Message is the user's text for this turn.
	Message string

	// Tools are the capabilities available during the turn.
	Tools *Toolset

	// Emit relays a raw upstream payload. Payloads are normalized through
	// stream.Normalize by the caller; emit order is preserved. Emit is nil
	// on turns with no event consumer, such as the rejection re-prompt;
	// planners should call EmitEvent, which tolerates that.
	Emit func(raw any)
}

// TurnResult is the planner's final answer for a turn.
type TurnResult struct {
	FinalText         string
	ContinuationToken string
}

// Planner produces one conversational turn. Implementations must emit events
// in order and return only after all events for the turn are emitted; the
// caller appends the terminal done event.
type Planner interface {
	Turn(ctx context.Context, req *TurnRequest) (*TurnResult, error)
}

// EmitEvent is a convenience for planner implementations that already build
// stream.Event values.
func EmitEvent(req *TurnRequest, ev stream.Event) {
	if req.Emit != nil {
		req.Emit(ev)
	}
}
