package session

import (
	"errors"
	"sync"

	"github.com/mukhil0212/Sentinel-RAG/internal/patch"
	"github.com/mukhil0212/Sentinel-RAG/internal/sandbox"
)

// State is the remediation lifecycle position of a session.
type State string

const (
	// StateIdle means the session is waiting for input.
	StateIdle State = "idle"

	// StateScanning means a scanner pipeline run is in progress.
	StateScanning State = "scanning"

	// StateProposed means a patch proposal is awaiting an approval decision.
	StateProposed State = "proposed"

	// StateApplying means an approved proposal is being applied.
	StateApplying State = "applying"

	// StateVerifying means a post-apply rescan is in progress.
	StateVerifying State = "verifying"

	// StateRejected means the last proposal was rejected and the planner is
	// being re-prompted.
	StateRejected State = "rejected"
)

var (
	// ErrNotFound indicates an unknown session ID.
	ErrNotFound = errors.New("session: not found")

	// ErrNoPendingPatch indicates an approval decision with nothing proposed.
	ErrNoPendingPatch = errors.New("session: no pending patch")
)

// Session is one isolated remediation conversation. All mutation of a
// session happens under mu; SendMessage and Approve serialize on it, so a
// session has at most one outstanding turn.
type Session struct {
	ID                string
	Sandbox           *sandbox.Sandbox
	State             State
	ContinuationToken string

	// PendingDiff is the unified-diff text extracted from the planner's
	// last final answer, empty when nothing is proposed.
	PendingDiff string

	// flagged holds the finding IDs of the most recent scan; verification
	// after an apply checks these against the rescan.
	flagged []string

	engine *patch.Engine
	mu     sync.Mutex
}

// Decision is the outcome of an approval call.
type Decision struct {
	// Approved echoes the caller's verdict.
	Approved bool `json:"approved"`

	// Applied lists the per-operation results of an approved proposal.
	Applied []*patch.Result `json:"applied,omitempty"`

	// Verified is true when the post-apply rescan completed.
	Verified bool `json:"verified"`

	// ResolvedIDs are previously flagged findings absent after the rescan.
	ResolvedIDs []string `json:"resolved_ids,omitempty"`

	// RemainingIDs are previously flagged findings still present.
	RemainingIDs []string `json:"remaining_ids,omitempty"`

	// FinalText is the planner's revised answer after a rejection.
	FinalText string `json:"final_text,omitempty"`

	// ProposedDiff is the re-extracted proposal after a rejection, if any.
	ProposedDiff string `json:"proposed_diff,omitempty"`
}
