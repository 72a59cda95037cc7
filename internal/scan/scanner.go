package scan

import (
	"context"

	"github.com/mukhil0212/Sentinel-RAG/internal/runner"
)

// ProjectKind identifies the IaC flavor of a sandbox, used to narrow which
// adapters and scanner frameworks apply.
type ProjectKind string

const (
	KindTerraform      ProjectKind = "terraform"
	KindCloudFormation ProjectKind = "cloudformation"
	KindKubernetes     ProjectKind = "kubernetes"
	KindHelm           ProjectKind = "helm"
	KindARM            ProjectKind = "arm"
	KindDockerfile     ProjectKind = "dockerfile"
	KindSecrets        ProjectKind = "secrets"
)

// kindAllowlist is the set of caller-suppliable project-type hints.
var kindAllowlist = map[ProjectKind]bool{
	KindTerraform:      true,
	KindCloudFormation: true,
	KindKubernetes:     true,
	KindHelm:           true,
	KindARM:            true,
	KindDockerfile:     true,
	KindSecrets:        true,
}

// ParseKind validates a caller-supplied project-type hint. Returns false for
// anything outside the allowlist.
func ParseKind(raw string) (ProjectKind, bool) {
	k := ProjectKind(raw)
	if kindAllowlist[k] {
		return k, true
	}
	return "", false
}

// Request describes one adapter invocation against a sandbox.
type Request struct {
	// Root is the sandbox root directory.
	Root string

	// Target optionally narrows scanning to one file or directory,
	// relative to Root.
	Target string

	// Kinds are the detected or caller-hinted project types. Empty means
	// unknown; adapters decide their own default behavior.
	Kinds []ProjectKind
}

// Outcome is the result of one adapter invocation. Adapters never fail:
// missing tools, non-zero exits, and malformed output all degrade into
// zero-or-more findings plus diagnostic notes.
type Outcome struct {
	Findings []Finding
	Result   runner.Result
	Notes    []string
	Skipped  bool
}

// Scanner is one pluggable static-analysis adapter. Implementations shell
// out to an external tool (or run an embedded detector) and normalize its
// native output schema into Findings. Tools are added by adding adapters,
// never by branching inside the pipeline.
type Scanner interface {
	// Name is the tool identifier used in finding IDs and notes.
	Name() string

	// Scan runs the tool and returns its normalized outcome.
	Scan(ctx context.Context, req Request) Outcome
}

func hasKind(kinds []ProjectKind, want ProjectKind) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}
