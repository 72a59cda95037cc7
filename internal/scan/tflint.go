package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mukhil0212/Sentinel-RAG/internal/runner"
)

const tflintDefaultTimeout = 3 * time.Minute

// TFLint runs the tflint Terraform linter. It only applies to Terraform
// sandboxes (or when the project kind is unknown).
type TFLint struct {
	// BinOverride forces a specific executable, bypassing lookup.
	BinOverride string

	// Timeout bounds one invocation. Zero means tflintDefaultTimeout.
	Timeout time.Duration
}

// Name implements Scanner.
func (t *TFLint) Name() string { return "tflint" }

// Scan implements Scanner. tflint exit codes: 0 = clean, 2 = issues found;
// anything else is a tool error. Even on errors tflint may emit structured
// JSON worth surfacing, so parsing is attempted regardless.
func (t *TFLint) Scan(ctx context.Context, req Request) Outcome {
	var out Outcome

	if len(req.Kinds) > 0 && !hasKind(req.Kinds, KindTerraform) {
		out.Skipped = true
		out.Notes = append(out.Notes, "Skipped tflint (non-Terraform sandbox).")
		return out
	}

	override := t.BinOverride
	if override == "" {
		override = os.Getenv("SENTINEL_TFLINT_BIN")
	}
	cmd := append(LocateTool("tflint", override, req.Root), "--format", "json")

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = tflintDefaultTimeout
	}
	out.Result = runner.Run(ctx, cmd, req.Root, timeout)

	switch {
	case out.Result.TimedOut:
		out.Notes = append(out.Notes, "tflint timed out")
		return out
	case out.Result.ExitCode == runner.ExitNotFound:
		out.Notes = append(out.Notes, "tflint not found: "+truncate(out.Result.Stderr, maxStderrNote))
		return out
	case out.Result.ExitCode != 0 && out.Result.ExitCode != 2:
		out.Notes = append(out.Notes, fmt.Sprintf("tflint error (exit %d): %s",
			out.Result.ExitCode, truncate(out.Result.Stderr, maxStderrNote)))
	}

	findings, parseNote := parseTFLintOutput(out.Result.Stdout)
	if parseNote != "" {
		out.Notes = append(out.Notes, parseNote)
	}
	out.Findings = findings
	return out
}

type tflintRange struct {
	Filename string `json:"filename"`
	Start    struct {
		Line int `json:"line"`
	} `json:"start"`
}

type tflintIssue struct {
	Rule struct {
		Name string `json:"name"`
		Link string `json:"link"`
	} `json:"rule"`
	Message  string      `json:"message"`
	Severity string      `json:"severity"`
	Range    tflintRange `json:"range"`
}

type tflintError struct {
	Summary  string      `json:"summary"`
	Message  string      `json:"message"`
	Severity string      `json:"severity"`
	Range    tflintRange `json:"range"`
}

type tflintOutput struct {
	Issues []tflintIssue `json:"issues"`
	Errors []tflintError `json:"errors"`
}

// parseTFLintOutput normalizes tflint JSON. Parse errors in the configuration
// itself (tflint "errors") become findings too: the scanners cannot run
// until the HCL is fixed.
func parseTFLintOutput(stdout string) ([]Finding, string) {
	if strings.TrimSpace(stdout) == "" {
		return nil, ""
	}

	var payload tflintOutput
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		return nil, "tflint produced unparseable JSON output"
	}

	var findings []Finding
	for _, e := range payload.Errors {
		title := e.Summary
		if title == "" {
			title = "tflint error"
		}
		filePath := strings.TrimLeft(e.Range.Filename, "/")
		findings = append(findings, Finding{
			ID:             FindingID("tflint", "error", filePath, e.Range.Start.Line),
			Tool:           "tflint",
			Severity:       ParseSeverity(e.Severity),
			Title:          title,
			Description:    e.Message,
			Recommendation: "Fix Terraform/HCL syntax so scanners can run.",
			FilePath:       filePath,
			Line:           e.Range.Start.Line,
			Raw:            map[string]any{"summary": e.Summary, "message": e.Message},
		})
	}

	for _, issue := range payload.Issues {
		ruleName := issue.Rule.Name
		if ruleName == "" {
			ruleName = "unknown_rule"
		}
		recommendation := issue.Rule.Link
		if recommendation == "" {
			recommendation = "Follow the tflint rule guidance."
		}
		filePath := strings.TrimLeft(issue.Range.Filename, "/")
		findings = append(findings, Finding{
			ID:             FindingID("tflint", ruleName, filePath, issue.Range.Start.Line),
			Tool:           "tflint",
			Severity:       ParseSeverity(issue.Severity),
			Title:          "tflint: " + ruleName,
			Description:    issue.Message,
			Recommendation: recommendation,
			FilePath:       filePath,
			Line:           issue.Range.Start.Line,
			Raw:            map[string]any{"rule": ruleName, "message": issue.Message},
		})
	}
	return findings, ""
}
