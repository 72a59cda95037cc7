package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mukhil0212/Sentinel-RAG/internal/runner"
)

const (
	checkovDefaultTimeout = 5 * time.Minute
	maxEvaluatedKeys      = 20
	maxStderrNote         = 200
)

// Checkov runs the Checkov policy-as-code scanner. It covers Terraform,
// CloudFormation, Kubernetes, Helm, ARM, Dockerfiles, and secrets.
type Checkov struct {
	// BinOverride forces a specific executable, bypassing lookup.
	BinOverride string

	// Timeout bounds one invocation. Zero means checkovDefaultTimeout.
	Timeout time.Duration
}

// Name implements Scanner.
func (c *Checkov) Name() string { return "checkov" }

// Scan implements Scanner. Checkov exit codes: 0 = all checks passed,
// 1 = failed checks found; anything else is a tool error surfaced as a note.
func (c *Checkov) Scan(ctx context.Context, req Request) Outcome {
	var out Outcome

	override := c.BinOverride
	if override == "" {
		override = os.Getenv("SENTINEL_CHECKOV_BIN")
	}
	cmd := append(LocateTool("checkov", override, req.Root), "--output", "json", "--compact", "--quiet")

	if frameworks := checkovFrameworks(req.Kinds); len(frameworks) > 0 {
		cmd = append(cmd, "--framework")
		cmd = append(cmd, frameworks...)
		out.Notes = append(out.Notes, "Checkov frameworks: "+strings.Join(frameworks, ", "))
	}

	switch {
	case req.Target == "":
		cmd = append(cmd, "--directory", req.Root)
	default:
		target := filepath.Join(req.Root, req.Target)
		if info, err := os.Stat(target); err == nil && !info.IsDir() {
			cmd = append(cmd, "--file", target)
		} else {
			cmd = append(cmd, "--directory", target)
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = checkovDefaultTimeout
	}
	out.Result = runner.Run(ctx, cmd, req.Root, timeout)

	switch {
	case out.Result.TimedOut:
		out.Notes = append(out.Notes, "Checkov timed out")
		return out
	case out.Result.ExitCode == runner.ExitNotFound:
		out.Notes = append(out.Notes, "Checkov not found: "+truncate(out.Result.Stderr, maxStderrNote))
		return out
	case out.Result.ExitCode != 0 && out.Result.ExitCode != 1:
		out.Notes = append(out.Notes, fmt.Sprintf("Checkov error (exit %d): %s",
			out.Result.ExitCode, truncate(out.Result.Stderr, maxStderrNote)))
	}

	findings, parseNote := parseCheckovOutput(out.Result.Stdout)
	if parseNote != "" {
		out.Notes = append(out.Notes, parseNote)
	}
	out.Findings = findings
	return out
}

// checkovFrameworks maps detected project kinds onto Checkov framework names.
func checkovFrameworks(kinds []ProjectKind) []string {
	frameworks := make([]string, 0, len(kinds))
	for _, k := range kinds {
		frameworks = append(frameworks, string(k))
	}
	return frameworks
}

type checkovCheck struct {
	CheckID       string `json:"check_id"`
	CheckName     string `json:"check_name"`
	Check         string `json:"check"`
	Message       string `json:"message"`
	Description   string `json:"description"`
	FilePath      string `json:"file_path"`
	FileLineRange []int  `json:"file_line_range"`
	Guideline     string `json:"guideline"`
	Severity      string `json:"severity"`
	CheckResult   struct {
		EvaluatedKeys []any `json:"evaluated_keys"`
	} `json:"check_result"`
}

type checkovReport struct {
	CheckType string `json:"check_type"`
	Results   struct {
		FailedChecks []json.RawMessage `json:"failed_checks"`
	} `json:"results"`
}

// parseCheckovOutput normalizes Checkov JSON into findings. Malformed output
// yields zero findings and a diagnostic note, never an error.
func parseCheckovOutput(stdout string) ([]Finding, string) {
	if strings.TrimSpace(stdout) == "" {
		return nil, ""
	}

	// Checkov emits either a single report object or a list, one per framework.
	var reports []checkovReport
	if err := json.Unmarshal([]byte(stdout), &reports); err != nil {
		var single checkovReport
		if err := json.Unmarshal([]byte(stdout), &single); err != nil {
			return nil, "Checkov produced unparseable JSON output"
		}
		reports = []checkovReport{single}
	}

	var findings []Finding
	for _, report := range reports {
		for _, raw := range report.Results.FailedChecks {
			var check checkovCheck
			if err := json.Unmarshal(raw, &check); err != nil {
				continue
			}

			filePath := strings.TrimLeft(check.FilePath, "/")
			line := 0
			if len(check.FileLineRange) > 0 {
				line = check.FileLineRange[0]
			}

			name := check.CheckName
			if name == "" {
				name = check.Check
			}
			if name == "" {
				name = "Unknown check"
			}

			recommendation := check.Guideline
			if recommendation == "" {
				recommendation = "See Checkov docs for " + check.CheckID
			}

			var rawMap map[string]any
			_ = json.Unmarshal(raw, &rawMap)

			findings = append(findings, Finding{
				ID:             FindingID("checkov", check.CheckID, filePath, line),
				Tool:           "checkov",
				Severity:       checkovSeverity(check.Severity),
				Title:          fmt.Sprintf("%s: %s", check.CheckID, name),
				Description:    checkovDescription(check, name),
				Recommendation: recommendation,
				FilePath:       filePath,
				Line:           line,
				Raw:            rawMap,
			})
		}
	}
	return findings, ""
}

// checkovSeverity maps Checkov's severity labels onto the normalized scale.
// Checkov omits severity without an API key, so empty defaults to medium.
func checkovSeverity(raw string) Severity {
	switch strings.ToUpper(raw) {
	case "":
		return SeverityMedium
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// checkovDescription prefers the evaluated keys when present; they point at
// the exact attributes that failed the policy.
func checkovDescription(check checkovCheck, fallback string) string {
	keys := make([]string, 0, len(check.CheckResult.EvaluatedKeys))
	for _, k := range check.CheckResult.EvaluatedKeys {
		if k != nil {
			keys = append(keys, fmt.Sprint(k))
		}
	}
	if len(keys) > maxEvaluatedKeys {
		keys = append(keys[:maxEvaluatedKeys], "... (truncated)")
	}
	if len(keys) > 0 {
		return "Evaluated keys:\n- " + strings.Join(keys, "\n- ")
	}

	if check.Message != "" {
		return check.Message
	}
	if check.Description != "" {
		return check.Description
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
