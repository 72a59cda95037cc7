// Package scan runs pluggable static-analysis scanners against a sandbox and
// normalizes, deduplicates, and ranks their findings into a single report.
package scan

import (
	"fmt"
	"strings"
)

// Severity is the normalized five-level severity scale shared by all
// scanner adapters.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRanks orders severities for report sorting. Unknown severities
// sort after info.
var severityRanks = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns the sort rank of the severity; unknown values rank last.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return len(severityRanks)
}

// ParseSeverity normalizes a tool-reported severity string into the
// five-level scale. Tools that omit severity get medium.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high", "error":
		return SeverityHigh
	case "medium", "warning":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "info", "informational", "notice":
		return SeverityInfo
	case "":
		return SeverityMedium
	default:
		return SeverityMedium
	}
}

// Finding is one normalized security/policy violation reported by a scanner.
// Immutable once produced.
type Finding struct {
	// ID is the stable composite key tool:rule:file:line used for
	// deduplication across scanner runs and repeated scans.
	ID             string         `json:"id"`
	Tool           string         `json:"tool"`
	Severity       Severity       `json:"severity"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation"`
	FilePath       string         `json:"file_path,omitempty"`
	Line           int            `json:"line,omitempty"`
	Raw            map[string]any `json:"-"`
}

// FindingID builds the composite dedup key for a finding.
func FindingID(tool, rule, file string, line int) string {
	if rule == "" {
		rule = "unknown"
	}
	if file == "" {
		file = "unknown"
	}
	return fmt.Sprintf("%s:%s:%s:%d", tool, rule, file, line)
}

// Location renders "file:line" (or just the file when no line is known).
func (f Finding) Location() string {
	if f.FilePath == "" {
		return ""
	}
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.FilePath, f.Line)
	}
	return f.FilePath
}
