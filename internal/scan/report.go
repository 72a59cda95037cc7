package scan

import (
	"fmt"
	"strings"
)

// Report is the ranked, deduplicated output of one pipeline run plus any
// adapter-level diagnostic notes.
type Report struct {
	Target   string        `json:"target,omitempty"`
	Kinds    []ProjectKind `json:"kinds,omitempty"`
	Findings []Finding     `json:"findings"`
	Notes    []string      `json:"notes,omitempty"`
}

// Contains reports whether the given finding ID is present.
func (r *Report) Contains(id string) bool {
	for _, f := range r.Findings {
		if f.ID == id {
			return true
		}
	}
	return false
}

// IDs returns the finding IDs in report order.
func (r *Report) IDs() []string {
	ids := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		ids[i] = f.ID
	}
	return ids
}

// Format renders the report as human-readable text for the planner and for
// transport responses.
func (r *Report) Format() string {
	if len(r.Findings) == 0 {
		msg := "No security issues found in the sandbox."
		if r.Target != "" {
			msg = fmt.Sprintf("No security issues found in %s.", r.Target)
		}
		return msg + r.formatNotes()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d issue(s):\n", len(r.Findings))
	for i, f := range r.Findings {
		fmt.Fprintf(&b, "\n%d. [%s] %s\n", i+1, strings.ToUpper(string(f.Severity)), f.Title)
		fmt.Fprintf(&b, "   Tool: %s\n", f.Tool)
		if loc := f.Location(); loc != "" {
			fmt.Fprintf(&b, "   File: %s\n", loc)
		}
		if f.Description != "" {
			fmt.Fprintf(&b, "   %s\n", strings.ReplaceAll(f.Description, "\n", "\n   "))
		}
		if f.Recommendation != "" {
			fmt.Fprintf(&b, "   Recommendation: %s\n", f.Recommendation)
		}
	}
	b.WriteString(r.formatNotes())
	return b.String()
}

func (r *Report) formatNotes() string {
	if len(r.Notes) == 0 {
		return ""
	}
	return "\n\nScanner notes:\n" + strings.Join(r.Notes, "\n")
}
