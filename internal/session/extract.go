package session

import "strings"

// ExtractDiff pulls unified-diff text out of a planner's final answer.
// A fenced ```diff block wins; otherwise the text from the first
// "diff --git" or "--- " header line onward is taken, trimmed of any
// trailing fence. Returns false when the answer contains no diff, which
// keeps the session conversational.
//
// Prose that merely looks like a diff can slip through here. That is
// acceptable: an extracted diff is only ever a proposal, and the approval
// gate is what decides whether it touches the sandbox.
func ExtractDiff(text string) (string, bool) {
	if diff, ok := fencedDiff(text); ok {
		return diff, true
	}

	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") || strings.HasPrefix(line, "--- ") {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	tail := lines[start:]
	for i, line := range tail {
		if strings.HasPrefix(line, "```") {
			tail = tail[:i]
			break
		}
	}

	diff := strings.TrimRight(strings.Join(tail, "\n"), "\n")
	if diff == "" {
		return "", false
	}
	return diff + "\n", true
}

// fencedDiff returns the content of the first ```diff code block.
func fencedDiff(text string) (string, bool) {
	lower := strings.ToLower(text)
	open := strings.Index(lower, "```diff")
	if open < 0 {
		return "", false
	}

	body := text[open+len("```diff"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return "", false
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}

	body = strings.TrimRight(body, "\n")
	if body == "" {
		return "", false
	}
	return body + "\n", true
}
