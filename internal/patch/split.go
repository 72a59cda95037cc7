package patch

import (
	"fmt"
	"strings"
)

// Split breaks multi-file unified-diff text into one Operation per file.
// File boundaries are "diff --git" lines or "---"/"+++" header pairs. The
// operation type follows the /dev/null convention: an old side of /dev/null
// is a create, a new side of /dev/null is a delete, anything else an update.
func Split(diff string) ([]*Operation, error) {
	lines := strings.Split(diff, "\n")

	var ops []*Operation
	var current *Operation
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Diff = strings.Join(body, "\n") + "\n"
		if current.Type == OpDelete {
			current.Diff = ""
		}
		ops = append(ops, current)
		current = nil
		body = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if strings.HasPrefix(line, "diff --git ") {
			flush()
			current = &Operation{Type: OpUpdate, Path: gitHeaderPath(line)}
			continue
		}

		// A "---"/"+++" pair starts a file section. A lone "--- " line can
		// also be a deleted line of content, so the pair is required.
		if strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ") {
			oldPath := headerPath(line[4:])
			newPath := headerPath(lines[i+1][4:])

			if current == nil || len(body) > 0 {
				flush()
				current = &Operation{Type: OpUpdate}
			}
			switch {
			case oldPath == "":
				current.Type = OpCreate
				current.Path = newPath
			case newPath == "":
				current.Type = OpDelete
				current.Path = oldPath
			default:
				current.Path = newPath
			}
			body = append(body, line, lines[i+1])
			i++
			continue
		}

		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: no file sections found", ErrMalformedDiff)
	}
	for _, op := range ops {
		if op.Path == "" {
			return nil, fmt.Errorf("%w: file section without a path", ErrMalformedDiff)
		}
	}
	return ops, nil
}

// headerPath normalizes a ---/+++ header path: timestamps after a tab are
// dropped, the conventional a/ and b/ prefixes are stripped, and /dev/null
// maps to empty.
func headerPath(raw string) string {
	if i := strings.IndexByte(raw, '\t'); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "/dev/null" {
		return ""
	}
	for _, prefix := range []string{"a/", "b/"} {
		if strings.HasPrefix(raw, prefix) {
			return raw[len(prefix):]
		}
	}
	return raw
}

// gitHeaderPath extracts the new-side path from a "diff --git a/x b/x" line.
func gitHeaderPath(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return ""
	}
	return headerPath(fields[len(fields)-1])
}
