package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// hunkHeaderPattern matches "@@ -l,s +l,s @@" with optional counts.
var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// hunk is one contiguous change block of a unified diff.
type hunk struct {
	oldStart int
	oldZero  bool     // header stated a zero old count: insertion after oldStart
	lines    []string // prefixed with ' ', '+', '-', or '\'
}

// oldBlock returns the lines the hunk expects to find in the original
// (context plus deletions), used for position verification.
func (h *hunk) oldBlock() []string {
	var block []string
	for _, l := range h.lines {
		if len(l) == 0 {
			block = append(block, "")
			continue
		}
		switch l[0] {
		case ' ', '-':
			block = append(block, l[1:])
		}
	}
	return block
}

// parseHunks extracts hunks from unified-diff text, skipping any git-style
// file headers. Hunk line counts are not trusted: planner-generated diffs
// get them wrong often enough that hunks are instead terminated by the next
// header or non-diff line.
func parseHunks(diff string) ([]*hunk, error) {
	var hunks []*hunk
	var current *hunk
	pendingBlanks := 0

	for _, line := range strings.Split(diff, "\n") {
		if m := hunkHeaderPattern.FindStringSubmatch(line); m != nil {
			oldStart, _ := strconv.Atoi(m[1])
			current = &hunk{oldStart: oldStart, oldZero: m[2] == "0"}
			hunks = append(hunks, current)
			pendingBlanks = 0
			continue
		}

		if isFileHeader(line) {
			current = nil
			pendingBlanks = 0
			continue
		}

		if current == nil {
			continue
		}

		if line == "" {
			// An empty line inside a hunk is an empty context line with
			// its leading space trimmed. Buffer it: blanks trailing the
			// hunk are surrounding text, not context.
			pendingBlanks++
			continue
		}
		switch line[0] {
		case ' ', '+', '-', '\\':
			for ; pendingBlanks > 0; pendingBlanks-- {
				current.lines = append(current.lines, " ")
			}
			current.lines = append(current.lines, line)
		default:
			current = nil
			pendingBlanks = 0
		}
	}

	if len(hunks) == 0 {
		return nil, fmt.Errorf("%w: no hunks found", ErrMalformedDiff)
	}
	return hunks, nil
}

func isFileHeader(line string) bool {
	for _, prefix := range []string{
		"diff --git", "index ", "--- ", "+++ ",
		"new file mode", "deleted file mode", "old mode", "new mode",
		"similarity index", "rename from", "rename to", "Binary files",
	} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return line == "---" || line == "+++"
}

// ApplyDiff applies unified-diff text to original content and returns the
// patched content. Creating a file is applying the diff against empty
// content. A context or deletion line that does not match the original
// yields a *ConflictError with enough detail to regenerate the diff.
func ApplyDiff(original, diff string) (string, error) {
	hunks, err := parseHunks(diff)
	if err != nil {
		return "", err
	}

	lines, hadTrailingNewline := splitLines(original)
	noNewlineAtEnd := false

	var out []string
	cursor := 0

	for _, h := range hunks {
		pos := h.oldStart - 1
		if h.oldZero {
			// A zero-length old range means insert after line N, so the
			// insertion point is oldStart itself ("-0,0" creates at 0).
			pos = h.oldStart
		}
		if pos < 0 {
			pos = 0
		}

		block := h.oldBlock()
		if !matchAt(lines, pos, block) {
			// The stated position is wrong; search forward from the
			// last applied hunk for the expected block.
			found := -1
			for i := cursor; i+len(block) <= len(lines); i++ {
				if matchAt(lines, i, block) {
					found = i
					break
				}
			}
			if found < 0 {
				return "", &ConflictError{
					Line:   h.oldStart,
					Detail: fmt.Sprintf("hunk context not found near line %d", h.oldStart),
				}
			}
			pos = found
		}
		if pos < cursor {
			return "", &ConflictError{
				Line:   h.oldStart,
				Detail: "hunks overlap or are out of order",
			}
		}

		out = append(out, lines[cursor:pos]...)

		for i, l := range h.lines {
			var op byte = ' '
			text := ""
			if len(l) > 0 {
				op = l[0]
				text = l[1:]
			}
			switch op {
			case ' ':
				if pos >= len(lines) || lines[pos] != text {
					return "", &ConflictError{
						Line:   pos + 1,
						Detail: fmt.Sprintf("context mismatch at line %d: expected %q", pos+1, text),
					}
				}
				out = append(out, text)
				pos++
			case '-':
				if pos >= len(lines) || lines[pos] != text {
					return "", &ConflictError{
						Line:   pos + 1,
						Detail: fmt.Sprintf("deletion mismatch at line %d: expected %q", pos+1, text),
					}
				}
				pos++
			case '+':
				out = append(out, text)
			case '\\':
				// "\ No newline at end of file" applies to the final
				// emitted line when it closes the hunk.
				if i == len(h.lines)-1 {
					noNewlineAtEnd = true
				}
			}
		}

		cursor = pos
	}

	out = append(out, lines[cursor:]...)

	if len(out) == 0 {
		return "", nil
	}
	result := strings.Join(out, "\n")
	if !noNewlineAtEnd && (hadTrailingNewline || original == "") {
		result += "\n"
	}
	return result, nil
}

// splitLines splits content into lines, reporting whether it ended with a
// trailing newline.
func splitLines(s string) ([]string, bool) {
	if s == "" {
		return nil, true
	}
	hadNL := strings.HasSuffix(s, "\n")
	if hadNL {
		s = s[:len(s)-1]
	}
	return strings.Split(s, "\n"), hadNL
}

func matchAt(lines []string, pos int, block []string) bool {
	if pos < 0 || pos+len(block) > len(lines) {
		// A pure-addition hunk (empty block) may point past the end.
		return len(block) == 0 && pos <= len(lines)
	}
	for i, b := range block {
		if lines[pos+i] != b {
			return false
		}
	}
	return true
}
