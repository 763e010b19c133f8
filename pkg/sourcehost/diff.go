package sourcehost

import (
	"fmt"
	"strings"
)

// hunk is one block of a unified diff.
type hunk struct {
	lines []string
}

// oldBlock returns the hunk's pre-image: context plus removed lines.
func (h hunk) oldBlock() string {
	var b []string
	for _, line := range h.lines {
		if line == "" {
			b = append(b, "")
			continue
		}
		switch line[0] {
		case ' ', '-':
			b = append(b, line[1:])
		}
	}
	return strings.Join(b, "\n")
}

// newBlock returns the hunk's post-image: context plus added lines.
func (h hunk) newBlock() string {
	var b []string
	for _, line := range h.lines {
		if line == "" {
			b = append(b, "")
			continue
		}
		switch line[0] {
		case ' ', '+':
			b = append(b, line[1:])
		}
	}
	return strings.Join(b, "\n")
}

// parseHunks extracts the hunks of a single-file unified diff. Header lines
// (---/+++/diff/index) and line-number ranges are tolerated but ignored;
// application matches on content, not offsets.
func parseHunks(diff string) ([]hunk, error) {
	lines := strings.Split(diff, "\n")
	var hunks []hunk
	var current *hunk

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "@@"):
			if current != nil {
				hunks = append(hunks, *current)
			}
			current = &hunk{}
		case strings.HasPrefix(line, "--- "),
			strings.HasPrefix(line, "+++ "),
			strings.HasPrefix(line, "diff "),
			strings.HasPrefix(line, "index "),
			strings.HasPrefix(line, "\\"):
			continue
		default:
			if current == nil {
				continue
			}
			if line == "" || line[0] == ' ' || line[0] == '-' || line[0] == '+' {
				current.lines = append(current.lines, line)
			}
		}
	}
	if current != nil {
		hunks = append(hunks, *current)
	}

	if len(hunks) == 0 {
		return nil, fmt.Errorf("no hunks in diff")
	}
	return hunks, nil
}

// ApplyToContent applies the patch's hunks to content by replacing each
// hunk's pre-image with its post-image. Returns the updated content and the
// number of hunks that matched; hunks whose pre-image is absent from the
// current content are skipped.
func ApplyToContent(content string, p Patch) (string, int, error) {
	hunks, err := parseHunks(p.UnifiedDiff)
	if err != nil {
		return content, 0, err
	}

	applied := 0
	for _, h := range hunks {
		old := h.oldBlock()
		if old == "" {
			// Pure insertion with no context cannot be anchored.
			continue
		}
		if !strings.Contains(content, old) {
			continue
		}
		content = strings.Replace(content, old, h.newBlock(), 1)
		applied++
	}

	return content, applied, nil
}
