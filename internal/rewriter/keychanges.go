package rewriter

import (
	"fmt"
	"strings"
)

// DetectKeyChanges produces the short list of observations fed into the
// prompt: signature changes, return behavior, significant size swings, and
// added or removed conditional branches. The heuristics are intentionally
// shallow; the semantic layer has already classified the change.
func DetectKeyChanges(oldCode, newCode, language string) []string {
	var changes []string

	oldLines := strings.Split(oldCode, "\n")
	newLines := strings.Split(newCode, "\n")

	switch language {
	case "python":
		if !equalFiltered(oldLines, newLines, func(l string) bool {
			return strings.HasPrefix(strings.TrimSpace(l), "def ")
		}) {
			changes = append(changes, "Function signature changed")
		}
		oldReturns := countMatching(oldLines, "return ")
		newReturns := countMatching(newLines, "return ")
		if oldReturns != newReturns {
			changes = append(changes, "Return behavior modified")
		}
	case "javascript", "typescript":
		if strings.Count(oldCode, "function") != strings.Count(newCode, "function") {
			changes = append(changes, "Function structure changed")
		}
	}

	if len(newLines) > len(oldLines)*6/5 {
		changes = append(changes, fmt.Sprintf("Significant code additions (%d lines)", len(newLines)-len(oldLines)))
	} else if len(newLines)*5 < len(oldLines)*4 {
		changes = append(changes, fmt.Sprintf("Significant code removals (%d lines)", len(oldLines)-len(newLines)))
	}

	oldIfs := strings.Count(oldCode, "if ")
	newIfs := strings.Count(newCode, "if ")
	switch {
	case newIfs > oldIfs:
		changes = append(changes, fmt.Sprintf("Added %d conditional branches", newIfs-oldIfs))
	case newIfs < oldIfs:
		changes = append(changes, fmt.Sprintf("Removed %d conditional branches", oldIfs-newIfs))
	}

	if len(changes) == 0 {
		changes = append(changes, "Logic or implementation details modified")
	}
	return changes
}

func equalFiltered(a, b []string, keep func(string) bool) bool {
	fa := filterLines(a, keep)
	fb := filterLines(b, keep)
	if len(fa) != len(fb) {
		return false
	}
	for i := range fa {
		if fa[i] != fb[i] {
			return false
		}
	}
	return true
}

func filterLines(lines []string, keep func(string) bool) []string {
	var out []string
	for _, l := range lines {
		if keep(l) {
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}

func countMatching(lines []string, substr string) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}
