package rewriter

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// UnifiedDiff renders a unified diff of two documents, fenced as a markdown
// diff block. Line-level diffing keeps hunks readable for prose.
func UnifiedDiff(oldText, newText string) string {
	if oldText == newText {
		return "```diff\n```"
	}

	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	var body strings.Builder
	oldCount, newCount := 0, 0
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitDiffLines(d.Text) {
			body.WriteString(prefix + line + "\n")
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				oldCount++
			case diffmatchpatch.DiffInsert:
				newCount++
			default:
				oldCount++
				newCount++
			}
		}
	}

	var out strings.Builder
	out.WriteString("```diff\n")
	out.WriteString("--- current\n")
	out.WriteString("+++ updated\n")
	out.WriteString(fmt.Sprintf("@@ -1,%d +1,%d @@\n", oldCount, newCount))
	out.WriteString(body.String())
	out.WriteString("```")
	return out.String()
}

func splitDiffLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}
