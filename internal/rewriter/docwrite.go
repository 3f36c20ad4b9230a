package rewriter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sevigo/doc-sentry/internal/core"
)

// sectionLevel is the heading depth used for entity sections.
const sectionLevel = 3

var reHeading = regexp.MustCompile(`^(#+)\s+(.*?)\s*$`)

// apiReferenceHeading is where new sections are inserted when the entity has
// no section of its own yet.
const apiReferenceHeading = "API Reference"

// ApplySection merges a generated section for entity into a document and
// returns the new content. An existing heading for the entity (depth >= 3,
// case-insensitive) has its section replaced up to the next heading of the
// same or shallower depth; otherwise the section is inserted after the first
// "API Reference" heading, or appended at the end. The operation is
// idempotent: applying the same section twice yields identical bytes.
func ApplySection(doc, entity, sourceFile, content string) string {
	section := buildSection(entity, sourceFile, content, sectionLevel)

	lines := splitLines(doc)
	if start, end, level := findEntitySection(lines, entity); start >= 0 {
		replacement := splitLines(buildSection(entity, sourceFile, content, level))
		merged := append(append(append([]string{}, lines[:start]...), replacement...), lines[end:]...)
		return joinLines(merged)
	}

	if at := findAPIReference(lines); at >= 0 {
		merged := append(append(append([]string{}, lines[:at+1]...), splitLines("\n"+section)...), lines[at+1:]...)
		return joinLines(merged)
	}

	base := strings.TrimRight(doc, "\n")
	if base == "" {
		return joinLines(splitLines(section))
	}
	return joinLines(splitLines(base + "\n\n" + section))
}

// buildSection renders the canonical section: heading, "Source:" citation,
// then the body with any too-shallow headings demoted so the section stays
// self-contained on re-application.
func buildSection(entity, sourceFile, content string, level int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("#", level) + " " + entity + "\n\n")
	b.WriteString(fmt.Sprintf("*Source: `%s`*\n\n", sourceFile))
	b.WriteString(demoteHeadings(strings.TrimSpace(content), level))
	b.WriteString("\n")
	return b.String()
}

// demoteHeadings pushes headings at or above the section's own depth one
// level deeper than the section, so the replacement scan never stops inside
// the body.
func demoteHeadings(content string, level int) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		m := reHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if len(m[1]) <= level {
			lines[i] = strings.Repeat("#", level+1) + " " + m[2]
		}
	}
	return strings.Join(lines, "\n")
}

// findEntitySection locates an existing heading for the entity and the end
// of its section. The heading must be depth >= 3 and match the entity name
// case-insensitively; the section runs until the next heading of the same or
// shallower depth.
func findEntitySection(lines []string, entity string) (start, end, level int) {
	lower := strings.ToLower(entity)
	for i, line := range lines {
		m := reHeading.FindStringSubmatch(line)
		if m == nil || len(m[1]) < sectionLevel {
			continue
		}
		if strings.ToLower(m[2]) != lower {
			continue
		}
		level = len(m[1])
		for j := i + 1; j < len(lines); j++ {
			if h := reHeading.FindStringSubmatch(lines[j]); h != nil && len(h[1]) <= level {
				return i, j, level
			}
		}
		return i, len(lines), level
	}
	return -1, -1, 0
}

func findAPIReference(lines []string) int {
	for i, line := range lines {
		m := reHeading.FindStringSubmatch(line)
		if m != nil && strings.EqualFold(m[2], apiReferenceHeading) {
			return i
		}
	}
	return -1
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

// joinLines reassembles lines with a single trailing newline and without
// runs of more than one blank line at the seams.
func joinLines(lines []string) string {
	var out []string
	blanks := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blanks = 0
		out = append(out, line)
	}
	return strings.Join(out, "\n") + "\n"
}

// Writer applies accepted suggestions to files in the working copy. Writes
// are serialized by the orchestrator; there is exactly one writer per run.
type Writer struct {
	root string
}

// NewWriter scopes doc writes to a working-copy root.
func NewWriter(root string) *Writer { return &Writer{root: root} }

// Write merges the suggestion into its target file and returns the
// suggestion advanced to WRITTEN. Only ACCEPTED suggestions are written.
func (w *Writer) Write(s core.DocSuggestion) (core.DocSuggestion, error) {
	if s.State == core.SuggestionRejectedLow {
		return s, &core.RewriteError{Entity: s.Entity, DocPath: s.DocPath, Err: core.ErrLowConfidence}
	}
	if s.State != core.SuggestionAccepted {
		return s, &core.RewriteError{
			Entity:  s.Entity,
			DocPath: s.DocPath,
			Err:     fmt.Errorf("suggestion in state %s cannot be written", s.State),
		}
	}

	target := filepath.Join(w.root, filepath.FromSlash(s.DocPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return s, &core.RewriteError{Entity: s.Entity, DocPath: s.DocPath, Err: err}
	}

	var current string
	if data, err := os.ReadFile(target); err == nil {
		current = string(data)
	} else {
		current = fmt.Sprintf("# %s\n\n## %s\n", docTitle(s.DocPath), apiReferenceHeading)
	}

	updated := ApplySection(current, s.Entity, s.SourceFile, s.UpdatedDoc)
	if updated != current {
		if err := os.WriteFile(target, []byte(updated), 0o644); err != nil {
			return s, &core.RewriteError{Entity: s.Entity, DocPath: s.DocPath, Err: err}
		}
	}

	s.State = core.SuggestionWritten
	return s, nil
}

func docTitle(docPath string) string {
	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")
	words := strings.Fields(stem)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
