package rewriter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sevigo/doc-sentry/internal/core"
)

var (
	rePyDocstring = regexp.MustCompile(`(?s)"""(.*?)"""`)
	rePySignature = regexp.MustCompile(`(?m)^\s*def\s+([a-zA-Z_][a-zA-Z0-9_]*\s*\([^)]*\))`)
	reJSSignature = regexp.MustCompile(`(?m)function\s+([A-Za-z_$][A-Za-z0-9_$]*\s*\([^)]*\))`)
)

// fallback emits the deterministic stub used when no provider is reachable:
// the extractable docstring, the regex-extracted signature, the change type,
// and a reviewer warning. Confidence is fixed at 0.1 and the stub keeps its
// FALLBACK_STUB state, which Resolve leaves as is, so it is never written.
func (g *Generator) fallback(req Request, suggestion core.DocSuggestion) core.DocSuggestion {
	var b strings.Builder

	if sig := extractSignature(req.NewCode, req.Language); sig != "" {
		b.WriteString(fmt.Sprintf("```%s\n%s\n```\n\n", orDefault(req.Language, "python"), sig))
	}
	if doc := extractDocstring(req.NewCode, req.Language); doc != "" {
		b.WriteString(doc)
		b.WriteString("\n\n")
	}
	b.WriteString(fmt.Sprintf("The function `%s` has a %s change.\n\n", req.Entity, strings.ToUpper(string(req.ChangeType))))
	b.WriteString("> **Warning:** this section was generated without an LLM. Please review and update it manually.\n")

	suggestion.UpdatedDoc = b.String()
	suggestion.Explanation = fmt.Sprintf(
		"The function %s has a %s change. Please review and update documentation manually.",
		req.Entity, strings.ToUpper(string(req.ChangeType)))
	suggestion.Confidence = fallbackConfidence
	suggestion.Diff = UnifiedDiff(req.CurrentDoc, suggestion.UpdatedDoc)
	suggestion.State = core.SuggestionFallbackStub
	return suggestion
}

func extractDocstring(code, language string) string {
	if language != "python" && language != "" {
		return ""
	}
	m := rePyDocstring.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractSignature(code, language string) string {
	var re *regexp.Regexp
	switch language {
	case "javascript", "typescript":
		re = reJSSignature
	default:
		re = rePySignature
	}
	m := re.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
