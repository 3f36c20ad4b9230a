package rewriter

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractEntityCode returns the source slice defining an entity, for prompt
// context. Python definitions run until the first nonempty line at or below
// the definition's indent; brace languages run until the braces balance.
// An entity that cannot be located yields the empty string.
func ExtractEntityCode(code, entity, language string) string {
	switch language {
	case "python":
		return slicePython(code, entity)
	case "javascript", "typescript":
		return sliceBraces(code, entity)
	default:
		return ""
	}
}

func slicePython(code, entity string) string {
	re := regexp.MustCompile(fmt.Sprintf(`(?m)^([ \t]*)(?:def|class)\s+%s\b`, regexp.QuoteMeta(entity)))
	lines := strings.Split(code, "\n")

	start := -1
	indent := 0
	for i, line := range lines {
		if m := re.FindStringSubmatch(line); m != nil {
			start = i
			indent = len(m[1])
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if leadingWidth(lines[i]) <= indent {
			end = i
			break
		}
	}
	return strings.Join(lines[start:end], "\n")
}

func sliceBraces(code, entity string) string {
	quoted := regexp.QuoteMeta(entity)
	res := []*regexp.Regexp{
		regexp.MustCompile(fmt.Sprintf(`(?m)^[ \t]*(?:export\s+)?(?:async\s+)?function\s+%s\s*\(`, quoted)),
		regexp.MustCompile(fmt.Sprintf(`(?m)^[ \t]*(?:export\s+)?(?:const|let|var)\s+%s\s*=`, quoted)),
		regexp.MustCompile(fmt.Sprintf(`(?m)^[ \t]*(?:export\s+)?class\s+%s\b`, quoted)),
		regexp.MustCompile(fmt.Sprintf(`(?m)^[ \t]*(?:async\s+)?%s\s*\([^)]*\)\s*\{`, quoted)),
	}

	start := -1
	for _, re := range res {
		if loc := re.FindStringIndex(code); loc != nil {
			start = loc[0]
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	opened := false
	for i := start; i < len(code); i++ {
		switch code[i] {
		case '{':
			depth++
			opened = true
		case '}':
			depth--
			if opened && depth == 0 {
				return code[start : i+1]
			}
		case '\n':
			// Brace-less arrow bodies end at the statement's line.
			if !opened && strings.Contains(code[start:i], "=>") {
				return code[start:i]
			}
		}
	}
	return code[start:]
}

func leadingWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}
