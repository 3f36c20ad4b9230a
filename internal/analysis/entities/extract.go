// Package entities extracts named code constructs and finds their mentions in
// documentation with a multi-pattern Aho-Corasick automaton.
package entities

import (
	"regexp"
	"sort"
)

var (
	pyFunction = regexp.MustCompile(`def\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)
	pyClass    = regexp.MustCompile(`class\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*[:\(]`)

	jsFunction = regexp.MustCompile(`function\s+([a-zA-Z_$][a-zA-Z0-9_$]*)\s*\(`)
	jsArrow    = regexp.MustCompile(`(?:const|let|var)\s+([a-zA-Z_$][a-zA-Z0-9_$]*)\s*=\s*(?:async\s*)?\([^)]*\)\s*=>`)
	jsClass    = regexp.MustCompile(`class\s+([a-zA-Z_$][a-zA-Z0-9_$]*)\s*\{`)
	jsMethod   = regexp.MustCompile(`(?:async\s+)?([a-zA-Z_$][a-zA-Z0-9_$]*)\s*\([^)]*\)\s*\{`)
)

// keywords that the loose method regex would otherwise pick up.
var keywordBlocklist = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true,
	"catch": true, "try": true, "async": true, "await": true, "export": true,
	"import": true, "default": true, "function": true, "constructor": true,
	"console": true, "new": true, "typeof": true, "else": true, "do": true,
}

// Extract returns the set of function and class names defined in code for
// the given language. Unsupported languages yield an empty set.
func Extract(code, language string) map[string]bool {
	found := make(map[string]bool)
	switch language {
	case "python":
		collect(found, pyFunction, code)
		collect(found, pyClass, code)
	case "javascript", "typescript":
		collect(found, jsFunction, code)
		collect(found, jsArrow, code)
		collect(found, jsClass, code)
		collect(found, jsMethod, code)
	}
	for name := range found {
		if keywordBlocklist[name] {
			delete(found, name)
		}
	}
	return found
}

func collect(into map[string]bool, re *regexp.Regexp, code string) {
	for _, m := range re.FindAllStringSubmatch(code, -1) {
		if len(m) > 1 && m[1] != "" {
			into[m[1]] = true
		}
	}
}

// Sorted returns the set's members in lexical order.
func Sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
