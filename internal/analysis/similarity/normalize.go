// Package similarity finds near-duplicate file pairs across two snapshots
// with MinHash signatures and locality-sensitive hashing.
package similarity

import (
	"encoding/json"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`//.*`)
	reCodeFence    = regexp.MustCompile("(?s)```.*?```")
	reMarkdownLink = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// commentStripExtensions are code-like extensions whose comments are removed
// before shingling.
var commentStripExtensions = map[string]bool{
	".js": true, ".ts": true, ".tsx": true, ".jsx": true, ".css": true,
	".scss": true, ".java": true, ".go": true, ".rb": true, ".php": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true, ".sh": true,
}

// Ext returns the lower-cased extension of a path.
func Ext(p string) string { return strings.ToLower(path.Ext(p)) }

// NormalizeText canonicalizes a text file before shingling so cosmetic
// differences (whitespace, comments, JSON key order, markdown decoration) do
// not defeat near-duplicate detection. The ext parameter selects
// extension-specific rules.
func NormalizeText(data []byte, ext string) []byte {
	s := decode(data)
	s = strings.ReplaceAll(s, "\r", "")

	if commentStripExtensions[ext] {
		s = reBlockComment.ReplaceAllString(s, " ")
		s = reLineComment.ReplaceAllString(s, " ")
	}
	if ext == ".json" {
		if canonical, ok := canonicalJSON(s); ok {
			s = canonical
		}
	}
	if ext == ".md" {
		s = reCodeFence.ReplaceAllString(s, " ")
		s = reMarkdownLink.ReplaceAllString(s, "$1")
	}

	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return []byte(s)
}

// decode interprets bytes as UTF-8, falling back to latin-1 so arbitrary
// bytes still produce a deterministic string.
func decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// canonicalJSON re-marshals a JSON document with sorted keys and no
// insignificant whitespace.
func canonicalJSON(s string) (string, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return "", false
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(out), true
}
