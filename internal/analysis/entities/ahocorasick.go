package entities

import (
	"strings"

	"github.com/sevigo/doc-sentry/internal/core"
)

// DefaultContextChars is the snippet width captured on each side of a match.
const DefaultContextChars = 50

// acOutput carries both forms of a pattern: the folded form drives the trie
// walk and offset arithmetic, the original form is what matches report, so
// case-insensitive search never leaks lowercased identifiers to callers.
type acOutput struct {
	folded   string
	original string
}

type acNode struct {
	children map[byte]*acNode
	failure  *acNode
	output   []acOutput
}

func newACNode() *acNode {
	return &acNode{children: make(map[byte]*acNode)}
}

// Automaton is an Aho-Corasick multi-pattern matcher. Building is
// O(sum of pattern lengths); searching is O(n + z) for text length n and z
// reported matches. For identical inputs it returns identical matches in the
// same order.
type Automaton struct {
	root          *acNode
	caseSensitive bool
}

// NewAutomaton compiles the pattern set. With caseSensitive false (the
// default throughout the pipeline) matching is done over lowercased patterns
// and text, but every match still reports the pattern's original casing.
// Patterns that collide after folding merge into one, first one in wins.
func NewAutomaton(patterns []string, caseSensitive bool) *Automaton {
	a := &Automaton{root: newACNode(), caseSensitive: caseSensitive}

	seen := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		folded := p
		if !caseSensitive {
			folded = strings.ToLower(p)
		}
		if seen[folded] {
			continue
		}
		seen[folded] = true

		node := a.root
		for i := 0; i < len(folded); i++ {
			c := folded[i]
			child, ok := node.children[c]
			if !ok {
				child = newACNode()
				node.children[c] = child
			}
			node = child
		}
		node.output = append(node.output, acOutput{folded: folded, original: p})
	}

	a.buildFailureLinks()
	return a
}

// buildFailureLinks wires failure transitions by breadth-first traversal and
// merges output lists along failure chains, so every pattern ending at a
// suffix of the current position is emitted.
func (a *Automaton) buildFailureLinks() {
	queue := make([]*acNode, 0, len(a.root.children))
	for _, child := range a.root.children {
		child.failure = a.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for c, child := range current.children {
			queue = append(queue, child)

			fail := current.failure
			for fail != nil {
				if next, ok := fail.children[c]; ok && next != child {
					child.failure = next
					break
				}
				fail = fail.failure
			}
			if child.failure == nil {
				child.failure = a.root
			}
			child.output = append(child.output, child.failure.output...)
		}
	}
}

// Search reports every pattern occurrence in text. Matches carry byte
// offsets, a 1-indexed line number and a context snippet clipped to the text
// bounds. Overlapping matches of different patterns are all reported.
func (a *Automaton) Search(text string, contextChars int) []core.Match {
	if !a.caseSensitive {
		text = strings.ToLower(text)
	}
	if contextChars <= 0 {
		contextChars = DefaultContextChars
	}

	// Start offset of every line, for byte offset -> line number lookup.
	lineStarts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	lineOf := func(offset int) int {
		lo, hi := 0, len(lineStarts)-1
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if lineStarts[mid] <= offset {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return lo + 1
	}

	var matches []core.Match
	node := a.root
	for i := 0; i < len(text); i++ {
		c := text[i]
		for node != a.root && node.children[c] == nil {
			node = node.failure
		}
		if next, ok := node.children[c]; ok {
			node = next
		}

		for _, out := range node.output {
			start := i - len(out.folded) + 1
			end := i + 1

			ctxStart := start - contextChars
			if ctxStart < 0 {
				ctxStart = 0
			}
			ctxEnd := end + contextChars
			if ctxEnd > len(text) {
				ctxEnd = len(text)
			}

			matches = append(matches, core.Match{
				Pattern:    out.original,
				Start:      start,
				End:        end,
				LineNumber: lineOf(start),
				Context:    text[ctxStart:ctxEnd],
			})
		}
	}
	return matches
}

// SearchByPattern groups Search results by pattern.
func (a *Automaton) SearchByPattern(text string, contextChars int) map[string][]core.Match {
	byPattern := make(map[string][]core.Match)
	for _, m := range a.Search(text, contextChars) {
		byPattern[m.Pattern] = append(byPattern[m.Pattern], m)
	}
	return byPattern
}
