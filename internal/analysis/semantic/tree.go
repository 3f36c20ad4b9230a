// Package semantic classifies the severity of a file change by parsing both
// versions into simplified syntax trees and computing their Zhang-Shasha tree
// edit distance.
package semantic

// Tree is an arena of immutable nodes. Children are stored as indices into
// the arena, which keeps the edit-distance memoization keyed on small ints
// instead of pointers.
type Tree struct {
	nodes []node
	root  int
}

type node struct {
	typ      string
	value    string
	children []int
	size     int
	depth    int
}

// NewTree returns an empty arena.
func NewTree() *Tree {
	return &Tree{root: -1}
}

// Add appends a node whose children must already be in the arena, and returns
// its index. Sizes and depths are maintained incrementally, so the arena is
// always built bottom-up.
func (t *Tree) Add(typ, value string, children []int) int {
	size := 1
	depth := 0
	for _, c := range children {
		size += t.nodes[c].size
		if d := t.nodes[c].depth; d > depth {
			depth = d
		}
	}
	t.nodes = append(t.nodes, node{typ: typ, value: value, children: children, size: size, depth: depth + 1})
	return len(t.nodes) - 1
}

// SetRoot marks the arena's root node.
func (t *Tree) SetRoot(i int) { t.root = i }

// Root returns the root node index, or -1 for an empty tree.
func (t *Tree) Root() int { return t.root }

// Size returns the number of nodes in the subtree rooted at i.
func (t *Tree) Size(i int) int { return t.nodes[i].size }

// Depth returns the depth of the subtree rooted at i (1 for a leaf).
func (t *Tree) Depth(i int) int { return t.nodes[i].depth }

// Type returns the node type label.
func (t *Tree) Type(i int) string { return t.nodes[i].typ }

// Value returns the node value; present only on leaves.
func (t *Tree) Value(i int) string { return t.nodes[i].value }

// Children returns the ordered child indices of node i.
func (t *Tree) Children(i int) []int { return t.nodes[i].children }

// Len returns the total node count of the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// leaf reports whether node i has no children.
func (t *Tree) leaf(i int) bool { return len(t.nodes[i].children) == 0 }
