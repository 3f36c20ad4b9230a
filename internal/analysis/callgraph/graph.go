// Package callgraph builds a pragmatic function-level call graph from
// extracted definitions and call sites, and detects communities over its
// undirected form.
package callgraph

import (
	"regexp"
	"sort"
	"strings"
)

// FileScopeName labels the synthetic per-file node that receives call sites
// whose enclosing function cannot be determined.
const FileScopeName = "__file__"

var (
	reFuncJS    = regexp.MustCompile(`(?:export\s+)?function\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)
	reFuncVarJS = regexp.MustCompile(`(?:const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*(?:async\s*)?(?:function\s*\(|\([\s\S]*?\)\s*=>)`)
	reFuncPy    = regexp.MustCompile(`def\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)
	reCall      = regexp.MustCompile(`\b([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)

	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`//.*`)
	rePyComment    = regexp.MustCompile(`#.*`)
)

var callStopwords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true,
	"function": true, "console": true, "new": true, "catch": true,
	"typeof": true, "await": true, "def": true, "print": true, "len": true,
	"range": true, "super": true,
}

// Graph is an undirected multigraph over function-scope nodes plus one
// synthetic file-scope node per file, stored as adjacency sets.
type Graph struct {
	adj map[string]map[string]bool
}

// NodeID forms the canonical node identifier for a (file, name) pair.
func NodeID(file, name string) string { return file + "::" + name }

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{adj: make(map[string]map[string]bool)}
}

// AddNode ensures a node exists.
func (g *Graph) AddNode(id string) {
	if g.adj[id] == nil {
		g.adj[id] = make(map[string]bool)
	}
}

// AddEdge connects two nodes symmetrically.
func (g *Graph) AddEdge(a, b string) {
	g.AddNode(a)
	g.AddNode(b)
	g.adj[a][b] = true
	g.adj[b][a] = true
}

// Nodes returns the sorted node identifiers.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.adj))
	for id := range g.adj {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// Neighbors returns the sorted neighbor list of a node.
func (g *Graph) Neighbors(id string) []string {
	nbrs := make([]string, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		nbrs = append(nbrs, n)
	}
	sort.Strings(nbrs)
	return nbrs
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, nbrs := range g.adj {
		total += len(nbrs)
	}
	return total / 2
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.adj) }

// graphLanguages are the languages whose files participate in the graph.
var graphLanguages = map[string]bool{
	"python": true, "javascript": true, "typescript": true,
}

// Build constructs the call graph from source files. Files are visited in
// sorted path order, so the "earliest definition wins" rule for callee
// resolution is deterministic. Call sites are attributed to the file-scope
// node; resolving the true enclosing function would need a full parse.
func Build(files map[string]string, languages map[string]string) *Graph {
	g := NewGraph()
	definedIn := make(map[string]string) // function name -> node id of first definition

	paths := make([]string, 0, len(files))
	for p := range files {
		if graphLanguages[languages[p]] {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	type fileCalls struct {
		path  string
		calls []string
	}
	var pending []fileCalls

	for _, p := range paths {
		src := stripComments(files[p], languages[p])

		funcs := make(map[string]bool)
		collectNames(funcs, reFuncJS, src)
		collectNames(funcs, reFuncVarJS, src)
		if languages[p] == "python" {
			collectNames(funcs, reFuncPy, src)
		}

		for _, fn := range sortedNames(funcs) {
			id := NodeID(p, fn)
			g.AddNode(id)
			if _, ok := definedIn[fn]; !ok {
				definedIn[fn] = id
			}
		}
		g.AddNode(NodeID(p, FileScopeName))

		var calls []string
		seen := make(map[string]bool)
		for _, m := range reCall.FindAllStringSubmatch(src, -1) {
			callee := m[1]
			if callStopwords[callee] || seen[callee] {
				continue
			}
			seen[callee] = true
			calls = append(calls, callee)
		}
		sort.Strings(calls)
		pending = append(pending, fileCalls{path: p, calls: calls})
	}

	// Second pass: definitions from every file are known, so call sites can
	// resolve forward references.
	for _, fc := range pending {
		src := NodeID(fc.path, FileScopeName)
		for _, callee := range fc.calls {
			dst, ok := definedIn[callee]
			if !ok || dst == src {
				continue
			}
			g.AddEdge(src, dst)
		}
	}
	return g
}

func stripComments(src, language string) string {
	if language == "python" {
		return rePyComment.ReplaceAllString(src, " ")
	}
	src = reBlockComment.ReplaceAllString(src, " ")
	return reLineComment.ReplaceAllString(src, " ")
}

func collectNames(into map[string]bool, re *regexp.Regexp, src string) {
	for _, m := range re.FindAllStringSubmatch(src, -1) {
		if len(m) > 1 && m[1] != "" {
			into[m[1]] = true
		}
	}
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SplitNodeID recovers the (file, name) pair from a node identifier.
func SplitNodeID(id string) (file, name string) {
	if i := strings.LastIndex(id, "::"); i >= 0 {
		return id[:i], id[i+2:]
	}
	return id, ""
}
