package callgraph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGraph(t *testing.T) {
	files := map[string]string{
		"auth.js":  "function validatePassword(p) { return p.length > 8; }\nfunction login(u, p) { return validatePassword(p); }\n",
		"api.js":   "function handler(req) { return login(req.user, req.pass); }\n",
		"other.md": "not code",
	}
	languages := map[string]string{
		"auth.js": "javascript",
		"api.js":  "javascript",
	}

	g := Build(files, languages)

	// Function nodes plus one file-scope node per file.
	nodes := g.Nodes()
	assert.Contains(t, nodes, "auth.js::validatePassword")
	assert.Contains(t, nodes, "auth.js::login")
	assert.Contains(t, nodes, "api.js::handler")
	assert.Contains(t, nodes, "auth.js::__file__")
	assert.Contains(t, nodes, "api.js::__file__")

	// Calls attach at file scope and resolve to the defining file.
	assert.Contains(t, g.Neighbors("auth.js::__file__"), "auth.js::validatePassword")
	assert.Contains(t, g.Neighbors("api.js::__file__"), "auth.js::login")
}

func TestBuildResolvesForwardReferences(t *testing.T) {
	// b.js is enumerated after a.js but defines the callee a.js uses.
	files := map[string]string{
		"a.js": "function alpha() { return beta(); }\n",
		"b.js": "function beta() { return 1; }\n",
	}
	languages := map[string]string{"a.js": "javascript", "b.js": "javascript"}

	g := Build(files, languages)
	assert.Contains(t, g.Neighbors("a.js::__file__"), "b.js::beta")
}

func TestBuildPython(t *testing.T) {
	files := map[string]string{
		"svc.py": "def compute(x):\n    return helper(x)\n\ndef helper(x):\n    return x\n",
	}
	languages := map[string]string{"svc.py": "python"}

	g := Build(files, languages)
	assert.Contains(t, g.Nodes(), "svc.py::compute")
	assert.Contains(t, g.Nodes(), "svc.py::helper")
	assert.Contains(t, g.Neighbors("svc.py::__file__"), "svc.py::helper")
}

func TestDetectPartition(t *testing.T) {
	// Two dense clusters joined by nothing.
	g := NewGraph()
	cluster := func(prefix string, n int) []string {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("%s%d", prefix, i)
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				g.AddEdge(ids[i], ids[j])
			}
		}
		return ids
	}
	a := cluster("a", 4)
	b := cluster("b", 4)

	communities := Detect(g, 1.0, 1)

	// Before size filtering the union of communities equals the node set and
	// communities are pairwise disjoint.
	seen := map[string]int{}
	for _, c := range communities {
		require.NotEmpty(t, c)
		for _, member := range c {
			seen[member]++
		}
	}
	for _, id := range append(a, b...) {
		assert.Equal(t, 1, seen[id], "node %s must appear exactly once", id)
	}

	// The two cliques must not be merged.
	idx := Index(communities)
	assert.Equal(t, idx["a0"], idx["a3"])
	assert.Equal(t, idx["b0"], idx["b3"])
	assert.NotEqual(t, idx["a0"], idx["b0"])
}

func TestDetectMinCommunitySize(t *testing.T) {
	g := NewGraph()
	g.AddEdge("x0", "x1")
	g.AddEdge("x1", "x2")
	g.AddEdge("y0", "y1")

	communities := Detect(g, 1.0, 3)
	require.Len(t, communities, 1)
	assert.Equal(t, []string{"x0", "x1", "x2"}, []string(communities[0]))
}

func TestDetectDeterministic(t *testing.T) {
	build := func() *Graph {
		g := NewGraph()
		g.AddEdge("m::a", "m::b")
		g.AddEdge("m::b", "m::c")
		g.AddEdge("n::d", "n::e")
		g.AddEdge("n::e", "n::f")
		g.AddEdge("m::c", "n::d")
		return g
	}

	first := Detect(build(), 1.0, 1)
	second := Detect(build(), 1.0, 1)
	assert.Equal(t, first, second)
}

func TestLabelPropagationIsolatedNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("solo1")
	g.AddNode("solo2")

	labels := labelPropagation(g)
	assert.Equal(t, "solo1", labels["solo1"])
	assert.Equal(t, "solo2", labels["solo2"])
}

func TestSplitNodeID(t *testing.T) {
	file, name := SplitNodeID("src/auth.js::login")
	assert.Equal(t, "src/auth.js", file)
	assert.Equal(t, "login", name)
}
