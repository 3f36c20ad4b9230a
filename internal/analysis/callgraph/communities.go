package callgraph

import (
	"math/rand"
	"sort"

	"github.com/sevigo/doc-sentry/internal/core"
)

const (
	labelPropMaxRounds = 10
	labelPropSeed      = 42
)

// Detect partitions the graph into communities. Louvain modularity
// maximization is the primary algorithm; graphs without edges (where
// modularity is undefined) fall back to synchronous label propagation.
// Communities smaller than minSize are dropped; survivors are sorted by
// (size desc, first member asc) and their members lexically.
func Detect(g *Graph, resolution float64, minSize int) []core.Community {
	if minSize < 1 {
		minSize = 1
	}

	var labels map[string]string
	if g.EdgeCount() > 0 {
		labels = louvain(g, resolution)
	} else {
		labels = labelPropagation(g)
	}

	grouped := make(map[string][]string)
	for node, label := range labels {
		grouped[label] = append(grouped[label], node)
	}

	var communities []core.Community
	for _, members := range grouped {
		if len(members) < minSize {
			continue
		}
		sort.Strings(members)
		communities = append(communities, core.Community(members))
	}
	sort.Slice(communities, func(i, j int) bool {
		if len(communities[i]) != len(communities[j]) {
			return len(communities[i]) > len(communities[j])
		}
		return communities[i][0] < communities[j][0]
	})
	return communities
}

// Index maps every community member to its community's position, for
// constant-time "which community is this node in" lookups.
func Index(communities []core.Community) map[string]int {
	idx := make(map[string]int)
	for i, c := range communities {
		for _, member := range c {
			idx[member] = i
		}
	}
	return idx
}

// louvain is a deterministic single-threaded Louvain: local moving in sorted
// node order until no move improves modularity, then graph aggregation,
// repeated until the partition is stable. The resolution parameter scales the
// expected-edge term; higher values produce smaller communities.
func louvain(g *Graph, resolution float64) map[string]string {
	if resolution <= 0 {
		resolution = 1
	}

	nodes := g.Nodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	// Weighted adjacency of the working (possibly aggregated) graph.
	adj := make([]map[int]float64, len(nodes))
	for i, n := range nodes {
		adj[i] = make(map[int]float64)
		for _, nbr := range g.Neighbors(n) {
			adj[i][index[nbr]] = 1
		}
	}
	// membership[i] tracks which original nodes each working node contains.
	membership := make([][]int, len(nodes))
	for i := range membership {
		membership[i] = []int{i}
	}

	final := make([]int, len(nodes))
	for i := range final {
		final[i] = i
	}

	for {
		comm, moved := louvainLocalPass(adj, resolution)
		if !moved {
			break
		}

		// Relabel communities densely in first-seen order.
		remap := make(map[int]int)
		for i := 0; i < len(adj); i++ {
			if _, ok := remap[comm[i]]; !ok {
				remap[comm[i]] = len(remap)
			}
		}

		newMembership := make([][]int, len(remap))
		for i := range adj {
			c := remap[comm[i]]
			newMembership[c] = append(newMembership[c], membership[i]...)
		}
		for c, members := range newMembership {
			for _, orig := range members {
				final[orig] = c
			}
		}

		// Aggregate: communities become nodes, self-loops keep internal weight.
		newAdj := make([]map[int]float64, len(remap))
		for i := range newAdj {
			newAdj[i] = make(map[int]float64)
		}
		for i, nbrs := range adj {
			ci := remap[comm[i]]
			for j, w := range nbrs {
				cj := remap[comm[j]]
				newAdj[ci][cj] += w
			}
		}

		if len(newAdj) == len(adj) {
			break
		}
		adj = newAdj
		membership = newMembership
	}

	labels := make(map[string]string, len(nodes))
	for i, n := range nodes {
		labels[n] = nodes[clusterRepresentative(final, i)]
	}
	return labels
}

// clusterRepresentative picks the smallest original index in node i's cluster
// as its stable label.
func clusterRepresentative(final []int, i int) int {
	rep := i
	for j, c := range final {
		if c == final[i] && j < rep {
			rep = j
		}
	}
	return rep
}

// louvainLocalPass runs one local-moving phase and returns the community
// assignment plus whether any node moved.
func louvainLocalPass(adj []map[int]float64, resolution float64) ([]int, bool) {
	n := len(adj)
	comm := make([]int, n)
	degree := make([]float64, n)
	commTotal := make([]float64, n)
	var m2 float64 // twice the total edge weight

	for i := range adj {
		comm[i] = i
		// A self entry already carries both directions of its aggregated
		// internal edges, so summing the map yields the full degree.
		for _, w := range adj[i] {
			degree[i] += w
		}
		commTotal[i] = degree[i]
		m2 += degree[i]
	}
	if m2 == 0 {
		return comm, false
	}

	movedAny := false
	for {
		movedRound := false
		for i := 0; i < n; i++ {
			current := comm[i]

			// Edge weight from i to each neighboring community.
			weights := make(map[int]float64)
			for j, w := range adj[i] {
				if j == i {
					continue
				}
				weights[comm[j]] += w
			}

			commTotal[current] -= degree[i]

			bestComm := current
			bestGain := weights[current] - resolution*commTotal[current]*degree[i]/m2

			targets := make([]int, 0, len(weights))
			for c := range weights {
				targets = append(targets, c)
			}
			sort.Ints(targets)
			for _, c := range targets {
				if c == current {
					continue
				}
				gain := weights[c] - resolution*commTotal[c]*degree[i]/m2
				if gain > bestGain+1e-12 {
					bestGain = gain
					bestComm = c
				}
			}

			commTotal[bestComm] += degree[i]
			if bestComm != current {
				comm[i] = bestComm
				movedRound = true
				movedAny = true
			}
		}
		if !movedRound {
			break
		}
	}
	return comm, movedAny
}

// labelPropagation is the synchronous fallback: labels start as the node ids,
// each round visits nodes in a seeded shuffled order and adopts the most
// common neighbor label with a deterministic (count desc, label asc)
// tie-break, for at most ten rounds or until no label changes.
func labelPropagation(g *Graph) map[string]string {
	rnd := rand.New(rand.NewSource(labelPropSeed))

	nodes := g.Nodes()
	labels := make(map[string]string, len(nodes))
	for _, n := range nodes {
		labels[n] = n
	}

	for round := 0; round < labelPropMaxRounds; round++ {
		rnd.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })

		changes := 0
		for _, n := range nodes {
			counts := make(map[string]int)
			for _, nbr := range g.Neighbors(n) {
				counts[labels[nbr]]++
			}
			if len(counts) == 0 {
				continue
			}

			best := ""
			bestCount := -1
			for label, count := range counts {
				if count > bestCount || (count == bestCount && label < best) {
					best, bestCount = label, count
				}
			}
			if labels[n] != best {
				labels[n] = best
				changes++
			}
		}
		if changes == 0 {
			break
		}
	}
	return labels
}
