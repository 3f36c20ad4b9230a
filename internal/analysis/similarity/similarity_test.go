package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	t.Run("whitespace and case collapse", func(t *testing.T) {
		a := NormalizeText([]byte("Hello   World\r\n  Foo"), ".txt")
		b := NormalizeText([]byte("hello world foo"), ".txt")
		assert.Equal(t, b, a)
	})

	t.Run("code comments stripped", func(t *testing.T) {
		withComments := []byte("const x = 1; // answer\n/* block */ const y = 2;")
		bare := []byte("const x = 1; const y = 2;")
		assert.Equal(t, NormalizeText(bare, ".js"), NormalizeText(withComments, ".js"))
	})

	t.Run("json canonicalized", func(t *testing.T) {
		a := NormalizeText([]byte("{\"b\": 1,\n \"a\": 2}"), ".json")
		b := NormalizeText([]byte("{\"a\":2,\"b\":1}"), ".json")
		assert.Equal(t, b, a)
	})

	t.Run("markdown links unwrapped", func(t *testing.T) {
		a := NormalizeText([]byte("see [the guide](https://example.com/guide)"), ".md")
		b := NormalizeText([]byte("see the guide"), ".md")
		assert.Equal(t, b, a)
	})

	t.Run("invalid utf8 does not panic", func(t *testing.T) {
		out := NormalizeText([]byte{0xff, 0xfe, 'a', 'b'}, ".txt")
		assert.NotNil(t, out)
	})
}

func TestShingle(t *testing.T) {
	data := []byte(strings.Repeat("abcdefghijklmnop", 8))

	tokens := Shingle(data, 32, 4000)
	assert.NotEmpty(t, tokens)

	// Deterministic across calls.
	again := Shingle(data, 32, 4000)
	assert.Equal(t, tokens, again)

	// Shorter than the window yields no shingles.
	assert.Empty(t, Shingle([]byte("tiny"), 32, 4000))

	// The token cap is honored.
	capped := Shingle(data, 8, 3)
	assert.LessOrEqual(t, len(capped), 3)
}

func TestSignature(t *testing.T) {
	h := NewMinHasher(128)

	t.Run("empty set signs as P-1", func(t *testing.T) {
		sig := h.Signature(map[uint64]bool{})
		require.Len(t, sig, 128)
		for _, v := range sig {
			assert.Equal(t, mersennePrime-1, v)
		}
	})

	t.Run("identical sets have identical signatures", func(t *testing.T) {
		tokens := Shingle([]byte(strings.Repeat("the quick brown fox ", 10)), 32, 4000)
		assert.Equal(t, h.Signature(tokens), h.Signature(tokens))
	})

	t.Run("parameters are reproducible", func(t *testing.T) {
		other := NewMinHasher(128)
		tokens := map[uint64]bool{1: true, 99: true, 12345678: true}
		assert.Equal(t, h.Signature(tokens), other.Signature(tokens))
	})
}

func TestSignatureSimilarity(t *testing.T) {
	a := []uint64{1, 2, 3, 4}
	assert.Equal(t, 1.0, SignatureSimilarity(a, []uint64{1, 2, 3, 4}))
	assert.Equal(t, 0.5, SignatureSimilarity(a, []uint64{1, 2, 9, 9}))
	assert.Zero(t, SignatureSimilarity(a, []uint64{1, 2, 3}))
	assert.Zero(t, SignatureSimilarity(nil, nil))
}

func TestWhitespaceVariantsAreNearDuplicates(t *testing.T) {
	// Two docs with identical words but different whitespace must collide.
	base := strings.Repeat("the documentation describes the login flow in detail. ", 20)
	variant := strings.ReplaceAll(base, ". ", ".\n\n  ")

	h := NewMinHasher(128)
	sigA := h.Signature(Shingle(NormalizeText([]byte(base), ".md"), 32, 4000))
	sigB := h.Signature(Shingle(NormalizeText([]byte(variant), ".md"), 32, 4000))

	sim := SignatureSimilarity(sigA, sigB)
	assert.GreaterOrEqual(t, sim, 0.7)

	candidates := Candidates(map[string][]uint64{"docs:a.md": sigA, "docs:b.md": sigB}, 16, 8)
	require.NotEmpty(t, candidates)
	assert.Equal(t, Pair{A: "docs:a.md", B: "docs:b.md"}, candidates[0])
}

func TestCandidatesBandReduction(t *testing.T) {
	// 16 bands x 8 rows > 64 permutations: rows must shrink to fit without
	// losing the identical pair.
	h := NewMinHasher(64)
	tokens := Shingle([]byte(strings.Repeat("shared content here ", 30)), 32, 4000)
	sig := h.Signature(tokens)

	candidates := Candidates(map[string][]uint64{"a": sig, "b": sig}, 16, 8)
	require.Len(t, candidates, 1)
	assert.Equal(t, Pair{A: "a", B: "b"}, candidates[0])
}

func TestCandidatesSoundness(t *testing.T) {
	// Any pair at or above the threshold must share at least one band.
	h := NewMinHasher(128)
	docs := map[string][]uint64{
		"x": h.Signature(map[uint64]bool{1: true, 2: true, 3: true, 4: true, 5: true}),
		"y": h.Signature(map[uint64]bool{1: true, 2: true, 3: true, 4: true, 5: true}),
		"z": h.Signature(map[uint64]bool{1000: true, 2000: true}),
	}

	candidates := Candidates(docs, 16, 8)
	found := false
	for _, p := range candidates {
		if p == (Pair{A: "x", B: "y"}) {
			found = true
		}
	}
	assert.True(t, found, "identical signatures must be candidates")
}

func TestComponents(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	edges := []Pair{{A: "a", B: "b"}, {A: "b", B: "c"}, {A: "d", B: "e"}}

	all := Components(ids, edges, 1)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"a", "b", "c"}, all[0])
	assert.Equal(t, []string{"d", "e"}, all[1])

	filtered := Components(ids, edges, 3)
	require.Len(t, filtered, 1)
	assert.Equal(t, []string{"a", "b", "c"}, filtered[0])
}
