package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/doc-sentry/internal/snapshot"
)

func TestRootEmpty(t *testing.T) {
	root, chunks := Root(nil, 1024)

	sum := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(sum[:]), root)
	assert.Zero(t, chunks)
}

func TestRootSingleChunkDiffersFromLeaf(t *testing.T) {
	data := []byte("hello world")
	root, chunks := Root(data, 1024)

	leaf := sha256.Sum256(data)
	assert.Equal(t, 1, chunks)
	// A single chunk is hashed once more, so the root never equals the leaf.
	assert.NotEqual(t, hex.EncodeToString(leaf[:]), root)

	expected := sha256.Sum256(leaf[:])
	assert.Equal(t, hex.EncodeToString(expected[:]), root)
}

func TestRootStability(t *testing.T) {
	data := bytes.Repeat([]byte("abcdef"), 1000)

	first, chunks1 := Root(data, 256)
	second, chunks2 := Root(data, 256)
	assert.Equal(t, first, second)
	assert.Equal(t, chunks1, chunks2)

	// Chunk size participates in the digest.
	other, _ := Root(data, 512)
	assert.NotEqual(t, first, other)
}

func TestRootOddFanout(t *testing.T) {
	// Three chunks force a duplicated last node at the first layer.
	data := bytes.Repeat([]byte{'a'}, 3*64)
	root, chunks := Root(data, 64)
	assert.Equal(t, 3, chunks)
	assert.Len(t, root, 64)
}

func TestCompare(t *testing.T) {
	oldSnap := snapFrom(t, map[string]string{
		"same.py":    "unchanged",
		"changed.py": "old content",
		"gone.py":    "deleted",
	})
	newSnap := snapFrom(t, map[string]string{
		"same.py":    "unchanged",
		"changed.py": "new content",
		"fresh.py":   "added",
	})

	diff := Compare(oldSnap, newSnap, 1024)

	assert.Equal(t, []string{"changed.py"}, diff.Changed)
	assert.Equal(t, []string{"fresh.py"}, diff.Added)
	assert.Equal(t, []string{"gone.py"}, diff.Deleted)
}

func TestCompareIdenticalSnapshots(t *testing.T) {
	files := map[string]string{"a.py": "x", "b.py": "y"}
	diff := Compare(snapFrom(t, files), snapFrom(t, files), 1024)

	assert.Empty(t, diff.Changed)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Deleted)
}

func snapFrom(t *testing.T, files map[string]string) *snapshot.Snapshot {
	t.Helper()
	snap := &snapshot.Snapshot{}
	for path, content := range files {
		snap.Files = append(snap.Files, snapshot.File{
			Path: path,
			Size: int64(len(content)),
			Data: []byte(content),
		})
	}
	require.NotNil(t, snap)
	return snap
}
