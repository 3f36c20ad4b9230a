// Package merkle fingerprints file contents with a binary Merkle tree over
// fixed-size chunks, so change detection between two snapshots reduces to a
// root comparison.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/sevigo/doc-sentry/internal/snapshot"
)

// Root computes the hex-encoded Merkle root of data with the given chunk
// size, returning the root and the number of chunks.
//
// Empty input hashes to SHA-256 of nothing. A single chunk is hashed once
// more, so a leaf digest can never collide with a root. Odd fanout at any
// layer duplicates the last node.
func Root(data []byte, chunkSize int) (string, int) {
	if len(data) == 0 {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:]), 0
	}
	if chunkSize <= 0 {
		chunkSize = 1024
	}

	var layer [][32]byte
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		layer = append(layer, sha256.Sum256(data[i:end]))
	}
	chunks := len(layer)

	if chunks == 1 {
		sum := sha256.Sum256(layer[0][:])
		return hex.EncodeToString(sum[:]), chunks
	}

	for len(layer) > 1 {
		next := make([][32]byte, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			a := layer[i]
			b := a
			if i+1 < len(layer) {
				b = layer[i+1]
			}
			next = append(next, sha256.Sum256(append(a[:], b[:]...)))
		}
		layer = next
	}

	sum := sha256.Sum256(layer[0][:])
	return hex.EncodeToString(sum[:]), chunks
}

// Diff compares two snapshots by Merkle root. Changed holds paths present in
// both with differing roots; Added and Deleted hold paths present in only the
// new or only the old snapshot. All lists are sorted.
type Diff struct {
	Changed []string
	Added   []string
	Deleted []string
}

// Compare computes the per-file digest diff between two snapshots.
func Compare(oldSnap, newSnap *snapshot.Snapshot, chunkSize int) Diff {
	oldRoots := make(map[string]string, len(oldSnap.Files))
	for _, f := range oldSnap.Files {
		root, _ := Root(f.Data, chunkSize)
		oldRoots[f.Path] = root
	}

	var d Diff
	seen := make(map[string]bool, len(newSnap.Files))
	for _, f := range newSnap.Files {
		seen[f.Path] = true
		oldRoot, ok := oldRoots[f.Path]
		if !ok {
			d.Added = append(d.Added, f.Path)
			continue
		}
		newRoot, _ := Root(f.Data, chunkSize)
		if newRoot != oldRoot {
			d.Changed = append(d.Changed, f.Path)
		}
	}
	for _, f := range oldSnap.Files {
		if !seen[f.Path] {
			d.Deleted = append(d.Deleted, f.Path)
		}
	}

	sort.Strings(d.Changed)
	sort.Strings(d.Added)
	sort.Strings(d.Deleted)
	return d
}
