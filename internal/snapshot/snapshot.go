// Package snapshot materializes immutable views of repository references.
//
// A Source returns a tar archive plus a file index for a given reference. Two
// backends satisfy the same contract: a remote GitHub repository and a local
// git working copy.
package snapshot

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// File is a single entry of a snapshot. Paths are relative with forward
// slashes; the leading tar path component has been stripped.
type File struct {
	Path string
	Size int64
	Data []byte
}

// TreeEntry describes one file of a reference's listing without its content.
type TreeEntry struct {
	Path string
	Size int64
	SHA  string
}

// Snapshot is an immutable tar archive plus a file index, produced once per
// reference per run and treated as read-only afterwards.
type Snapshot struct {
	Ref string
	SHA string

	// Files is sorted by path.
	Files []File
	// Oversized lists paths skipped because they exceed the size limit.
	Oversized []string

	byPath map[string]int
}

// Source abstracts over the remote host API and local git.
type Source interface {
	// DefaultBranch resolves the repository's default branch name.
	DefaultBranch(ctx context.Context) (string, error)
	// Resolve turns a reference into a commit digest. The GitHub backend
	// falls back once to the default branch when a named branch does not
	// exist; the local backend returns an error instead.
	Resolve(ctx context.Context, ref string) (string, error)
	// List returns the file listing of a reference.
	List(ctx context.Context, ref string) ([]TreeEntry, error)
	// Fetch materializes the reference as a Snapshot.
	Fetch(ctx context.Context, ref string) (*Snapshot, error)
}

// New builds a Snapshot from in-memory files, sorting and indexing them.
func New(ref, sha string, files []File) *Snapshot {
	snap := &Snapshot{Ref: ref, SHA: sha, Files: files, byPath: make(map[string]int)}
	sort.Slice(snap.Files, func(i, j int) bool { return snap.Files[i].Path < snap.Files[j].Path })
	for i, f := range snap.Files {
		snap.byPath[f.Path] = i
	}
	return snap
}

// Get returns the file stored under path, if present.
func (s *Snapshot) Get(path string) (File, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return File{}, false
	}
	return s.Files[i], true
}

// Paths returns the sorted list of file paths in the snapshot.
func (s *Snapshot) Paths() []string {
	paths := make([]string, len(s.Files))
	for i, f := range s.Files {
		paths[i] = f.Path
	}
	return paths
}

// stripLeadingDir removes the single leading path component that both GitHub
// tarballs and git-archive prefixes prepend to every entry.
func stripLeadingDir(name string) string {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// fromTarGz indexes a gzipped tar archive. Files larger than maxBytes are
// recorded as oversized and their content is not retained.
func fromTarGz(r io.Reader, ref, sha string, maxBytes int64) (*Snapshot, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	snap := &Snapshot{Ref: ref, SHA: sha}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		path := stripLeadingDir(hdr.Name)
		if path == "" {
			continue
		}
		if maxBytes > 0 && hdr.Size > maxBytes {
			snap.Oversized = append(snap.Oversized, path)
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", path, err)
		}
		snap.Files = append(snap.Files, File{Path: path, Size: hdr.Size, Data: buf.Bytes()})
	}

	sort.Strings(snap.Oversized)
	indexed := New(ref, sha, snap.Files)
	indexed.Oversized = snap.Oversized
	return indexed, nil
}
