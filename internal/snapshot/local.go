package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sevigo/doc-sentry/internal/core"
)

// LocalSource materializes snapshots from a local git working copy by
// invoking git's archive facility, so CI runs need no API access at all.
type LocalSource struct {
	repoPath string
	logger   *slog.Logger
}

// NewLocalSource builds a Source over the git repository at repoPath.
func NewLocalSource(repoPath string, logger *slog.Logger) *LocalSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSource{repoPath: repoPath, logger: logger}
}

func (s *LocalSource) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.repoPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// DefaultBranch reads the symbolic ref of origin's HEAD, probing the common
// branch names when the remote ref is absent.
func (s *LocalSource) DefaultBranch(ctx context.Context) (string, error) {
	out, err := s.git(ctx, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		ref := strings.TrimSpace(string(out))
		if i := strings.LastIndexByte(ref, '/'); i >= 0 {
			return ref[i+1:], nil
		}
	}
	for _, branch := range []string{"main", "master"} {
		if _, err := s.git(ctx, "rev-parse", "--verify", branch); err == nil {
			return branch, nil
		}
	}
	return "", &core.FetchError{Slug: s.repoPath, Err: fmt.Errorf("could not determine default branch")}
}

// Resolve turns a reference into a full commit digest.
func (s *LocalSource) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		branch, err := s.DefaultBranch(ctx)
		if err != nil {
			return "", err
		}
		ref = branch
	}
	out, err := s.git(ctx, "rev-parse", ref)
	if err != nil {
		return "", &core.FetchError{Slug: s.repoPath, Ref: ref, Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

// List parses `git ls-tree -r --long` output into tree entries.
func (s *LocalSource) List(ctx context.Context, ref string) ([]TreeEntry, error) {
	out, err := s.git(ctx, "ls-tree", "-r", "--long", ref)
	if err != nil {
		return nil, &core.FetchError{Slug: s.repoPath, Ref: ref, Err: err}
	}

	var entries []TreeEntry
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		// Format: <mode> <type> <sha> <size>\t<path>
		meta, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) < 4 || fields[1] != "blob" {
			continue
		}
		size, _ := strconv.ParseInt(fields[3], 10, 64)
		entries = append(entries, TreeEntry{Path: path, Size: size, SHA: fields[2]})
	}
	return entries, nil
}

// Fetch produces a snapshot using `git archive --format=tar.gz`.
func (s *LocalSource) Fetch(ctx context.Context, ref string) (*Snapshot, error) {
	return s.FetchLimited(ctx, ref, 0)
}

// FetchLimited is Fetch with a per-file size cap in bytes (0 for unlimited).
func (s *LocalSource) FetchLimited(ctx context.Context, ref string, maxBytes int64) (*Snapshot, error) {
	sha, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	out, err := s.git(ctx, "archive", "--format=tar.gz", "--prefix=repo/", sha)
	if err != nil {
		return nil, &core.FetchError{Slug: s.repoPath, Ref: ref, Err: err}
	}
	snap, err := fromTarGz(bytes.NewReader(out), ref, sha, maxBytes)
	if err != nil {
		return nil, &core.FetchError{Slug: s.repoPath, Ref: ref, Err: err}
	}
	s.logger.Debug("archived snapshot", "repo", s.repoPath, "ref", ref, "sha", sha, "files", len(snap.Files))
	return snap, nil
}

// ChangedPaths lists paths that differ between two refs with their git status
// letter, via `git diff --name-status`.
func (s *LocalSource) ChangedPaths(ctx context.Context, oldRef, newRef string) (map[string]string, error) {
	out, err := s.git(ctx, "diff", "--name-status", oldRef+"..."+newRef)
	if err != nil {
		return nil, err
	}
	changed := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		changed[parts[len(parts)-1]] = parts[0]
	}
	return changed, nil
}

// Show returns a file's content at a specific ref; missing files yield an
// empty slice, matching the behavior of a deleted or added path.
func (s *LocalSource) Show(ctx context.Context, ref, path string) ([]byte, error) {
	out, err := s.git(ctx, "show", ref+":"+path)
	if err != nil {
		return nil, nil
	}
	return out, nil
}

// ShortHead returns the abbreviated digest of HEAD.
func (s *LocalSource) ShortHead(ctx context.Context) (string, error) {
	out, err := s.git(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
