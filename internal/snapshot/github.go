package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/doc-sentry/internal/core"
)

const (
	metadataTimeout = 60 * time.Second
	archiveTimeout  = 120 * time.Second
)

// GitHubSource fetches snapshots of a single repository through the GitHub
// REST API, authenticated with a bearer token.
type GitHubSource struct {
	client *github.Client
	http   *http.Client
	owner  string
	repo   string
	slug   string
	logger *slog.Logger
}

// NewGitHubSource builds a Source for the repository identified by slug
// ("owner/name"). An empty token yields unauthenticated access.
func NewGitHubSource(ctx context.Context, slug, baseURL, token string, logger *slog.Logger) (*GitHubSource, error) {
	owner, repo, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository slug: %q", slug)
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: metadataTimeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = metadataTimeout
	}

	client := github.NewClient(httpClient)
	if baseURL != "" && baseURL != "https://api.github.com" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring api base url: %w", err)
		}
	}

	return &GitHubSource{
		client: client,
		http:   &http.Client{Timeout: archiveTimeout, Transport: httpClient.Transport},
		owner:  owner,
		repo:   repo,
		slug:   slug,
		logger: logger,
	}, nil
}

// DefaultBranch resolves the repository's default branch from its metadata.
func (s *GitHubSource) DefaultBranch(ctx context.Context) (string, error) {
	repo, _, err := s.client.Repositories.Get(ctx, s.owner, s.repo)
	if err != nil {
		return "", &core.FetchError{Slug: s.slug, Ref: "", Err: err}
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", &core.FetchError{Slug: s.slug, Err: fmt.Errorf("could not determine default branch")}
	}
	return branch, nil
}

// Resolve turns a branch name or digest into a commit SHA. A missing branch
// falls back once to the default branch; a 40-hex reference is returned as-is.
func (s *GitHubSource) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		branch, err := s.DefaultBranch(ctx)
		if err != nil {
			return "", err
		}
		ref = branch
	}
	if isCommitDigest(ref) {
		return ref, nil
	}

	sha, err := s.branchSHA(ctx, ref)
	if err == nil {
		return sha, nil
	}
	if !isNotFound(err) {
		return "", &core.FetchError{Slug: s.slug, Ref: ref, Err: err}
	}

	s.logger.Warn("branch not found, falling back to default branch", "slug", s.slug, "branch", ref)
	branch, err := s.DefaultBranch(ctx)
	if err != nil {
		return "", err
	}
	sha, err = s.branchSHA(ctx, branch)
	if err != nil {
		return "", &core.FetchError{Slug: s.slug, Ref: branch, Err: err}
	}
	return sha, nil
}

func (s *GitHubSource) branchSHA(ctx context.Context, branch string) (string, error) {
	ref, _, err := s.client.Git.GetRef(ctx, s.owner, s.repo, "heads/"+branch)
	if err != nil {
		return "", err
	}
	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("could not resolve branch %q", branch)
	}
	return sha, nil
}

// List returns the recursive tree of a reference. A truncated listing is
// fatal: the pipeline refuses to run on a partial view.
func (s *GitHubSource) List(ctx context.Context, ref string) ([]TreeEntry, error) {
	sha, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	tree, _, err := s.client.Git.GetTree(ctx, s.owner, s.repo, sha, true)
	if err != nil {
		return nil, &core.FetchError{Slug: s.slug, Ref: ref, Err: err}
	}
	if tree.GetTruncated() {
		return nil, &core.FetchError{Slug: s.slug, Ref: ref, Err: core.ErrTreeTruncated}
	}

	var entries []TreeEntry
	for _, node := range tree.Entries {
		if node.GetType() != "blob" {
			continue
		}
		entries = append(entries, TreeEntry{
			Path: node.GetPath(),
			Size: int64(node.GetSize()),
			SHA:  node.GetSHA(),
		})
	}
	return entries, nil
}

// Fetch downloads the gzipped tarball of a reference and indexes it.
func (s *GitHubSource) Fetch(ctx context.Context, ref string) (*Snapshot, error) {
	return s.FetchLimited(ctx, ref, 0)
}

// FetchLimited is Fetch with a per-file size cap in bytes (0 for unlimited);
// larger files are indexed as oversized.
func (s *GitHubSource) FetchLimited(ctx context.Context, ref string, maxBytes int64) (*Snapshot, error) {
	sha, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	opts := &github.RepositoryContentGetOptions{Ref: sha}
	link, _, err := s.client.Repositories.GetArchiveLink(ctx, s.owner, s.repo, github.Tarball, opts, 3)
	if err != nil {
		return nil, &core.FetchError{Slug: s.slug, Ref: ref, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return nil, &core.FetchError{Slug: s.slug, Ref: ref, Err: err}
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &core.FetchError{Slug: s.slug, Ref: ref, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &core.FetchError{
			Slug: s.slug, Ref: ref,
			Err: fmt.Errorf("tarball download: HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	snap, err := fromTarGz(resp.Body, ref, sha, maxBytes)
	if err != nil {
		return nil, &core.FetchError{Slug: s.slug, Ref: ref, Err: err}
	}
	s.logger.Debug("fetched snapshot", "slug", s.slug, "ref", ref, "sha", sha, "files", len(snap.Files))
	return snap, nil
}

func isCommitDigest(ref string) bool {
	if len(ref) != 40 {
		return false
	}
	for _, c := range ref {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
