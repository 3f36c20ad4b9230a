// Package repomanager manages the persistent working copies that doc
// rewrites are applied to.
package repomanager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sevigo/doc-sentry/internal/config"
	"github.com/sevigo/doc-sentry/internal/core"
	"github.com/sevigo/doc-sentry/internal/gitutil"
)

// RepoManager defines the contract for a service that keeps a local working
// copy of a repository checked out at a requested commit.
type RepoManager interface {
	// Checkout ensures the repository is cloned under the configured root
	// and its worktree points at sha. It returns the local path.
	Checkout(ctx context.Context, event *core.GitHubEvent, sha, token string) (string, error)
}

type manager struct {
	cfg     *config.Config
	git     *gitutil.Client
	logger  *slog.Logger
	repoMux sync.Map // one mutex per repository, so concurrent jobs serialize
}

// New creates a RepoManager rooted at cfg.Storage.RepoPath.
func New(cfg *config.Config, git *gitutil.Client, logger *slog.Logger) RepoManager {
	return &manager{cfg: cfg, git: git, logger: logger}
}

func (m *manager) Checkout(ctx context.Context, event *core.GitHubEvent, sha, token string) (string, error) {
	val, _ := m.repoMux.LoadOrStore(event.RepoFullName, &sync.Mutex{})
	mux := val.(*sync.Mutex)
	mux.Lock()
	defer mux.Unlock()

	clonePath := filepath.Join(m.cfg.Storage.RepoPath, safePathSegment(event.RepoFullName))

	if _, err := os.Stat(filepath.Join(clonePath, ".git")); err != nil {
		m.logger.Info("working copy missing, performing initial clone",
			"repo", event.RepoFullName, "path", clonePath)
		if err := os.MkdirAll(filepath.Dir(clonePath), 0o755); err != nil {
			return "", fmt.Errorf("failed to create working copy root: %w", err)
		}
		repo, err := m.git.Clone(ctx, event.RepoCloneURL, clonePath, token)
		if err != nil {
			return "", err
		}
		if err := m.git.Checkout(repo, sha); err != nil {
			return "", err
		}
		return clonePath, nil
	}

	repo, err := m.git.Open(clonePath)
	if err != nil {
		return "", err
	}
	if err := m.git.Fetch(ctx, repo, token); err != nil {
		return "", err
	}
	if err := m.git.Checkout(repo, sha); err != nil {
		return "", err
	}
	return clonePath, nil
}

// safePathSegment keeps repository slugs usable as directory names.
func safePathSegment(slug string) string {
	return strings.ReplaceAll(slug, "..", "_")
}
