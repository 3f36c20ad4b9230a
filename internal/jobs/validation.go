package jobs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sevigo/doc-sentry/internal/core"
)

var repoSlugRegexp = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// validateEvent ensures an event carries everything the doc-update job needs
// before any network call is made.
func validateEvent(event *core.GitHubEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	switch {
	case event.RepoOwner == "" || event.RepoName == "":
		return errors.New("repository owner and name are required")
	case !repoSlugRegexp.MatchString(event.RepoFullName):
		return fmt.Errorf("invalid repository slug: %q", event.RepoFullName)
	case event.PRNumber <= 0:
		return fmt.Errorf("invalid pull request number: %d", event.PRNumber)
	case event.InstallationID == 0:
		return errors.New("installation ID is required")
	case !strings.HasPrefix(event.RepoCloneURL, "https://") && !strings.HasPrefix(event.RepoCloneURL, "http://"):
		return fmt.Errorf("invalid clone URL: %q", event.RepoCloneURL)
	}
	return nil
}
