package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/doc-sentry/internal/core"
)

func validEvent() *core.GitHubEvent {
	return &core.GitHubEvent{
		RepoOwner:      "sevigo",
		RepoName:       "doc-sentry",
		RepoFullName:   "sevigo/doc-sentry",
		RepoCloneURL:   "https://github.com/sevigo/doc-sentry.git",
		PRNumber:       12,
		InstallationID: 99,
	}
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*core.GitHubEvent)
		wantErr bool
	}{
		{name: "valid event", mutate: func(*core.GitHubEvent) {}},
		{name: "missing owner", mutate: func(e *core.GitHubEvent) { e.RepoOwner = "" }, wantErr: true},
		{name: "bad slug", mutate: func(e *core.GitHubEvent) { e.RepoFullName = "nonsense" }, wantErr: true},
		{name: "slug with traversal", mutate: func(e *core.GitHubEvent) { e.RepoFullName = "a/b/../c" }, wantErr: true},
		{name: "zero PR number", mutate: func(e *core.GitHubEvent) { e.PRNumber = 0 }, wantErr: true},
		{name: "missing installation", mutate: func(e *core.GitHubEvent) { e.InstallationID = 0 }, wantErr: true},
		{name: "non-http clone URL", mutate: func(e *core.GitHubEvent) { e.RepoCloneURL = "git@github.com:a/b.git" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validEvent()
			tt.mutate(event)

			err := validateEvent(event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEventNil(t *testing.T) {
	assert.Error(t, validateEvent(nil))
}
