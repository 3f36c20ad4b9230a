package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/doc-sentry/internal/core"
)

// Priority emojis used in PR comments.
const (
	PriorityEmojiHigh   = "🔴"
	PriorityEmojiMedium = "🟡"
	PriorityEmojiLow    = "🟢"
)

// checkRunName identifies the app's check run on the PR.
const checkRunName = "Doc-Sentry Analysis"

// commentMarkerFormat tags bot comments so re-runs update in place.
const commentMarkerFormat = "<!-- DOC-SENTRY-BOT:PR:%d -->"

// StatusUpdater defines the contract for updating the status of a GitHub
// Check Run and posting analysis results on pull requests.
type StatusUpdater interface {
	InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error)
	Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error
	PostImpactReport(ctx context.Context, event *core.GitHubEvent, result *core.AnalysisResult) error
	PostSimpleComment(ctx context.Context, event *core.GitHubEvent, body string) error
}

type statusUpdater struct {
	client Client
	logger *slog.Logger
}

// NewStatusUpdater creates and returns a new instance of a statusUpdater.
func NewStatusUpdater(client Client, logger *slog.Logger) StatusUpdater {
	return &statusUpdater{client: client, logger: logger}
}

// PostSimpleComment posts a single, general comment on the pull request.
func (s *statusUpdater) PostSimpleComment(ctx context.Context, event *core.GitHubEvent, body string) error {
	return s.client.CreateComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, body)
}

// InProgress creates a new GitHub Check Run with an "in_progress" status.
func (s *statusUpdater) InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error) {
	opts := github.CreateCheckRunOptions{
		Name:    checkRunName,
		HeadSHA: event.HeadSHA,
		Status:  github.Ptr("in_progress"),
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	checkRun, err := s.client.CreateCheckRun(ctx, event.RepoOwner, event.RepoName, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to create check run: %w", err)
	}
	return checkRun.GetID(), nil
}

// Completed updates an existing GitHub Check Run to a "completed" status.
func (s *statusUpdater) Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error {
	now := time.Now()
	opts := github.UpdateCheckRunOptions{
		Status:      github.Ptr("completed"),
		Conclusion:  &conclusion,
		CompletedAt: &github.Timestamp{Time: now},
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	_, err := s.client.UpdateCheckRun(ctx, event.RepoOwner, event.RepoName, checkRunID, opts)
	return err
}

// PostImpactReport posts the formatted impact report as a marked PR comment,
// updating the previous bot comment in place when one exists.
func (s *statusUpdater) PostImpactReport(ctx context.Context, event *core.GitHubEvent, result *core.AnalysisResult) error {
	body := FormatImpactComment(event.PRNumber, result)

	comments, err := s.client.ListComments(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err == nil {
		marker := fmt.Sprintf(commentMarkerFormat, event.PRNumber)
		for i := len(comments) - 1; i >= 0; i-- {
			if strings.Contains(comments[i].GetBody(), marker) {
				return s.client.UpdateComment(ctx, event.RepoOwner, event.RepoName, comments[i].GetID(), body)
			}
		}
	}
	return s.client.CreateComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, body)
}

// FormatImpactComment renders the analysis result as PR comment markdown.
func FormatImpactComment(prNumber int, result *core.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, commentMarkerFormat+"\n", prNumber)
	b.WriteString("## 📚 Documentation Impact\n\n")
	fmt.Fprintf(&b, "Compared `%s` → `%s`: **%d** files changed, **%d** need a doc review.\n\n",
		shortRef(result.OldRef, result.OldSHA), shortRef(result.NewRef, result.NewSHA),
		result.Summary.FilesAnalyzed, result.Summary.NeedsDocUpdate)

	if len(result.ImpactedDocs) == 0 {
		b.WriteString("No impacted documentation found. 🎉\n")
		return b.String()
	}

	b.WriteString("| Priority | Document | Score | Entities |\n")
	b.WriteString("|----------|----------|-------|----------|\n")
	for _, doc := range result.ImpactedDocs {
		fmt.Fprintf(&b, "| %s %s | `%s` | %.1f | %s |\n",
			priorityEmoji(doc.Priority), doc.Priority, doc.DocPath, doc.Score,
			strings.Join(doc.ChangedEntities, ", "))
	}

	b.WriteString("\n<details>\n<summary>Why these documents?</summary>\n\n")
	for _, doc := range result.ImpactedDocs {
		fmt.Fprintf(&b, "**%s**\n", doc.DocPath)
		for _, reason := range doc.Reasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
		b.WriteString("\n")
	}
	b.WriteString("</details>\n\n")
	fmt.Fprintf(&b, "Comment `%s` to let the bot rewrite the impacted sections.\n", core.UpdateDocsCommand)
	return b.String()
}

func priorityEmoji(p core.Priority) string {
	switch p {
	case core.PriorityHigh:
		return PriorityEmojiHigh
	case core.PriorityMedium:
		return PriorityEmojiMedium
	default:
		return PriorityEmojiLow
	}
}

func shortRef(ref, sha string) string {
	if ref != "" && len(ref) < 40 {
		return ref
	}
	if len(sha) >= 8 {
		return sha[:8]
	}
	return sha
}
