package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/doc-sentry/internal/config"
	"github.com/sevigo/doc-sentry/internal/core"
	"github.com/sevigo/doc-sentry/internal/github"
	"github.com/sevigo/doc-sentry/internal/pipeline"
	"github.com/sevigo/doc-sentry/internal/repomanager"
	"github.com/sevigo/doc-sentry/internal/rewriter"
	"github.com/sevigo/doc-sentry/internal/snapshot"
	"github.com/sevigo/doc-sentry/internal/storage"
)

// Publisher stages and publishes modified doc files. The core only writes
// into the working copy; commit and push plumbing is supplied by the
// deployment. The default implementation records what would be published.
type Publisher interface {
	Publish(ctx context.Context, repoPath string, paths []string, message string) error
}

// logPublisher is the default no-op Publisher.
type logPublisher struct {
	logger *slog.Logger
}

func (p *logPublisher) Publish(_ context.Context, repoPath string, paths []string, _ string) error {
	p.logger.Info("doc rewrites left in working copy; no publisher configured",
		"path", repoPath, "files", len(paths))
	return nil
}

// NewLogPublisher returns the default Publisher that only logs.
func NewLogPublisher(logger *slog.Logger) Publisher { return &logPublisher{logger: logger} }

// UpdateDocsJob runs the full analysis for a pull request's base and head,
// posts the impact report, and rewrites impacted docs in the working copy.
type UpdateDocsJob struct {
	cfg       *config.Config
	repoMgr   repomanager.RepoManager
	store     storage.Store // nil when history is disabled
	publisher Publisher
	logger    *slog.Logger
}

// NewUpdateDocsJob creates the job with all its dependencies. store may be
// nil; publisher falls back to the logging implementation.
func NewUpdateDocsJob(cfg *config.Config, repoMgr repomanager.RepoManager, store storage.Store, publisher Publisher, logger *slog.Logger) core.Job {
	if cfg == nil || repoMgr == nil || logger == nil {
		panic("NewUpdateDocsJob received a nil dependency")
	}
	if publisher == nil {
		publisher = NewLogPublisher(logger)
	}
	return &UpdateDocsJob{cfg: cfg, repoMgr: repoMgr, store: store, publisher: publisher, logger: logger}
}

// Run executes the doc-update flow for one event.
func (j *UpdateDocsJob) Run(ctx context.Context, event *core.GitHubEvent) (err error) {
	if err := validateEvent(event); err != nil {
		j.logger.Error("input validation failed", "error", err)
		return err
	}
	j.logger.Info("starting doc-update job", "repo", event.RepoFullName, "pr", event.PRNumber)

	ghClient, ghToken, err := github.CreateInstallationClient(ctx, j.cfg, event.InstallationID, j.logger)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pr, err := ghClient.GetPullRequest(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		return fmt.Errorf("failed to get PR details: %w", err)
	}
	if pr.GetHead().GetSHA() == "" || pr.GetBase().GetSHA() == "" {
		return fmt.Errorf("PR #%d is missing base or head SHA", event.PRNumber)
	}
	event.HeadSHA = pr.GetHead().GetSHA()
	event.BaseSHA = pr.GetBase().GetSHA()
	event.BaseRef = pr.GetBase().GetRef()

	status := github.NewStatusUpdater(ghClient, j.logger)
	checkRunID, err := status.InProgress(ctx, event, "Documentation Impact", "Analyzing code changes...")
	if err != nil {
		return fmt.Errorf("failed to set in-progress status: %w", err)
	}
	defer func() {
		if err != nil {
			j.failCheckRun(ctx, status, event, checkRunID, err)
		}
	}()

	source, err := snapshot.NewGitHubSource(ctx, event.RepoFullName, j.cfg.GitHub.APIBaseURL, ghToken, j.logger)
	if err != nil {
		return fmt.Errorf("failed to create snapshot source: %w", err)
	}

	pipe := pipeline.New(j.cfg.Pipeline, source, nil, event.RepoFullName, event.RepoFullName,
		j.logger.With("component", "pipeline"))
	result, err := pipe.Run(ctx, event.BaseSHA, event.HeadSHA)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	result.OldRef = event.BaseRef
	result.NewRef = pr.GetHead().GetRef()

	if err := status.PostImpactReport(ctx, event, result); err != nil {
		return fmt.Errorf("failed to post impact report: %w", err)
	}
	j.saveRun(ctx, result)

	written, skipped := j.rewriteDocs(ctx, event, result, ghToken)

	summary := fmt.Sprintf("%d impacted docs, %d sections rewritten, %d skipped",
		len(result.ImpactedDocs), written, skipped)
	if err := status.Completed(ctx, event, checkRunID, "success", "Documentation Impact", summary); err != nil {
		return fmt.Errorf("failed to update completion status: %w", err)
	}

	j.logger.Info("doc-update job completed", "repo", event.RepoFullName, "pr", event.PRNumber,
		"written", written, "skipped", skipped)
	return nil
}

// rewriteDocs generates suggestions for every impacted doc entity and writes
// the accepted ones into the working copy. Rewrite failures never abort the
// run; they are logged and counted as skipped.
func (j *UpdateDocsJob) rewriteDocs(ctx context.Context, event *core.GitHubEvent, result *core.AnalysisResult, token string) (written, skipped int) {
	if len(result.ImpactedDocs) == 0 {
		return 0, 0
	}

	repoPath, err := j.repoMgr.Checkout(ctx, event, event.HeadSHA, token)
	if err != nil {
		j.logger.Error("failed to prepare working copy, skipping rewrites", "error", err)
		return 0, len(result.ImpactedDocs)
	}

	minConfidence := j.cfg.AI.MinConfidence
	if repoCfg, err := config.LoadRepoConfig(repoPath); err == nil && repoCfg.MinConfidence > 0 {
		minConfidence = repoCfg.MinConfidence
	}

	provider, err := rewriter.NewProvider(j.cfg.AI, j.logger)
	if err != nil {
		j.logger.Error("failed to create llm provider, skipping rewrites", "error", err)
		return 0, len(result.ImpactedDocs)
	}
	generator, err := rewriter.NewGenerator(provider, j.logger)
	if err != nil {
		j.logger.Error("failed to create generator, skipping rewrites", "error", err)
		return 0, len(result.ImpactedDocs)
	}

	local := snapshot.NewLocalSource(repoPath, j.logger)
	writer := rewriter.NewWriter(repoPath)
	var writtenPaths []string

	for _, doc := range result.ImpactedDocs {
		if doc.Priority == core.PriorityLow {
			skipped++
			continue
		}
		for _, entity := range doc.ChangedEntities {
			suggestion, err := j.rewriteEntity(ctx, generator, writer, local, result, doc, entity, minConfidence)
			if err != nil {
				j.logger.Warn("rewrite skipped", "entity", entity, "doc", doc.DocPath, "reason", err)
				skipped++
				continue
			}
			if suggestion.State == core.SuggestionWritten {
				written++
				writtenPaths = append(writtenPaths, suggestion.DocPath)
			} else {
				skipped++
			}
		}
	}

	if len(writtenPaths) > 0 {
		message := fmt.Sprintf("docs: update %d sections for PR #%d", written, event.PRNumber)
		if err := j.publisher.Publish(ctx, repoPath, writtenPaths, message); err != nil {
			j.logger.Error("failed to publish doc rewrites", "error", err)
		}
	}
	return written, skipped
}

func (j *UpdateDocsJob) rewriteEntity(
	ctx context.Context,
	generator *rewriter.Generator,
	writer *rewriter.Writer,
	local *snapshot.LocalSource,
	result *core.AnalysisResult,
	doc core.ImpactedDoc,
	entity string,
	minConfidence float64,
) (core.DocSuggestion, error) {
	sourceFile, changedFile := findChangedFile(result, entity)
	if sourceFile == "" {
		return core.DocSuggestion{}, fmt.Errorf("no changed file defines %s", entity)
	}

	oldContent, _ := local.Show(ctx, result.OldSHA, sourceFile)
	newContent, _ := local.Show(ctx, result.NewSHA, sourceFile)
	if len(newContent) == 0 {
		return core.DocSuggestion{}, fmt.Errorf("no head content for %s", sourceFile)
	}

	language := changedFile.Language
	currentDoc, _ := local.Show(ctx, result.NewSHA, doc.DocPath)

	req := rewriter.Request{
		Entity:     entity,
		File:       sourceFile,
		Language:   language,
		OldCode:    rewriter.ExtractEntityCode(string(oldContent), entity, language),
		NewCode:    rewriter.ExtractEntityCode(string(newContent), entity, language),
		CurrentDoc: string(currentDoc),
		DocPath:    doc.DocPath,
		ChangeType: changedFile.ChangeType,
		Distance:   changedFile.NormalizedDistance,
		Mentions:   doc.MentionCounts[entity],
		Community:  doc.CommunitySize,
	}

	suggestion := rewriter.Resolve(generator.Generate(ctx, req), minConfidence)
	if suggestion.State != core.SuggestionAccepted {
		return suggestion, nil
	}
	return writer.Write(suggestion)
}

// findChangedFile locates the changed file that defines an entity.
func findChangedFile(result *core.AnalysisResult, entity string) (string, core.ChangedFile) {
	for _, cf := range result.ChangedFiles {
		if cf.Entities[entity] {
			return cf.Path, cf
		}
	}
	// Fall back to the stem heuristic the scorer used for attribution.
	lower := strings.ToLower(entity)
	for _, cf := range result.ChangedFiles {
		if !cf.NeedsDocUpdate {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(cf.Path, pathExt(cf.Path)))
		if strings.Contains(lower, pathBase(stem)) || strings.Contains(pathBase(stem), lower) {
			return cf.Path, cf
		}
	}
	return "", core.ChangedFile{}
}

func pathExt(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 && !strings.Contains(p[i:], "/") {
		return p[i:]
	}
	return ""
}

func pathBase(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func (j *UpdateDocsJob) saveRun(ctx context.Context, result *core.AnalysisResult) {
	if j.store == nil {
		return
	}
	reportJSON, err := json.Marshal(result)
	if err != nil {
		j.logger.Error("failed to marshal run report", "error", err)
		return
	}

	high, medium, low := 0, 0, 0
	for _, doc := range result.ImpactedDocs {
		switch doc.Priority {
		case core.PriorityHigh:
			high++
		case core.PriorityMedium:
			medium++
		default:
			low++
		}
	}

	run := &core.RunRecord{
		CodeSlug:      result.CodeSlug,
		DocsSlug:      result.DocsSlug,
		OldRef:        result.OldRef,
		NewRef:        result.NewRef,
		OldSHA:        result.OldSHA,
		NewSHA:        result.NewSHA,
		FilesAnalyzed: result.Summary.FilesAnalyzed,
		ImpactedDocs:  len(result.ImpactedDocs),
		HighCount:     high,
		MediumCount:   medium,
		LowCount:      low,
		Report:        string(reportJSON),
	}
	if err := j.store.SaveRun(ctx, run); err != nil {
		// The user already has the report; losing history is not fatal.
		j.logger.Error("failed to save run record", "error", err)
	}
}

func (j *UpdateDocsJob) failCheckRun(ctx context.Context, status github.StatusUpdater, event *core.GitHubEvent, checkRunID int64, jobErr error) {
	j.logger.Error("doc-update job step failed", "error", jobErr,
		"repo", event.RepoFullName, "pr", event.PRNumber)
	if err := status.Completed(ctx, event, checkRunID, "failure", "Documentation Impact Failed", jobErr.Error()); err != nil {
		j.logger.Error("failed to update failure status on GitHub",
			"original_error", jobErr, "status_update_error", err)
	}
}
