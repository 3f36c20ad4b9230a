package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/doc-sentry/internal/config"
	"github.com/sevigo/doc-sentry/internal/core"
	"github.com/sevigo/doc-sentry/internal/pipeline"
	"github.com/sevigo/doc-sentry/internal/report"
	"github.com/sevigo/doc-sentry/internal/snapshot"
)

var analyzeFlags struct {
	codeSlug string
	docsSlug string
	repoPath string
	baseRef  string
	headRef  string
	token    string
	jsonOnly bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the documentation impact analysis for two references",
	Long: `Analyze compares two references of a repository (remote GitHub slug or a
local working copy), classifies every changed file, and ranks the impacted
documentation. The full report is written as JSON and summarized on stdout.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.codeSlug, "code", "", "code repository slug (owner/repo)")
	f.StringVar(&analyzeFlags.docsSlug, "docs", "", "docs repository slug (defaults to --code)")
	f.StringVar(&analyzeFlags.repoPath, "repo-path", "", "analyze a local git repository instead of a remote slug")
	f.StringVar(&analyzeFlags.baseRef, "base", "", "base reference (branch, tag, or commit)")
	f.StringVar(&analyzeFlags.headRef, "head", "", "head reference (branch, tag, or commit)")
	f.StringVar(&analyzeFlags.token, "token", "", "GitHub token (defaults to github.token config)")
	f.BoolVar(&analyzeFlags.jsonOnly, "json", false, "print only the JSON report path")
	_ = analyzeCmd.MarkFlagRequired("base")
	_ = analyzeCmd.MarkFlagRequired("head")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForCLI(); err != nil {
		return err
	}

	result, err := analyze(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	path, err := report.WriteJSON(cfg.Storage.ReportPath, result)
	if err != nil {
		return err
	}

	if analyzeFlags.jsonOnly {
		fmt.Println(path)
		return nil
	}
	report.Render(os.Stdout, result)
	fmt.Printf("Full report: %s\n", path)
	return nil
}

// analyze builds the snapshot sources from the flags and runs the pipeline.
func analyze(ctx context.Context, cfg *config.Config) (result *core.AnalysisResult, err error) {
	logger := slog.Default()

	var codeSrc, docsSrc pipeline.Fetcher
	codeSlug := analyzeFlags.codeSlug
	docsSlug := analyzeFlags.docsSlug

	switch {
	case analyzeFlags.repoPath != "":
		codeSlug = analyzeFlags.repoPath
		codeSrc = snapshot.NewLocalSource(analyzeFlags.repoPath, logger)
	case codeSlug != "":
		token := analyzeFlags.token
		if token == "" {
			token = cfg.GitHub.Token
		}
		codeSrc, err = snapshot.NewGitHubSource(ctx, codeSlug, cfg.GitHub.APIBaseURL, token, logger)
		if err != nil {
			return nil, err
		}
		if docsSlug != "" && docsSlug != codeSlug {
			docsSrc, err = snapshot.NewGitHubSource(ctx, docsSlug, cfg.GitHub.APIBaseURL, token, logger)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("either --code or --repo-path is required")
	}
	if docsSlug == "" {
		docsSlug = codeSlug
	}

	pipe := pipeline.New(cfg.Pipeline, codeSrc, docsSrc, codeSlug, docsSlug, logger.With("component", "pipeline"))
	return pipe.Run(ctx, analyzeFlags.baseRef, analyzeFlags.headRef)
}
