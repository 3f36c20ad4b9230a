package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/doc-sentry/internal/core"
	"github.com/sevigo/doc-sentry/internal/report"
	"github.com/sevigo/doc-sentry/internal/rewriter"
	"github.com/sevigo/doc-sentry/internal/snapshot"
)

var rewriteFlags struct {
	reportPath string
	repoPath   string
	apply      bool
	minConf    float64
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Generate documentation rewrites for a previously produced report",
	Long: `Rewrite reads an impact report, generates an updated section for every
entity of every HIGH and MEDIUM priority doc, and prints the suggestions.
With --apply, accepted suggestions are merged into the doc files of the
local working copy; applying the same suggestion twice is a no-op.`,
	RunE: runRewrite,
}

func init() {
	f := rewriteCmd.Flags()
	f.StringVar(&rewriteFlags.reportPath, "report", "", "path to the JSON impact report")
	f.StringVar(&rewriteFlags.repoPath, "repo-path", ".", "local working copy the docs live in")
	f.BoolVar(&rewriteFlags.apply, "apply", false, "write accepted suggestions into the doc files")
	f.Float64Var(&rewriteFlags.minConf, "min-confidence", 0, "confidence floor (defaults to ai.min_confidence)")
	_ = rewriteCmd.MarkFlagRequired("report")
}

func runRewrite(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForCLI(); err != nil {
		return err
	}

	result, err := report.ReadJSON(rewriteFlags.reportPath)
	if err != nil {
		return err
	}

	minConfidence := rewriteFlags.minConf
	if minConfidence == 0 {
		minConfidence = cfg.AI.MinConfidence
	}

	provider, err := rewriter.NewProvider(cfg.AI, slog.Default())
	if err != nil {
		return err
	}
	generator, err := rewriter.NewGenerator(provider, slog.Default())
	if err != nil {
		return err
	}

	local := snapshot.NewLocalSource(rewriteFlags.repoPath, slog.Default())
	writer := rewriter.NewWriter(rewriteFlags.repoPath)

	written, skipped := 0, 0
	for _, doc := range result.ImpactedDocs {
		if doc.Priority == core.PriorityLow {
			continue
		}
		for _, entity := range doc.ChangedEntities {
			cf, ok := changedFileFor(result, entity)
			if !ok {
				skipped++
				continue
			}

			oldContent, _ := local.Show(cmd.Context(), result.OldSHA, cf.Path)
			newContent, _ := local.Show(cmd.Context(), result.NewSHA, cf.Path)
			currentDoc, _ := os.ReadFile(rewriteFlags.repoPath + "/" + doc.DocPath)

			suggestion := generator.Generate(cmd.Context(), rewriter.Request{
				Entity:     entity,
				File:       cf.Path,
				Language:   cf.Language,
				OldCode:    rewriter.ExtractEntityCode(string(oldContent), entity, cf.Language),
				NewCode:    rewriter.ExtractEntityCode(string(newContent), entity, cf.Language),
				CurrentDoc: string(currentDoc),
				DocPath:    doc.DocPath,
				ChangeType: cf.ChangeType,
				Distance:   cf.NormalizedDistance,
				Mentions:   doc.MentionCounts[entity],
				Community:  doc.CommunitySize,
			})
			suggestion = rewriter.Resolve(suggestion, minConfidence)

			printSuggestion(suggestion)
			switch suggestion.State {
			case core.SuggestionAccepted:
				if rewriteFlags.apply {
					if suggestion, err = writer.Write(suggestion); err != nil {
						color.Red("  write failed: %v", err)
						skipped++
						continue
					}
					written++
				}
			default:
				skipped++
			}
		}
	}

	fmt.Printf("\n%d sections written, %d suggestions skipped\n", written, skipped)
	return nil
}

func changedFileFor(result *core.AnalysisResult, entity string) (core.ChangedFile, bool) {
	for _, cf := range result.ChangedFiles {
		if cf.Entities[entity] {
			return cf, true
		}
	}
	return core.ChangedFile{}, false
}

func printSuggestion(s core.DocSuggestion) {
	header := fmt.Sprintf("%s -> %s [%s, confidence %.2f, $%.4f]",
		s.Entity, s.DocPath, s.State, s.Confidence, s.CostEstimate)
	switch s.State {
	case core.SuggestionAccepted, core.SuggestionWritten:
		color.Green(header)
	case core.SuggestionRejectedLow, core.SuggestionFallbackStub:
		color.Yellow(header)
	default:
		fmt.Println(header)
	}
	if s.Explanation != "" {
		fmt.Println("  " + strings.ReplaceAll(s.Explanation, "\n", "\n  "))
	}
}
