// Package report renders analysis results for terminals and writes the JSON
// impact report artifact.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sevigo/doc-sentry/internal/core"
	"github.com/sevigo/doc-sentry/internal/util"
)

// WriteJSON persists the full analysis result under dir, named after the
// compared refs, and returns the file path.
func WriteJSON(dir string, result *core.AnalysisResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := util.SafeSlug(fmt.Sprintf("%s-%s-%s", result.CodeSlug, shortSHA(result.OldSHA), shortSHA(result.NewSHA))) + ".json"
	target := filepath.Join(dir, name)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return target, nil
}

// ReadJSON loads a previously written report.
func ReadJSON(path string) (*core.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var result core.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &result, nil
}

// Render prints the human-readable impact report.
func Render(w io.Writer, result *core.AnalysisResult) {
	title := color.New(color.Bold)
	title.Fprintf(w, "Documentation impact: %s -> %s\n", refLabel(result.OldRef, result.OldSHA), refLabel(result.NewRef, result.NewSHA))
	fmt.Fprintf(w, "%s files analyzed, %s need a doc review, %d communities, %d similar pairs (%.1fs)\n\n",
		humanize.Comma(int64(result.Summary.FilesAnalyzed)),
		humanize.Comma(int64(result.Summary.NeedsDocUpdate)),
		len(result.Communities),
		len(result.SimilarPairs),
		result.ElapsedSeconds)

	if len(result.ChangedFiles) > 0 {
		renderChanges(w, result.ChangedFiles)
	}
	if len(result.ImpactedDocs) > 0 {
		renderImpacts(w, result.ImpactedDocs)
	} else {
		fmt.Fprintln(w, "No impacted documentation found.")
	}

	for _, warning := range result.Warnings {
		color.New(color.FgYellow).Fprintf(w, "warning [%s]: %s\n", warning.Layer, warning.Message)
	}
	if result.Truncated {
		color.New(color.FgYellow).Fprintln(w, "warning: analysis truncated by the time budget")
	}
}

func renderChanges(w io.Writer, changes []core.ChangedFile) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"File", "Language", "Change", "Distance", "Doc update"})
	for _, cf := range changes {
		needs := ""
		if cf.NeedsDocUpdate {
			needs = "yes"
		}
		tbl.AppendRow(table.Row{cf.Path, cf.Language, string(cf.ChangeType), fmt.Sprintf("%.3f", cf.NormalizedDistance), needs})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d files", len(changes)), "", "", "", ""})
	tbl.Render()
	fmt.Fprintln(w)
}

func renderImpacts(w io.Writer, docs []core.ImpactedDoc) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Priority", "Document", "Score", "Mentions", "Community", "Entities"})
	for _, doc := range docs {
		mentions := 0
		for _, n := range doc.MentionCounts {
			mentions += n
		}
		tbl.AppendRow(table.Row{
			string(doc.Priority), doc.DocPath, fmt.Sprintf("%.1f", doc.Score),
			mentions, doc.CommunitySize, strings.Join(doc.ChangedEntities, ", "),
		})
	}
	tbl.Render()
	fmt.Fprintln(w)
}

func refLabel(ref, sha string) string {
	if ref != "" && len(ref) < 40 {
		return ref
	}
	return shortSHA(sha)
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	if sha == "" {
		return "unknown"
	}
	return sha
}
