package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/doc-sentry/internal/core"
)

func sampleResult() *core.AnalysisResult {
	return &core.AnalysisResult{
		CodeSlug: "acme/auth",
		DocsSlug: "acme/auth",
		OldRef:   "main",
		NewRef:   "feature",
		OldSHA:   "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		NewSHA:   "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Summary: core.SummaryStats{
			FilesAnalyzed:  2,
			NeedsDocUpdate: 1,
			ByChangeType:   map[core.ChangeType]int{core.ChangeMajor: 1, core.ChangeRefactor: 1},
		},
		ChangedFiles: []core.ChangedFile{
			{Path: "auth.py", Language: "python", ChangeType: core.ChangeMajor, NormalizedDistance: 0.42, NeedsDocUpdate: true},
			{Path: "util.py", Language: "python", ChangeType: core.ChangeRefactor, NormalizedDistance: 0.08},
		},
		ImpactedDocs: []core.ImpactedDoc{
			{
				DocPath:         "docs/auth.md",
				Priority:        core.PriorityHigh,
				Score:           10.5,
				Reasons:         []string{"validate_password: MAJOR change (distance: 0.42)"},
				ChangedEntities: []string{"validate_password"},
				MentionCounts:   map[string]int{"validate_password": 3},
				CommunitySize:   3,
			},
		},
		Warnings: []core.Warning{{Layer: "similarity", Message: "skipped"}},
	}
}

func TestWriteAndReadJSON(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult()

	path, err := WriteJSON(dir, result)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".json"))
	assert.Contains(t, filepath.Base(path), "acme-auth")

	loaded, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, result.CodeSlug, loaded.CodeSlug)
	assert.Equal(t, result.ImpactedDocs, loaded.ImpactedDocs)
	assert.Equal(t, result.Summary, loaded.Summary)
}

func TestReadJSONErrors(t *testing.T) {
	_, err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sampleResult())

	out := buf.String()
	assert.Contains(t, out, "main -> feature")
	assert.Contains(t, out, "auth.py")
	assert.Contains(t, out, "docs/auth.md")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "validate_password")
	assert.Contains(t, out, "warning [similarity]: skipped")
}

func TestRenderNoImpacts(t *testing.T) {
	var buf bytes.Buffer
	result := sampleResult()
	result.ImpactedDocs = nil
	result.ChangedFiles = nil
	result.Warnings = nil

	Render(&buf, result)
	assert.Contains(t, buf.String(), "No impacted documentation found.")
}
