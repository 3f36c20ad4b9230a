package github

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/doc-sentry/internal/core"
)

func TestFormatImpactComment(t *testing.T) {
	result := &core.AnalysisResult{
		OldRef: "main",
		NewRef: "feature/auth",
		OldSHA: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		NewSHA: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Summary: core.SummaryStats{
			FilesAnalyzed:  3,
			NeedsDocUpdate: 2,
		},
		ImpactedDocs: []core.ImpactedDoc{
			{
				DocPath:         "docs/auth.md",
				Priority:        core.PriorityHigh,
				Score:           10.5,
				Reasons:         []string{"validate_password: MAJOR change (distance: 0.45)"},
				ChangedEntities: []string{"validate_password"},
			},
			{
				DocPath:         "docs/api.md",
				Priority:        core.PriorityLow,
				Score:           1.5,
				Reasons:         []string{"login: MINOR change (distance: 0.12)"},
				ChangedEntities: []string{"login"},
			},
		},
	}

	body := FormatImpactComment(42, result)

	assert.True(t, strings.HasPrefix(body, "<!-- DOC-SENTRY-BOT:PR:42 -->"))
	assert.Contains(t, body, "`main` → `feature/auth`")
	assert.Contains(t, body, "**3** files changed")
	assert.Contains(t, body, "| 🔴 HIGH | `docs/auth.md` | 10.5 | validate_password |")
	assert.Contains(t, body, "| 🟢 LOW | `docs/api.md` |")
	assert.Contains(t, body, "validate_password: MAJOR change (distance: 0.45)")
	assert.Contains(t, body, core.UpdateDocsCommand)
}

func TestFormatImpactCommentEmpty(t *testing.T) {
	result := &core.AnalysisResult{
		OldSHA: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		NewSHA: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}

	body := FormatImpactComment(7, result)
	assert.Contains(t, body, "No impacted documentation found")
	assert.Contains(t, body, "`aaaaaaaa` → `bbbbbbbb`")
	assert.NotContains(t, body, "| Priority |")
}
