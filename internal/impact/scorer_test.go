package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/doc-sentry/internal/core"
)

func resultWith(changed []core.ChangedFile, refs core.CrossRefs) *core.AnalysisResult {
	return &core.AnalysisResult{ChangedFiles: changed, CrossRefs: refs}
}

func TestScoreMajorChangeProducesHighPriority(t *testing.T) {
	changed := []core.ChangedFile{{
		Path:               "auth.py",
		ChangeType:         core.ChangeMajor,
		NormalizedDistance: 0.45,
		Entities:           map[string]bool{"validate_password": true},
		NeedsDocUpdate:     true,
	}}
	refs := core.CrossRefs{
		AllEntities:  []string{"login", "validate_password"},
		EntityToDocs: map[string][]string{"validate_password": {"docs/auth.md"}},
		ReferencesByDoc: core.MentionIndex{
			"docs/auth.md": {
				"validate_password": {{Pattern: "validate_password"}, {Pattern: "validate_password"}, {Pattern: "validate_password"}},
			},
		},
	}

	docs := Score(resultWith(changed, refs))
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "docs/auth.md", doc.DocPath)
	assert.Equal(t, core.PriorityHigh, doc.Priority)
	// avg severity 3 (major), 3 mentions: 2*3 + 1.5*3 = 10.5
	assert.InDelta(t, 10.5, doc.Score, 1e-9)
	assert.Contains(t, doc.Reasons[0], "validate_password: MAJOR change (distance: 0.45)")
	assert.Equal(t, []string{"validate_password"}, doc.ChangedEntities)
}

func TestScoreSkipsRefactors(t *testing.T) {
	changed := []core.ChangedFile{{
		Path:           "auth.py",
		ChangeType:     core.ChangeRefactor,
		Entities:       map[string]bool{"login": true},
		NeedsDocUpdate: false,
	}}
	refs := core.CrossRefs{
		AllEntities:  []string{"login"},
		EntityToDocs: map[string][]string{"login": {"docs/auth.md"}},
	}

	assert.Empty(t, Score(resultWith(changed, refs)))
}

func TestScoreStemAttribution(t *testing.T) {
	// No direct entity association: the entity is picked up because the file
	// stem "auth" is a substring of "AuthService".
	changed := []core.ChangedFile{{
		Path:           "src/auth.ts",
		ChangeType:     core.ChangeMinor,
		Entities:       map[string]bool{},
		NeedsDocUpdate: true,
	}}
	refs := core.CrossRefs{
		AllEntities:  []string{"AuthService"},
		EntityToDocs: map[string][]string{"AuthService": {"docs/services.md"}},
		ReferencesByDoc: core.MentionIndex{
			"docs/services.md": {"AuthService": {{Pattern: "authservice"}}},
		},
	}

	docs := Score(resultWith(changed, refs))
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"AuthService"}, docs[0].ChangedEntities)
}

func TestScoreShortStemIgnored(t *testing.T) {
	// Two-character stems would match almost everything; they are skipped.
	changed := []core.ChangedFile{{
		Path:           "db.py",
		ChangeType:     core.ChangeMajor,
		Entities:       map[string]bool{},
		NeedsDocUpdate: true,
	}}
	refs := core.CrossRefs{
		AllEntities:  []string{"update_db_schema"},
		EntityToDocs: map[string][]string{"update_db_schema": {"docs/db.md"}},
	}

	assert.Empty(t, Score(resultWith(changed, refs)))
}

func TestScoreCommunityContribution(t *testing.T) {
	changed := []core.ChangedFile{{
		Path:           "svc.py",
		ChangeType:     core.ChangeMinor,
		Entities:       map[string]bool{"compute": true},
		NeedsDocUpdate: true,
	}}
	refs := core.CrossRefs{
		AllEntities:  []string{"compute"},
		EntityToDocs: map[string][]string{"compute": {"docs/svc.md"}},
		ReferencesByDoc: core.MentionIndex{
			"docs/svc.md": {"compute": {{Pattern: "compute"}}},
		},
	}
	result := resultWith(changed, refs)
	result.Communities = []core.Community{
		{"svc.py::compute", "svc.py::helper", "other.py::main", "other.py::__file__"},
	}

	docs := Score(result)
	require.Len(t, docs, 1)
	assert.Equal(t, 4, docs[0].CommunitySize)
	// 2*1 + 1.5*1 + 0.5*4 = 5.5 -> HIGH
	assert.InDelta(t, 5.5, docs[0].Score, 1e-9)
	assert.Equal(t, core.PriorityHigh, docs[0].Priority)
}

func TestScoreOrderingAndTieBreak(t *testing.T) {
	changed := []core.ChangedFile{
		{
			Path:           "a.py",
			ChangeType:     core.ChangeRewrite,
			Entities:       map[string]bool{"alpha_handler": true},
			NeedsDocUpdate: true,
		},
		{
			Path:           "b.py",
			ChangeType:     core.ChangeMinor,
			Entities:       map[string]bool{"beta_handler": true},
			NeedsDocUpdate: true,
		},
	}
	refs := core.CrossRefs{
		AllEntities: []string{"alpha_handler", "beta_handler"},
		EntityToDocs: map[string][]string{
			"alpha_handler": {"docs/big.md"},
			"beta_handler":  {"docs/aaa.md", "docs/bbb.md"},
		},
		ReferencesByDoc: core.MentionIndex{
			"docs/big.md": {"alpha_handler": {{}, {}}},
			"docs/aaa.md": {"beta_handler": {{}}},
			"docs/bbb.md": {"beta_handler": {{}}},
		},
	}

	docs := Score(resultWith(changed, refs))
	require.Len(t, docs, 3)

	// Rewrite with two mentions first: 2*5 + 1.5*2 = 13.
	assert.Equal(t, "docs/big.md", docs[0].DocPath)
	// The two identical-score minor docs tie-break by path ascending.
	assert.Equal(t, "docs/aaa.md", docs[1].DocPath)
	assert.Equal(t, "docs/bbb.md", docs[2].DocPath)
	assert.Equal(t, docs[1].Score, docs[2].Score)
}

func TestScoreMonotonicity(t *testing.T) {
	base := func(ct core.ChangeType, mentions int) float64 {
		matches := make([]core.Match, mentions)
		changed := []core.ChangedFile{{
			Path:           "x_handler.py",
			ChangeType:     ct,
			Entities:       map[string]bool{"x_handler": true},
			NeedsDocUpdate: true,
		}}
		refs := core.CrossRefs{
			AllEntities:  []string{"x_handler"},
			EntityToDocs: map[string][]string{"x_handler": {"docs/x.md"}},
			ReferencesByDoc: core.MentionIndex{
				"docs/x.md": {"x_handler": matches},
			},
		}
		docs := Score(resultWith(changed, refs))
		if len(docs) == 0 {
			return 0
		}
		return docs[0].Score
	}

	assert.LessOrEqual(t, base(core.ChangeMinor, 1), base(core.ChangeMajor, 1))
	assert.LessOrEqual(t, base(core.ChangeMajor, 1), base(core.ChangeRewrite, 1))
	assert.LessOrEqual(t, base(core.ChangeMajor, 1), base(core.ChangeMajor, 4))
}
