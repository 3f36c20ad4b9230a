package rewriter

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/doc-sentry/internal/core"
)

// scriptedProvider returns canned responses for generator tests.
type scriptedProvider struct {
	response string
	tokens   int
	err      error
}

func (p *scriptedProvider) Kind() ProviderKind { return ProviderLocal }
func (p *scriptedProvider) Model() string      { return "local" }
func (p *scriptedProvider) Complete(context.Context, string) (string, int, error) {
	return p.response, p.tokens, p.err
}

func newTestGenerator(t *testing.T, p Provider) *Generator {
	t.Helper()
	g, err := NewGenerator(p, slog.Default())
	require.NoError(t, err)
	return g
}

func sampleRequest() Request {
	return Request{
		Entity:     "validate_password",
		File:       "auth.py",
		Language:   "python",
		OldCode:    "def validate_password(p):\n    return len(p) >= 8\n",
		NewCode:    "def validate_password(p):\n    \"\"\"Check password strength.\"\"\"\n    if not p:\n        return False\n    return len(p) >= 10\n",
		CurrentDoc: "# Auth\n\nThe validate_password function checks length.\n",
		DocPath:    "docs/auth.md",
		ChangeType: core.ChangeMajor,
		Distance:   0.45,
		Mentions:   2,
	}
}

func TestGenerateParsesEnvelope(t *testing.T) {
	p := &scriptedProvider{
		response: `{"updated_doc": "Passwords must now be 10+ characters.", "explanation": "Minimum length changed from 8 to 10.", "confidence": 0.9}`,
		tokens:   400,
	}
	g := newTestGenerator(t, p)

	s := g.Generate(context.Background(), sampleRequest())

	assert.Equal(t, core.SuggestionGenerated, s.State)
	assert.Equal(t, "Passwords must now be 10+ characters.", s.UpdatedDoc)
	assert.Equal(t, "Minimum length changed from 8 to 10.", s.Explanation)
	assert.InDelta(t, 0.9, s.Confidence, 1e-9)
	assert.Equal(t, 400, s.TokensUsed)
	assert.Contains(t, s.Diff, "```diff")
	assert.Contains(t, s.Diff, "+Passwords must now be 10+ characters.")
}

func TestGenerateEnvelopeInCodeFence(t *testing.T) {
	p := &scriptedProvider{
		response: "```json\n{\"updated_doc\": \"New text.\", \"explanation\": \"e\", \"confidence\": 0.8}\n```",
	}
	g := newTestGenerator(t, p)

	s := g.Generate(context.Background(), sampleRequest())
	assert.Equal(t, "New text.", s.UpdatedDoc)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)
}

func TestGenerateParseFailure(t *testing.T) {
	p := &scriptedProvider{response: "Sorry, here is prose instead of JSON."}
	g := newTestGenerator(t, p)

	s := g.Generate(context.Background(), sampleRequest())

	assert.Equal(t, core.SuggestionGenerated, s.State)
	assert.Equal(t, "Sorry, here is prose instead of JSON.", s.UpdatedDoc)
	assert.InDelta(t, parseFailureConfidence, s.Confidence, 1e-9)
}

func TestGenerateSchemaViolation(t *testing.T) {
	// Valid JSON, wrong shape: treated like a parse failure.
	p := &scriptedProvider{response: `{"doc": "missing required fields"}`}
	g := newTestGenerator(t, p)

	s := g.Generate(context.Background(), sampleRequest())
	assert.InDelta(t, parseFailureConfidence, s.Confidence, 1e-9)
}

func TestGenerateFallbackStub(t *testing.T) {
	p := &scriptedProvider{err: errors.New("connection refused")}
	g := newTestGenerator(t, p)

	s := g.Generate(context.Background(), sampleRequest())

	assert.Equal(t, core.SuggestionFallbackStub, s.State)
	assert.InDelta(t, fallbackConfidence, s.Confidence, 1e-9)
	assert.Contains(t, s.UpdatedDoc, "validate_password(p)")
	assert.Contains(t, s.UpdatedDoc, "Check password strength.")
	assert.Contains(t, s.UpdatedDoc, "MAJOR")
	assert.Contains(t, s.UpdatedDoc, "review and update it manually")
}

func TestResolveConfidenceFloor(t *testing.T) {
	gen := core.DocSuggestion{State: core.SuggestionGenerated, Confidence: 0.25}
	assert.Equal(t, core.SuggestionRejectedLow, Resolve(gen, DefaultMinConfidence).State)

	gen.Confidence = 0.31
	assert.Equal(t, core.SuggestionAccepted, Resolve(gen, DefaultMinConfidence).State)

	stub := core.DocSuggestion{State: core.SuggestionFallbackStub, Confidence: 0.1}
	assert.Equal(t, core.SuggestionFallbackStub, Resolve(stub, DefaultMinConfidence).State)
}

func TestEstimateCost(t *testing.T) {
	assert.Zero(t, EstimateCost("local", 10000))
	assert.Positive(t, EstimateCost("gpt-4-turbo", 1000))
	// Unknown models price like the fallback row.
	assert.Equal(t, EstimateCost("gpt-4-turbo", 1000), EstimateCost("mystery-model", 1000))
	// Cost is linear in tokens.
	assert.InDelta(t, 2*EstimateCost("claude-3-sonnet", 500), EstimateCost("claude-3-sonnet", 1000), 1e-9)
}

func TestDetectKeyChanges(t *testing.T) {
	req := sampleRequest()
	changes := DetectKeyChanges(req.OldCode, req.NewCode, "python")

	assert.Contains(t, changes, "Added 1 conditional branches")
	joined := ""
	for _, c := range changes {
		joined += c + "\n"
	}
	assert.Contains(t, joined, "Return behavior modified")
}

func TestUnifiedDiff(t *testing.T) {
	diff := UnifiedDiff("line one\nline two\n", "line one\nline 2\n")

	assert.Contains(t, diff, "--- current")
	assert.Contains(t, diff, "+++ updated")
	assert.Contains(t, diff, "-line two")
	assert.Contains(t, diff, "+line 2")
	assert.Contains(t, diff, " line one")
}

func TestApplySectionInsertAndReplace(t *testing.T) {
	doc := "# Auth Guide\n\n## API Reference\n\n### login\n\n*Source: `auth.py`*\n\nOld text about login.\n"

	updated := ApplySection(doc, "validate_password", "auth.py", "Checks password strength.")

	assert.Contains(t, updated, "### validate_password")
	assert.Contains(t, updated, "*Source: `auth.py`*")
	// New section inserted after the API Reference heading, before login.
	assert.Less(t,
		indexOf(updated, "### validate_password"),
		indexOf(updated, "### login"))

	// Replacing the login section keeps everything else.
	replaced := ApplySection(updated, "login", "auth.py", "New text about login.")
	assert.Contains(t, replaced, "New text about login.")
	assert.NotContains(t, replaced, "Old text about login.")
	assert.Contains(t, replaced, "Checks password strength.")
}

func TestApplySectionIdempotent(t *testing.T) {
	doc := "# Guide\n\n## API Reference\n"

	once := ApplySection(doc, "login", "auth.py", "Authenticates users.")
	twice := ApplySection(once, "login", "auth.py", "Authenticates users.")
	assert.Equal(t, once, twice)

	// Content containing shallow headings is demoted, and stays stable too.
	first := ApplySection(doc, "logout", "auth.py", "## Behavior\n\nEnds the session.")
	second := ApplySection(first, "logout", "auth.py", "## Behavior\n\nEnds the session.")
	assert.Equal(t, first, second)
	assert.Contains(t, first, "#### Behavior")
}

func TestApplySectionAppendsWithoutAPIReference(t *testing.T) {
	doc := "# Notes\n\nSome prose.\n"
	updated := ApplySection(doc, "helper", "util.py", "Does helping.")

	assert.Contains(t, updated, "Some prose.")
	assert.Contains(t, updated, "### helper")
	assert.Less(t, indexOf(updated, "Some prose."), indexOf(updated, "### helper"))
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	s := core.DocSuggestion{
		Entity:     "login",
		SourceFile: "auth.py",
		DocPath:    "docs/auth.md",
		UpdatedDoc: "Authenticates users against the session store.",
		Confidence: 0.9,
		State:      core.SuggestionAccepted,
	}

	written, err := w.Write(s)
	require.NoError(t, err)
	assert.Equal(t, core.SuggestionWritten, written.State)

	data, err := os.ReadFile(filepath.Join(dir, "docs", "auth.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "### login")
	assert.Contains(t, string(data), "## API Reference")

	// A second write of the same suggestion leaves the file byte-identical.
	_, err = w.Write(s)
	require.NoError(t, err)
	again, err := os.ReadFile(filepath.Join(dir, "docs", "auth.md"))
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestWriterRejectsWrongState(t *testing.T) {
	w := NewWriter(t.TempDir())
	_, err := w.Write(core.DocSuggestion{Entity: "x", DocPath: "d.md", State: core.SuggestionPending})

	var rewriteErr *core.RewriteError
	assert.ErrorAs(t, err, &rewriteErr)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
