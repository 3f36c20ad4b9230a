package rewriter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/sevigo/doc-sentry/internal/core"
)

// Confidence constants of the envelope contract.
const (
	// parseFailureConfidence is assigned when the response is not the
	// expected JSON and the whole text is taken as the updated doc.
	parseFailureConfidence = 0.5
	// fallbackConfidence is assigned to the deterministic stub.
	fallbackConfidence = 0.1
	// DefaultMinConfidence is the floor below which callers drop suggestions.
	DefaultMinConfidence = 0.3
)

// maxCodeSlice bounds the code excerpts embedded in prompts.
const maxCodeSlice = 1000

// envelopeSchema is the strict contract for LLM responses.
const envelopeSchema = `{
	"type": "object",
	"required": ["updated_doc", "explanation", "confidence"],
	"properties": {
		"updated_doc": {"type": "string"},
		"explanation": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

// Request carries everything the generator needs for one suggestion.
type Request struct {
	Entity     string
	File       string
	Language   string
	OldCode    string
	NewCode    string
	CurrentDoc string
	DocPath    string
	ChangeType core.ChangeType
	Distance   float64
	Mentions   int
	Community  int
}

// Generator turns rewrite requests into DocSuggestions.
type Generator struct {
	provider Provider
	prompts  *PromptManager
	schema   *gojsonschema.Schema
	logger   *slog.Logger
}

// NewGenerator wires a generator to a provider.
func NewGenerator(provider Provider, logger *slog.Logger) (*Generator, error) {
	prompts, err := NewPromptManager()
	if err != nil {
		return nil, err
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile envelope schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{provider: provider, prompts: prompts, schema: schema, logger: logger}, nil
}

// Generate produces a suggestion for one request. Provider failures never
// propagate: the deterministic fallback stub is returned instead, flagged
// with its own state and confidence.
func (g *Generator) Generate(ctx context.Context, req Request) core.DocSuggestion {
	suggestion := core.DocSuggestion{
		Entity:     req.Entity,
		SourceFile: req.File,
		DocPath:    req.DocPath,
		Provider:   string(g.provider.Kind()),
		Model:      g.provider.Model(),
		State:      core.SuggestionPending,
	}

	prompt, err := g.buildPrompt(req)
	if err != nil {
		g.logger.Error("failed to build prompt", "entity", req.Entity, "error", err)
		return g.fallback(req, suggestion)
	}

	text, tokens, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("llm completion failed, using fallback stub",
			"entity", req.Entity, "provider", g.provider.Kind(), "error", err)
		return g.fallback(req, suggestion)
	}

	updatedDoc, explanation, confidence := g.parseResponse(text, req.CurrentDoc)

	suggestion.UpdatedDoc = updatedDoc
	suggestion.Explanation = explanation
	suggestion.Confidence = confidence
	suggestion.TokensUsed = tokens
	suggestion.CostEstimate = EstimateCost(g.provider.Model(), tokens)
	suggestion.Diff = UnifiedDiff(req.CurrentDoc, updatedDoc)
	suggestion.State = core.SuggestionGenerated
	return suggestion
}

// Resolve applies the confidence floor, moving a generated suggestion to
// ACCEPTED or REJECTED_LOW_CONFIDENCE.
func Resolve(s core.DocSuggestion, minConfidence float64) core.DocSuggestion {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if s.State != core.SuggestionGenerated {
		return s
	}
	if s.Confidence < minConfidence {
		s.State = core.SuggestionRejectedLow
	} else {
		s.State = core.SuggestionAccepted
	}
	return s
}

func (g *Generator) buildPrompt(req Request) (string, error) {
	data := map[string]any{
		"Entity":     req.Entity,
		"File":       orUnknown(req.File),
		"Language":   orDefault(req.Language, "python"),
		"ChangeType": strings.ToUpper(string(req.ChangeType)),
		"Distance":   req.Distance,
		"Mentions":   req.Mentions,
		"OldCode":    clip(req.OldCode, maxCodeSlice),
		"NewCode":    clip(req.NewCode, maxCodeSlice),
		"DocSection": clip(relevantSection(req.CurrentDoc, req.Entity), maxCodeSlice),
		"KeyChanges": DetectKeyChanges(req.OldCode, req.NewCode, req.Language),
	}
	return g.prompts.Render(DocUpdatePrompt, ProviderName(g.provider.Kind()), data)
}

// parseResponse enforces the JSON envelope. A response that is not valid
// JSON, or valid JSON that fails the schema, is treated as plain text: the
// whole response becomes the updated doc at the parse-failure confidence.
func (g *Generator) parseResponse(text, currentDoc string) (updatedDoc, explanation string, confidence float64) {
	payload := extractJSON(text)

	check, err := g.schema.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil || !check.Valid() {
		return text, "LLM response was not in the expected JSON format", parseFailureConfidence
	}

	var envelope struct {
		UpdatedDoc  string  `json:"updated_doc"`
		Explanation string  `json:"explanation"`
		Confidence  float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return text, "LLM response was not in the expected JSON format", parseFailureConfidence
	}

	if envelope.UpdatedDoc == "" {
		envelope.UpdatedDoc = currentDoc
	}
	if envelope.Explanation == "" {
		envelope.Explanation = "No explanation provided"
	}
	return envelope.UpdatedDoc, envelope.Explanation, envelope.Confidence
}

// extractJSON tolerates models that wrap the envelope in code fences or
// prose by slicing from the first '{' to the last '}'.
func extractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}

// relevantSection returns the paragraphs of the doc mentioning the entity,
// or the first three paragraphs when nothing matches.
func relevantSection(doc, entity string) string {
	paragraphs := strings.Split(doc, "\n\n")
	needle := strings.ToLower(entity)

	var relevant []string
	for _, p := range paragraphs {
		if strings.Contains(strings.ToLower(p), needle) {
			relevant = append(relevant, p)
		}
	}
	if len(relevant) > 0 {
		return strings.Join(relevant, "\n\n")
	}
	if len(paragraphs) > 3 {
		paragraphs = paragraphs[:3]
	}
	return strings.Join(paragraphs, "\n\n")
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func orUnknown(s string) string { return orDefault(s, "unknown") }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
