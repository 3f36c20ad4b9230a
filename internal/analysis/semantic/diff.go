package semantic

import (
	"path"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/sevigo/doc-sentry/internal/core"
)

// Thresholds buckets normalized distances into change types.
type Thresholds struct {
	Refactor float64 // upper bound for "refactor"
	Minor    float64 // upper bound for "minor"
	Major    float64 // upper bound for "major"
}

// DefaultThresholds returns the calibrated classification bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{Refactor: 0.1, Minor: 0.3, Major: 0.6}
}

// Result is the outcome of comparing two versions of one file.
type Result struct {
	ChangeType         core.ChangeType
	Distance           float64
	NormalizedDistance float64
	Size1, Size2       int
	Depth1, Depth2     int
	ParseError         bool
}

// Differ computes semantic diffs with fixed costs and thresholds.
type Differ struct {
	costs      Costs
	thresholds Thresholds
}

// NewDiffer returns a Differ with the given thresholds and unit edit costs.
func NewDiffer(thresholds Thresholds) *Differ {
	return &Differ{costs: DefaultCosts(), thresholds: thresholds}
}

// Analyze parses both versions and classifies the change by normalized tree
// edit distance: < 0.001 identical, <= refactor threshold refactor, then
// minor, major, and rewrite beyond the major bound.
func (d *Differ) Analyze(oldCode, newCode, language string) Result {
	tree1 := Parse(oldCode, language)
	tree2 := Parse(newCode, language)

	distance := Distance(tree1, tree2, d.costs)

	size1, depth1 := treeStats(tree1)
	size2, depth2 := treeStats(tree2)

	maxSize := size1
	if size2 > maxSize {
		maxSize = size2
	}
	normalized := 0.0
	if maxSize > 0 {
		normalized = distance / float64(maxSize)
	}

	return Result{
		ChangeType:         d.classify(normalized),
		Distance:           distance,
		NormalizedDistance: normalized,
		Size1:              size1,
		Size2:              size2,
		Depth1:             depth1,
		Depth2:             depth2,
	}
}

func (d *Differ) classify(normalized float64) core.ChangeType {
	switch {
	case normalized < 0.001:
		return core.ChangeIdentical
	case normalized <= d.thresholds.Refactor:
		return core.ChangeRefactor
	case normalized <= d.thresholds.Minor:
		return core.ChangeMinor
	case normalized <= d.thresholds.Major:
		return core.ChangeMajor
	default:
		return core.ChangeRewrite
	}
}

func treeStats(t *Tree) (size, depth int) {
	if t.Root() < 0 {
		return 0, 0
	}
	return t.Size(t.Root()), t.Depth(t.Root())
}

// analyzable languages, keyed by the identifiers the parsers accept.
var analyzableLanguages = map[string]bool{
	"python":     true,
	"javascript": true,
	"typescript": true,
}

// DetectLanguage identifies the analysis language of a file, or "" when the
// file is not a language the semantic layer understands. Extension mapping is
// tried first; ambiguous cases defer to content-based detection.
func DetectLanguage(filePath string, content []byte) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".py":
		return "python"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	}

	switch enry.GetLanguage(path.Base(filePath), content) {
	case "Python":
		return "python"
	case "JavaScript":
		return "javascript"
	case "TypeScript":
		return "typescript"
	}
	return ""
}

// Analyzable reports whether the semantic layer can parse the language.
func Analyzable(language string) bool { return analyzableLanguages[language] }
