// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import "time"

// ChangeType classifies the semantic severity of a file change, derived from
// the normalized tree edit distance between the two versions.
type ChangeType string

const (
	ChangeIdentical ChangeType = "identical"
	ChangeRefactor  ChangeType = "refactor"
	ChangeMinor     ChangeType = "minor"
	ChangeMajor     ChangeType = "major"
	ChangeRewrite   ChangeType = "rewrite"
)

// NeedsDocUpdate reports whether this classification requires a documentation
// review. Identical files and pure refactors do not.
func (c ChangeType) NeedsDocUpdate() bool {
	switch c {
	case ChangeMinor, ChangeMajor, ChangeRewrite:
		return true
	default:
		return false
	}
}

// SeverityWeight maps the change type onto the scoring weight used by the
// impact scorer.
func (c ChangeType) SeverityWeight() float64 {
	switch c {
	case ChangeMinor:
		return 1
	case ChangeMajor:
		return 3
	case ChangeRewrite:
		return 5
	default:
		return 0
	}
}

// ChangedFile describes a single file that differs between the two analyzed
// references.
type ChangedFile struct {
	Path               string          `json:"path"`
	Language           string          `json:"language,omitempty"`
	ChangeType         ChangeType      `json:"change_type"`
	Distance           float64         `json:"distance"`
	NormalizedDistance float64         `json:"normalized_distance"`
	SizeOld            int             `json:"size_old"`
	SizeNew            int             `json:"size_new"`
	Entities           map[string]bool `json:"entities,omitempty"`
	NeedsDocUpdate     bool            `json:"needs_doc_update"`
	ParseError         bool            `json:"parse_error,omitempty"`
}

// Match records a single occurrence of an entity name inside a document.
// Offsets are byte positions into the scanned text; LineNumber is 1-indexed.
type Match struct {
	Pattern    string `json:"pattern"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	LineNumber int    `json:"line_number"`
	Context    string `json:"context"`
}

// MentionIndex maps doc path -> entity name -> matches found in that doc.
type MentionIndex map[string]map[string][]Match

// CrossRefs holds both directions of the code/documentation join produced by
// the pattern-matching layer.
type CrossRefs struct {
	// EntityToDocs maps an entity name to the sorted list of docs mentioning it.
	EntityToDocs map[string][]string `json:"entity_to_docs"`
	// ReferencesByDoc maps doc path to per-entity match lists.
	ReferencesByDoc MentionIndex `json:"references_by_doc"`
	// EntityToFiles maps an entity name to the code files defining it.
	EntityToFiles map[string][]string `json:"entity_to_files"`
	// AllEntities is the sorted union of every extracted entity name.
	AllEntities []string `json:"all_entities"`
}

// Community is a nonempty group of call-graph node identifiers.
type Community []string

// SimilarPair is an unordered pair of file identifiers (the smaller first)
// with its verified signature similarity.
type SimilarPair struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	Similarity float64 `json:"similarity"`
}

// Priority discretizes an impact score into review urgency buckets.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ImpactedDoc names a documentation file that should be reviewed because the
// entities it mentions changed.
type ImpactedDoc struct {
	DocPath         string         `json:"doc_path"`
	Priority        Priority       `json:"priority"`
	Score           float64        `json:"score"`
	Reasons         []string       `json:"reasons"`
	ChangedEntities []string       `json:"changed_entities"`
	MentionCounts   map[string]int `json:"mention_counts"`
	CommunitySize   int            `json:"community_size"`
}

// Warning records a tolerated failure in an optional pipeline layer.
type Warning struct {
	Layer   string `json:"layer"`
	Message string `json:"message"`
}

// SummaryStats aggregates per-change-type counts for one run.
type SummaryStats struct {
	FilesAnalyzed  int                `json:"files_analyzed"`
	FilesAdded     []string           `json:"files_added"`
	FilesDeleted   []string           `json:"files_deleted"`
	ByChangeType   map[ChangeType]int `json:"by_change_type"`
	NeedsDocUpdate int                `json:"needs_doc_update"`
}

// AnalysisResult is the aggregation of all five layers for one
// (old_ref, new_ref) pair.
type AnalysisResult struct {
	CodeSlug string `json:"code_slug"`
	DocsSlug string `json:"docs_slug"`
	OldRef   string `json:"old_ref"`
	NewRef   string `json:"new_ref"`
	OldSHA   string `json:"old_sha"`
	NewSHA   string `json:"new_sha"`

	Summary      SummaryStats  `json:"summary"`
	ChangedFiles []ChangedFile `json:"changed_files"`
	Communities  []Community   `json:"communities"`
	// CommunityOf maps a call-graph node id to its index in Communities.
	CommunityOf  map[string]int `json:"community_of,omitempty"`
	CrossRefs    CrossRefs      `json:"cross_refs"`
	SimilarPairs []SimilarPair  `json:"similar_pairs"`

	ImpactedDocs []ImpactedDoc `json:"impacted_docs"`

	Truncated bool      `json:"truncated,omitempty"`
	Warnings  []Warning `json:"warnings,omitempty"`

	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// AddWarning appends a tolerated-failure record for a layer.
func (r *AnalysisResult) AddWarning(layer, message string) {
	r.Warnings = append(r.Warnings, Warning{Layer: layer, Message: message})
}
