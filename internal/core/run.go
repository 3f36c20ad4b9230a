package core

import "time"

// RunRecord represents a single analysis run stored in the database.
type RunRecord struct {
	ID            int64
	CodeSlug      string
	DocsSlug      string
	OldRef        string
	NewRef        string
	OldSHA        string
	NewSHA        string
	FilesAnalyzed int
	ImpactedDocs  int
	HighCount     int
	MediumCount   int
	LowCount      int
	Report        string // full AnalysisResult as JSON
	CreatedAt     time.Time
}
