// Package impact joins semantic severity with cross-reference mentions and
// community size to rank the documentation files a change affects.
package impact

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sevigo/doc-sentry/internal/core"
)

// minStemLength guards the bidirectional stem match: stems shorter than this
// produce too many accidental substring hits to be useful.
const minStemLength = 3

// Scoring weights and priority bounds.
const (
	severityWeight  = 2.0
	mentionWeight   = 1.5
	communityWeight = 0.5

	highBound   = 5.0
	mediumBound = 2.0
)

type docAccumulator struct {
	entities      map[string]bool
	severitySum   float64
	mentionCounts map[string]int
	reasons       []string
}

// Score produces the priority-ranked ImpactedDoc list for an analysis
// result. For every changed file that needs a doc update, its entities are
// attributed, each doc mentioning one of them accumulates severity and
// mention counts, and the final score is
//
//	2*avg_severity + 1.5*total_mentions + 0.5*community_size
//
// bucketed HIGH (> 5), MEDIUM (>= 2) or LOW, sorted by score descending with
// doc path as the tie-break.
func Score(result *core.AnalysisResult) []core.ImpactedDoc {
	impacts := make(map[string]*docAccumulator)

	for _, cf := range result.ChangedFiles {
		if !cf.NeedsDocUpdate {
			continue
		}
		severity := cf.ChangeType.SeverityWeight()

		for _, entity := range attributeEntities(cf, result.CrossRefs.AllEntities) {
			docs, mentioned := result.CrossRefs.EntityToDocs[entity]
			if !mentioned {
				continue
			}
			for _, docPath := range docs {
				acc := impacts[docPath]
				if acc == nil {
					acc = &docAccumulator{
						entities:      make(map[string]bool),
						mentionCounts: make(map[string]int),
					}
					impacts[docPath] = acc
				}
				acc.entities[entity] = true
				acc.severitySum += severity
				acc.mentionCounts[entity] = len(result.CrossRefs.ReferencesByDoc[docPath][entity])
				acc.reasons = append(acc.reasons, fmt.Sprintf("%s: %s change (distance: %.2f)",
					entity, strings.ToUpper(string(cf.ChangeType)), cf.NormalizedDistance))
			}
		}
	}

	docs := make([]core.ImpactedDoc, 0, len(impacts))
	for docPath, acc := range impacts {
		entityList := make([]string, 0, len(acc.entities))
		for e := range acc.entities {
			entityList = append(entityList, e)
		}
		sort.Strings(entityList)

		avgSeverity := acc.severitySum / float64(max(len(entityList), 1))
		totalMentions := 0
		for _, n := range acc.mentionCounts {
			totalMentions += n
		}
		communitySize := maxCommunitySize(result, entityList)

		score := severityWeight*avgSeverity + mentionWeight*float64(totalMentions) + communityWeight*float64(communitySize)

		sort.Strings(acc.reasons)
		docs = append(docs, core.ImpactedDoc{
			DocPath:         docPath,
			Priority:        priorityFor(score),
			Score:           score,
			Reasons:         acc.reasons,
			ChangedEntities: entityList,
			MentionCounts:   acc.mentionCounts,
			CommunitySize:   communitySize,
		})
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocPath < docs[j].DocPath
	})
	return docs
}

// attributeEntities collects the entities belonging to a changed file:
// those the cross-reference layer already associated with it, plus any known
// entity whose name contains or is contained in the file stem
// (case-insensitive, both directions).
func attributeEntities(cf core.ChangedFile, allEntities []string) []string {
	found := make(map[string]bool, len(cf.Entities))
	for e := range cf.Entities {
		found[e] = true
	}

	stem := strings.ToLower(fileStem(cf.Path))
	if len(stem) >= minStemLength {
		for _, entity := range allEntities {
			lower := strings.ToLower(entity)
			if strings.Contains(lower, stem) || strings.Contains(stem, lower) {
				found[entity] = true
			}
		}
	}

	out := make([]string, 0, len(found))
	for e := range found {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func fileStem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// maxCommunitySize returns the largest community any of the entities' call
// graph nodes belongs to. Entities map onto graph nodes by name suffix.
func maxCommunitySize(result *core.AnalysisResult, entityList []string) int {
	largest := 0
	for _, community := range result.Communities {
		if len(community) <= largest {
			continue
		}
		for _, member := range community {
			if memberEntity(member, entityList) {
				largest = len(community)
				break
			}
		}
	}
	return largest
}

func memberEntity(nodeID string, entityList []string) bool {
	for _, entity := range entityList {
		if strings.HasSuffix(nodeID, "::"+entity) {
			return true
		}
	}
	return false
}

func priorityFor(score float64) core.Priority {
	switch {
	case score > highBound:
		return core.PriorityHigh
	case score >= mediumBound:
		return core.PriorityMedium
	default:
		return core.PriorityLow
	}
}
