package entities

import (
	"path"
	"sort"
	"strings"

	"github.com/sevigo/doc-sentry/internal/core"
)

// docExtensions are the documentation formats scanned for entity mentions.
var docExtensions = map[string]bool{
	".md": true, ".mdx": true, ".txt": true, ".rst": true,
}

// IsDocPath reports whether a path looks like a documentation file.
func IsDocPath(p string) bool {
	return docExtensions[strings.ToLower(path.Ext(p))]
}

// CodeFile pairs a source file's content with its detected language.
type CodeFile struct {
	Code     string
	Language string
}

// CrossReference joins extracted code entities against documentation files.
// One automaton built from the union of all entity names is run over every
// doc; the result carries the forward (entity -> docs) index, the per-doc
// match index, and entity -> defining files.
func CrossReference(codeFiles map[string]CodeFile, docFiles map[string]string, contextChars int) core.CrossRefs {
	all := make(map[string]bool)
	entityFiles := make(map[string]map[string]bool)

	codePaths := sortedKeys(codeFiles)
	for _, filePath := range codePaths {
		cf := codeFiles[filePath]
		for name := range Extract(cf.Code, cf.Language) {
			all[name] = true
			if entityFiles[name] == nil {
				entityFiles[name] = make(map[string]bool)
			}
			entityFiles[name][filePath] = true
		}
	}

	refs := core.CrossRefs{
		EntityToDocs:    make(map[string][]string),
		ReferencesByDoc: make(core.MentionIndex),
		EntityToFiles:   make(map[string][]string),
		AllEntities:     Sorted(all),
	}
	for name, files := range entityFiles {
		refs.EntityToFiles[name] = sortedSet(files)
	}
	if len(all) == 0 {
		return refs
	}

	// The automaton folds case for matching but reports each pattern with its
	// original casing, so every map in CrossRefs is keyed by the entity name
	// exactly as Extract produced it.
	automaton := NewAutomaton(refs.AllEntities, false)
	entityDocs := make(map[string]map[string]bool)

	for _, docPath := range sortedKeys(docFiles) {
		byPattern := automaton.SearchByPattern(docFiles[docPath], contextChars)
		if len(byPattern) == 0 {
			continue
		}
		refs.ReferencesByDoc[docPath] = byPattern
		for entity := range byPattern {
			if entityDocs[entity] == nil {
				entityDocs[entity] = make(map[string]bool)
			}
			entityDocs[entity][docPath] = true
		}
	}
	for entity, docs := range entityDocs {
		refs.EntityToDocs[entity] = sortedSet(docs)
	}
	return refs
}

// MentionCount totals the matches for one entity in one doc.
func MentionCount(refs core.CrossRefs, docPath, entity string) int {
	return len(refs.ReferencesByDoc[docPath][entity])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
