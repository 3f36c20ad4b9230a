// Package pipeline orchestrates the five analysis layers for one
// (old_ref, new_ref) pair and assembles the AnalysisResult.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jeffail/tunny"

	"github.com/sevigo/doc-sentry/internal/analysis/callgraph"
	"github.com/sevigo/doc-sentry/internal/analysis/entities"
	"github.com/sevigo/doc-sentry/internal/analysis/merkle"
	"github.com/sevigo/doc-sentry/internal/analysis/semantic"
	"github.com/sevigo/doc-sentry/internal/analysis/similarity"
	"github.com/sevigo/doc-sentry/internal/config"
	"github.com/sevigo/doc-sentry/internal/core"
	"github.com/sevigo/doc-sentry/internal/impact"
	"github.com/sevigo/doc-sentry/internal/snapshot"
)

// topPairsLimit bounds the similar-pair list carried in the result.
const topPairsLimit = 20

// Fetcher is the snapshot contract the pipeline needs: resolution plus
// size-limited fetching. Both snapshot backends satisfy it.
type Fetcher interface {
	snapshot.Source
	FetchLimited(ctx context.Context, ref string, maxBytes int64) (*snapshot.Snapshot, error)
}

// Pipeline runs the layered analysis. Construct once per configuration and
// reuse; every Run is independent.
type Pipeline struct {
	cfg      config.PipelineConfig
	codeSrc  Fetcher
	docsSrc  Fetcher
	codeSlug string
	docsSlug string
	logger   *slog.Logger
}

// New builds a Pipeline. docsSrc may equal codeSrc when documentation lives
// in the code repository.
func New(cfg config.PipelineConfig, codeSrc, docsSrc Fetcher, codeSlug, docsSlug string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if docsSrc == nil {
		docsSrc = codeSrc
		docsSlug = codeSlug
	}
	return &Pipeline{
		cfg:      cfg,
		codeSrc:  codeSrc,
		docsSrc:  docsSrc,
		codeSlug: codeSlug,
		docsSlug: docsSlug,
		logger:   logger,
	}
}

// Run executes layers 1 through 5 and the impact scorer. Failures in the
// community and similarity layers are tolerated and recorded as warnings;
// snapshot, digest and semantic failures are fatal.
func (p *Pipeline) Run(ctx context.Context, oldRef, newRef string) (*core.AnalysisResult, error) {
	started := time.Now()
	deadline := time.Time{}
	if d := p.cfg.Deadline(); d > 0 {
		deadline = started.Add(d)
	}

	result := &core.AnalysisResult{
		CodeSlug:  p.codeSlug,
		DocsSlug:  p.docsSlug,
		OldRef:    oldRef,
		NewRef:    newRef,
		StartedAt: started,
	}

	maxBytes := p.cfg.MaxFileSizeBytes()
	oldSnap, err := p.codeSrc.FetchLimited(ctx, oldRef, maxBytes)
	if err != nil {
		return nil, err
	}
	newSnap, err := p.codeSrc.FetchLimited(ctx, newRef, maxBytes)
	if err != nil {
		return nil, err
	}
	result.OldSHA = oldSnap.SHA
	result.NewSHA = newSnap.SHA

	docsSnap := newSnap
	if p.docsSrc != p.codeSrc || p.docsSlug != p.codeSlug {
		docsSnap, err = p.docsSrc.FetchLimited(ctx, newRef, maxBytes)
		if err != nil {
			return nil, err
		}
	}

	// Layer 1: digest comparison narrows the work to files that changed.
	diff := merkle.Compare(oldSnap, newSnap, p.cfg.MerkleTreeChunkSize)
	result.Summary.FilesAdded = diff.Added
	result.Summary.FilesDeleted = diff.Deleted
	p.logger.Info("digest comparison complete",
		"changed", len(diff.Changed), "added", len(diff.Added), "deleted", len(diff.Deleted))

	// Layer 2: semantic classification of every changed file.
	if p.cfg.Verbose {
		p.logger.Info("running semantic layer", "candidates", len(diff.Changed), "workers", p.workers())
	}
	changed, truncated := p.analyzeChanges(oldSnap, newSnap, diff.Changed, deadline)
	result.ChangedFiles = changed
	if truncated {
		result.Truncated = true
		result.AddWarning("semantic", core.ErrBudgetExceeded.Error())
	}

	// Layer 3: communities over the new snapshot's call graph (tolerated).
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.AddWarning("communities", fmt.Sprintf("%v: %v", core.ErrLayerUnavailable, r))
			}
		}()
		graph := callgraph.Build(p.codeFiles(newSnap), p.languages(newSnap))
		result.Communities = callgraph.Detect(graph, p.cfg.LouvainResolution, p.cfg.MinCommunitySize)
		result.CommunityOf = callgraph.Index(result.Communities)
	}()

	// Layer 4: cross-reference join of code entities against documentation.
	result.CrossRefs = p.crossReference(newSnap, docsSnap)
	p.attachEntities(result)

	// Layer 5: near-duplicate detection across both snapshots (tolerated).
	pairs, simTruncated, simErr := p.similarPairs(newSnap, docsSnap, deadline)
	if simErr != nil {
		result.AddWarning("similarity", simErr.Error())
	} else {
		result.SimilarPairs = pairs
		result.Truncated = result.Truncated || simTruncated
	}

	p.summarize(result)
	result.ImpactedDocs = impact.Score(result)
	result.ElapsedSeconds = time.Since(started).Seconds()

	p.logger.Info("analysis complete",
		"files_changed", len(result.ChangedFiles),
		"communities", len(result.Communities),
		"impacted_docs", len(result.ImpactedDocs),
		"elapsed", result.ElapsedSeconds)
	return result, nil
}

// analyzeChanges classifies changed files with bounded parallelism,
// preserving the sorted enumeration order of results. The deadline is
// checked at per-file boundaries; expiry truncates the remaining work.
func (p *Pipeline) analyzeChanges(oldSnap, newSnap *snapshot.Snapshot, paths []string, deadline time.Time) ([]core.ChangedFile, bool) {
	differ := semantic.NewDiffer(semantic.Thresholds{
		Refactor: 0.1,
		Minor:    p.cfg.TreeEditDistanceThreshold,
		Major:    0.6,
	})

	type task struct {
		path     string
		language string
		oldCode  string
		newCode  string
	}
	var tasks []task
	truncated := false
	for _, fp := range paths {
		if !deadline.IsZero() && time.Now().After(deadline) {
			truncated = true
			break
		}
		if !p.considerPath(fp) {
			continue
		}
		oldFile, okOld := oldSnap.Get(fp)
		newFile, okNew := newSnap.Get(fp)
		if !okOld || !okNew {
			continue
		}
		language := semantic.DetectLanguage(fp, newFile.Data)
		if !semantic.Analyzable(language) {
			continue
		}
		tasks = append(tasks, task{
			path:     fp,
			language: language,
			oldCode:  string(oldFile.Data),
			newCode:  string(newFile.Data),
		})
	}

	results := make([]core.ChangedFile, len(tasks))
	pool := tunny.NewFunc(p.workers(), func(payload interface{}) interface{} {
		i := payload.(int)
		t := tasks[i]
		if !utf8.ValidString(t.oldCode) || !utf8.ValidString(t.newCode) {
			// Undecodable source counts as a parse failure: a single major
			// record with the flag set, never a pipeline abort.
			results[i] = core.ChangedFile{
				Path:               t.path,
				Language:           t.language,
				ChangeType:         core.ChangeMajor,
				NormalizedDistance: 1,
				SizeOld:            len(t.oldCode),
				SizeNew:            len(t.newCode),
				Entities:           make(map[string]bool),
				NeedsDocUpdate:     true,
				ParseError:         true,
			}
			return nil
		}
		res := differ.Analyze(t.oldCode, t.newCode, t.language)
		results[i] = core.ChangedFile{
			Path:               t.path,
			Language:           t.language,
			ChangeType:         res.ChangeType,
			Distance:           res.Distance,
			NormalizedDistance: res.NormalizedDistance,
			SizeOld:            res.Size1,
			SizeNew:            res.Size2,
			Entities:           make(map[string]bool),
			NeedsDocUpdate:     res.ChangeType.NeedsDocUpdate(),
			ParseError:         res.ParseError,
		}
		return nil
	})
	defer pool.Close()

	done := make(chan struct{}, len(tasks))
	for i := range tasks {
		go func(i int) {
			pool.Process(i)
			done <- struct{}{}
		}(i)
	}
	for range tasks {
		<-done
	}
	return results, truncated
}

func (p *Pipeline) crossReference(codeSnap, docsSnap *snapshot.Snapshot) core.CrossRefs {
	codeFiles := make(map[string]entities.CodeFile)
	for _, f := range codeSnap.Files {
		if !p.considerPath(f.Path) {
			continue
		}
		language := semantic.DetectLanguage(f.Path, f.Data)
		if !semantic.Analyzable(language) {
			continue
		}
		codeFiles[f.Path] = entities.CodeFile{Code: string(f.Data), Language: language}
	}

	docFiles := make(map[string]string)
	for _, f := range docsSnap.Files {
		if entities.IsDocPath(f.Path) {
			docFiles[f.Path] = string(f.Data)
		}
	}

	return entities.CrossReference(codeFiles, docFiles, entities.DefaultContextChars)
}

// attachEntities associates extracted entities with the changed files that
// define them.
func (p *Pipeline) attachEntities(result *core.AnalysisResult) {
	byFile := make(map[string][]string)
	for entity, files := range result.CrossRefs.EntityToFiles {
		for _, f := range files {
			byFile[f] = append(byFile[f], entity)
		}
	}
	for i := range result.ChangedFiles {
		cf := &result.ChangedFiles[i]
		for _, entity := range byFile[cf.Path] {
			cf.Entities[entity] = true
		}
	}
}

// similarPairs runs shingling, MinHash, LSH banding and verification across
// the code and docs snapshots. The file budget is split half per snapshot,
// with the unused remainder of the code half rebalanced to the docs side.
func (p *Pipeline) similarPairs(codeSnap, docsSnap *snapshot.Snapshot, deadline time.Time) ([]core.SimilarPair, bool, error) {
	hasher := similarity.NewMinHasher(p.cfg.MinhashNumPerm)
	window := p.cfg.RollingHashWindowSize

	signatures := make(map[string][]uint64)
	kinds := make(map[string]string)
	truncated := false

	type entry struct {
		id   string
		data []byte
		ext  string
	}
	collect := func(snap *snapshot.Snapshot, kind string, limit int) (int, []entry) {
		var batch []entry
		count := 0
		for _, f := range snap.Files {
			if count >= limit {
				break
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				truncated = true
				break
			}
			if !p.considerPath(f.Path) {
				continue
			}
			ext := similarity.Ext(f.Path)
			if p.cfg.SimilarityExcludeBinary && p.isBinaryExt(ext) {
				continue
			}
			data := f.Data
			if p.cfg.SimilarityTextNormalize && p.isTextExt(ext) {
				data = similarity.NormalizeText(data, ext)
			}
			id := kind + ":" + f.Path
			batch = append(batch, entry{id: id, data: data, ext: ext})
			kinds[id] = kind
			count++
		}
		return count, batch
	}

	perRepo := p.cfg.SimilarityMaxFiles / 2
	if perRepo < 1 {
		perRepo = 1
	}
	codeCount, codeBatch := collect(codeSnap, "code", perRepo)
	remaining := p.cfg.SimilarityMaxFiles - codeCount
	if remaining < 1 {
		remaining = 1
	}
	_, docsBatch := collect(docsSnap, "docs", remaining)

	batch := append(codeBatch, docsBatch...)
	sigs := make([][]uint64, len(batch))
	pool := tunny.NewFunc(p.workers(), func(payload interface{}) interface{} {
		i := payload.(int)
		tokens := similarity.Shingle(batch[i].data, window, p.cfg.SimilarityMaxTokensPerFile)
		sigs[i] = hasher.Signature(tokens)
		return nil
	})
	defer pool.Close()

	done := make(chan struct{}, len(batch))
	for i := range batch {
		go func(i int) {
			pool.Process(i)
			done <- struct{}{}
		}(i)
	}
	for range batch {
		<-done
	}
	for i, e := range batch {
		signatures[e.id] = sigs[i]
	}

	candidates := similarity.Candidates(signatures, p.cfg.LSHNumBands, p.cfg.LSHRowsPerBand)
	if p.cfg.Debug {
		p.logger.Debug("lsh banding complete", "files", len(signatures), "candidates", len(candidates))
	}
	if len(candidates) > p.cfg.SimilarityMaxPairs {
		candidates = candidates[:p.cfg.SimilarityMaxPairs]
		truncated = true
	}

	var pairs []core.SimilarPair
	for _, c := range candidates {
		if p.cfg.SimilarityCrossOnly && kinds[c.A] == kinds[c.B] {
			continue
		}
		sim := similarity.SignatureSimilarity(signatures[c.A], signatures[c.B])
		if sim >= p.cfg.SimilarityThreshold {
			pairs = append(pairs, core.SimilarPair{A: c.A, B: c.B, Similarity: sim})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	if len(pairs) > topPairsLimit {
		pairs = pairs[:topPairsLimit]
	}
	return pairs, truncated, nil
}

func (p *Pipeline) summarize(result *core.AnalysisResult) {
	byType := make(map[core.ChangeType]int)
	needsUpdate := 0
	for _, cf := range result.ChangedFiles {
		byType[cf.ChangeType]++
		if cf.NeedsDocUpdate {
			needsUpdate++
		}
	}
	result.Summary.FilesAnalyzed = len(result.ChangedFiles)
	result.Summary.ByChangeType = byType
	result.Summary.NeedsDocUpdate = needsUpdate
}

func (p *Pipeline) codeFiles(snap *snapshot.Snapshot) map[string]string {
	files := make(map[string]string)
	for _, f := range snap.Files {
		if p.considerPath(f.Path) {
			files[f.Path] = string(f.Data)
		}
	}
	return files
}

func (p *Pipeline) languages(snap *snapshot.Snapshot) map[string]string {
	langs := make(map[string]string)
	for _, f := range snap.Files {
		if language := semantic.DetectLanguage(f.Path, f.Data); language != "" {
			langs[f.Path] = language
		}
	}
	return langs
}

// considerPath applies the include and exclude glob lists. A path matching no
// include glob is skipped, and a path matching any exclude glob is skipped
// even when it also matches an include glob.
func (p *Pipeline) considerPath(filePath string) bool {
	if len(p.cfg.SimilarityIncludeGlobs) > 0 {
		matched := false
		for _, pattern := range p.cfg.SimilarityIncludeGlobs {
			if globMatch(pattern, filePath) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pattern := range p.cfg.SimilarityExcludeGlobs {
		if globMatch(pattern, filePath) {
			return false
		}
	}
	return true
}

// globMatch implements fnmatch-style matching where "*" crosses directory
// separators, which path.Match alone does not do.
func globMatch(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if ok, _ := path.Match(pattern, name); ok {
		return true
	}
	// Patterns like "*/vendor/*" should match at any depth.
	if strings.HasPrefix(pattern, "*/") && strings.HasSuffix(pattern, "/*") {
		needle := strings.TrimSuffix(strings.TrimPrefix(pattern, "*/"), "/*")
		for _, part := range strings.Split(path.Dir(name), "/") {
			if part == needle {
				return true
			}
		}
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(name, pattern[1:])
	}
	return false
}

func (p *Pipeline) isBinaryExt(ext string) bool {
	for _, e := range p.cfg.SimilarityBinaryExtensions {
		if normalizeExt(e) == ext {
			return true
		}
	}
	return false
}

func (p *Pipeline) isTextExt(ext string) bool {
	for _, e := range p.cfg.SimilarityTextExtensions {
		if normalizeExt(e) == ext {
			return true
		}
	}
	return false
}

func normalizeExt(e string) string {
	e = strings.ToLower(e)
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

func (p *Pipeline) workers() int {
	if p.cfg.MaxWorkers > 0 {
		return p.cfg.MaxWorkers
	}
	return 1
}
