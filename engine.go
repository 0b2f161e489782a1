package gqlsearch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/wrhall/graphql-search/internal/extract"
	"github.com/wrhall/graphql-search/internal/match"
	"github.com/wrhall/graphql-search/internal/store"
)

// Extraction modes, also used as part of the cache key.
const (
	ModeMarkers = "markers"
	ModeSyntax  = "syntax"
)

// Engine searches files for embedded queries selecting one field path:
// file discovery, optional result caching, extraction, parsing and matching.
type Engine struct {
	path      match.Path
	parser    *match.Parser
	extractor extract.Extractor
	mode      string
	store     *store.Store
	logger    *slog.Logger
	filter    *fileFilter

	cachePath   string
	syntaxAware bool
	gitignore   bool
	ignore      []string
	include     []string
	progress    ProgressFunc

	// useParallel enables the worker-pool pipeline.
	useParallel bool
	workers     int
}

// ProgressFunc is called after each file is finished, with the number of
// files done so far and the total.
type ProgressFunc func(done, total int)

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls the worker pool. When true (default), files are
// extracted and matched concurrently and committed by a single writer. Set to
// false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the worker pool size. Zero or less means one per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithSyntaxAware switches JavaScript and TypeScript files to the tree-sitter
// extractor. Other files keep the textual scan.
func WithSyntaxAware(enabled bool) Option {
	return func(e *Engine) {
		e.syntaxAware = enabled
	}
}

// WithCache stores results in a SQLite database at dbPath, keyed by file
// content hash, field path and extraction mode. Empty disables caching.
func WithCache(dbPath string) Option {
	return func(e *Engine) {
		e.cachePath = dbPath
	}
}

// WithLogger sets the structured logger. Parse failures are logged at Info,
// per-file progress at Debug and cache problems at Warn.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIgnore excludes files matching any of the globs. Patterns use '/' as
// separator and match paths relative to the search root; "dir/**" prunes the
// whole directory.
func WithIgnore(patterns ...string) Option {
	return func(e *Engine) {
		e.ignore = append(e.ignore, patterns...)
	}
}

// WithInclude restricts the search to files matching at least one glob.
func WithInclude(patterns ...string) Option {
	return func(e *Engine) {
		e.include = append(e.include, patterns...)
	}
}

// WithGitignore lists files with git ls-files so .gitignore is respected,
// falling back to a directory walk outside a git checkout.
func WithGitignore(enabled bool) Option {
	return func(e *Engine) {
		e.gitignore = enabled
	}
}

// WithProgress registers a per-file progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// New creates an Engine searching for fieldPath. An empty path or an empty
// segment is rejected before any file is touched.
func New(fieldPath string, opts ...Option) (*Engine, error) {
	p, err := match.ParsePath(fieldPath)
	if err != nil {
		return nil, fmt.Errorf("gqlsearch: %w", err)
	}

	e := &Engine{
		path:        p,
		logger:      slog.New(slog.DiscardHandler),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.filter, err = newFileFilter(e.ignore, e.include)
	if err != nil {
		return nil, fmt.Errorf("gqlsearch: %w", err)
	}

	e.extractor, e.mode = extract.Markers{}, ModeMarkers
	if e.syntaxAware {
		e.extractor, e.mode = extract.Syntax{}, ModeSyntax
	}

	e.parser, err = match.NewParser(match.DefaultParseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("gqlsearch: %w", err)
	}

	if e.cachePath != "" {
		s, err := store.NewStore(e.cachePath)
		if err != nil {
			e.parser.Close()
			return nil, fmt.Errorf("gqlsearch: open cache: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			e.parser.Close()
			return nil, fmt.Errorf("gqlsearch: migrate cache: %w", err)
		}
		e.store = s
	}

	return e, nil
}

// Close releases the parse cache and the result cache.
func (e *Engine) Close() error {
	e.parser.Close()
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Path returns the field path being searched for.
func (e *Engine) Path() Path {
	return e.path
}

// MatchSource runs extraction, parsing and matching over one file's contents.
// Snippets the parser rejects are returned as diagnostics and do not stop the
// scan; the first matching snippet ends it.
func (e *Engine) MatchSource(ctx context.Context, file string, src []byte) (Match, []Diagnostic, bool) {
	var diags []Diagnostic
	for snip := range e.extractor.Snippets(ctx, file, src) {
		doc, err := e.parser.Parse(snip.Text)
		if err != nil {
			diags = append(diags, Diagnostic{File: file, Line: snip.Line, Message: err.Error()})
			continue
		}
		if match.ContainsPath(doc, e.path) {
			return Match{File: file, Line: snip.Line, Marker: snip.Marker}, diags, true
		}
	}
	return Match{}, diags, false
}

// workItem holds everything needed to search one file.
type workItem struct {
	index  int
	path   string
	fileID int64        // 0 when the file is not cached
	batch  *store.Batch // nil when the file is not cached

	// content holds the bytes hashed for the cache key; nil means read on search.
	content []byte
}

// fileOutcome is the per-file result, stored by input position so reports
// keep traversal order.
type fileOutcome struct {
	done    bool
	skipped bool
	cached  bool
	matched bool
	match   Match
	diags   []Diagnostic
}

// SearchFiles searches the given files. When WithParallel is enabled, uses a
// worker pool with a single cache writer; otherwise runs serially.
//
// Unreadable and non-UTF-8 files are skipped. When ctx is done the remaining
// files are abandoned and the partial report is returned with ctx.Err().
func (e *Engine) SearchFiles(ctx context.Context, paths []string) (*Report, error) {
	if e.useParallel {
		return e.SearchFilesParallel(ctx, paths)
	}
	return e.searchFilesSerial(ctx, paths)
}

func (e *Engine) searchFilesSerial(ctx context.Context, paths []string) (*Report, error) {
	outcomes := make([]fileOutcome, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return e.buildReport(outcomes), err
		}
		item, cached, ok := e.prepareFile(i, path)
		if ok {
			outcomes[i] = cached
		} else {
			outcomes[i] = e.searchItem(ctx, item)
			e.commit(item)
		}
		e.reportProgress(i+1, len(paths))
	}
	return e.buildReport(outcomes), ctx.Err()
}

// prepareFile consults the result cache. It returns the cached outcome and
// true on a hit; otherwise a work item, with a Batch when the result should be
// cached. Cache failures are logged and the file is searched uncached.
func (e *Engine) prepareFile(index int, path string) (workItem, fileOutcome, bool) {
	item := workItem{index: index, path: path}
	if e.store == nil {
		return item, fileOutcome{}, false
	}

	content, ok := e.readSource(path)
	if !ok {
		return item, fileOutcome{done: true, skipped: true}, true
	}
	hash := store.ContentHash(content)
	item.content = content
	fieldPath := e.path.String()

	existing, err := e.store.FileByPath(path)
	if err != nil {
		e.logger.Warn("cache lookup failed", "file", path, "error", err)
		return item, fileOutcome{}, false
	}

	if existing != nil && existing.Hash == hash {
		r, err := e.store.ResultFor(existing.ID, fieldPath, e.mode)
		if err != nil {
			e.logger.Warn("cache lookup failed", "file", path, "error", err)
			return item, fileOutcome{}, false
		}
		if r != nil {
			stored, err := e.store.DiagnosticsFor(existing.ID, fieldPath, e.mode)
			if err != nil {
				e.logger.Warn("cache lookup failed", "file", path, "error", err)
				return item, fileOutcome{}, false
			}
			out := fileOutcome{done: true, cached: true, matched: r.Matched}
			if r.Matched {
				out.match = Match{File: path, Line: r.Line, Marker: r.Marker}
			}
			for _, d := range stored {
				out.diags = append(out.diags, Diagnostic{File: path, Line: d.Line, Message: d.Message})
			}
			return item, out, true
		}
		item.fileID = existing.ID
		item.batch = store.NewBatch()
		return item, fileOutcome{}, false
	}

	now := time.Now()
	if existing != nil {
		// Content changed: drop every stale result for the file.
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			e.logger.Warn("cache invalidation failed", "file", path, "error", err)
			return item, fileOutcome{}, false
		}
		existing.Hash = hash
		existing.LastScanned = now
		if err := e.store.UpdateFile(existing); err != nil {
			e.logger.Warn("cache update failed", "file", path, "error", err)
			return item, fileOutcome{}, false
		}
		item.fileID = existing.ID
	} else {
		id, err := e.store.InsertFile(&store.File{Path: path, Hash: hash, LastScanned: now})
		if err != nil {
			e.logger.Warn("cache insert failed", "file", path, "error", err)
			return item, fileOutcome{}, false
		}
		item.fileID = id
	}
	item.batch = store.NewBatch()
	return item, fileOutcome{}, false
}

// searchItem reads and searches one file, buffering the result into the
// item's Batch when it has one.
func (e *Engine) searchItem(ctx context.Context, item workItem) fileOutcome {
	content := item.content
	if content == nil {
		var ok bool
		if content, ok = e.readSource(item.path); !ok {
			return fileOutcome{done: true, skipped: true}
		}
	}

	m, diags, matched := e.MatchSource(ctx, item.path, content)
	if ctx.Err() != nil {
		// The scan may have stopped early; the outcome is incomplete.
		return fileOutcome{}
	}

	if item.batch != nil {
		fieldPath := e.path.String()
		item.batch.AddResult(store.Result{
			FileID:    item.fileID,
			FieldPath: fieldPath,
			Mode:      e.mode,
			Matched:   matched,
			Line:      m.Line,
			Marker:    m.Marker,
		})
		for _, d := range diags {
			item.batch.AddDiagnostic(store.Diagnostic{
				FileID:    item.fileID,
				FieldPath: fieldPath,
				Mode:      e.mode,
				Line:      d.Line,
				Message:   d.Message,
			})
		}
	}

	return fileOutcome{done: true, matched: matched, match: m, diags: diags}
}

// commit writes an item's Batch to the cache. Failures only cost the cache
// entry.
func (e *Engine) commit(item workItem) {
	if e.store == nil || item.batch == nil || len(item.batch.Results) == 0 {
		return
	}
	if err := e.store.CommitBatch(item.batch); err != nil {
		e.logger.Warn("cache commit failed", "file", item.path, "error", err)
	}
}

// readSource reads a file as text. Unreadable files and files that are not
// valid UTF-8 are reported as not ok.
func (e *Engine) readSource(path string) ([]byte, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		e.logger.Debug("skipping unreadable file", "file", path, "error", err)
		return nil, false
	}
	if !utf8.Valid(content) {
		e.logger.Debug("skipping non-text file", "file", path)
		return nil, false
	}
	return content, true
}

func (e *Engine) reportProgress(done, total int) {
	if e.progress != nil {
		e.progress(done, total)
	}
}

// buildReport assembles finished outcomes in input order and logs the
// diagnostics they carry.
func (e *Engine) buildReport(outcomes []fileOutcome) *Report {
	r := &Report{
		FieldPath:   e.path.String(),
		Matches:     []Match{},
		Diagnostics: []Diagnostic{},
	}
	for _, out := range outcomes {
		if !out.done || out.skipped {
			continue
		}
		r.FilesScanned++
		if out.cached {
			r.CacheHits++
		}
		for _, d := range out.diags {
			e.logger.Info("failed to parse query", "file", d.File, "line", d.Line, "error", d.Message)
			r.Diagnostics = append(r.Diagnostics, d)
		}
		if out.matched {
			e.logger.Debug("match", "file", out.match.File, "line", out.match.Line, "cached", out.cached)
			r.Matches = append(r.Matches, out.match)
		}
	}
	return r
}
