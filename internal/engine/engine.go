// Package engine wires the parsed-file cache, the module index and the model
// registry into the three analysis entry points.
package engine

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"relint/internal/analyzer"
	"relint/internal/diag"
	"relint/internal/logging"
	"relint/internal/modindex"
	"relint/internal/parsing"
	"relint/internal/registry"
	"relint/internal/relerr"
)

// Engine is the analysis façade. It keeps the last successfully parsed
// version of every file, so analyses over unsaved edits degrade to the last
// good syntax tree instead of failing.
type Engine struct {
	log *logging.Logger
	mgr *registry.Manager

	mu    sync.Mutex
	files map[string]*parsing.File
}

// New builds an engine on top of a registry manager.
func New(mgr *registry.Manager, log *logging.Logger) *Engine {
	return &Engine{
		log:   log,
		mgr:   mgr,
		files: map[string]*parsing.File{},
	}
}

// Close releases the registry and its introspector.
func (e *Engine) Close() {
	e.mgr.Close()
}

// RawLines returns the raw source lines of a file, serving the analyzer's
// suppression checks on files other than the one being analyzed.
func (e *Engine) RawLines(path string) ([]string, bool) {
	e.mu.Lock()
	if f, ok := e.files[path]; ok {
		e.mu.Unlock()
		return f.Lines, true
	}
	e.mu.Unlock()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return strings.Split(string(data), "\n"), true
}

// loadFile parses a file, caching the result. A source file that fails to
// parse falls back to the cached last-good version when one exists.
func (e *Engine) loadFile(path string, data []byte) (*parsing.File, error) {
	f, err := parsing.Load(path, data)
	if err != nil {
		if relerr.HasCode(err, relerr.ParseFailed) {
			e.mu.Lock()
			cached, ok := e.files[path]
			e.mu.Unlock()
			if ok {
				e.log.Debug("analysis falls back to last parsed version", map[string]interface{}{
					"path": path,
				})
				return cached, nil
			}
		}
		return nil, err
	}
	e.mu.Lock()
	e.files[path] = f
	e.mu.Unlock()
	return f, nil
}

// moduleIndex resolves the registration index for the file's module, nil
// when the file does not belong to one.
func (e *Engine) moduleIndex(f *parsing.File) (*modindex.Index, error) {
	if f.ModuleName == "" {
		return nil, nil
	}
	ix, err := e.mgr.Module(f.ModuleName)
	if err != nil {
		if relerr.HasCode(err, relerr.ModuleNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ix, nil
}

// GenerateDiagnostics analyzes one file and returns its diagnostics, sorted.
// data, when non-nil, is analyzed in place of the on-disk content. For
// source files, a non-empty ranges restricts the walk to the definitions
// overlapping the edited spans.
func (e *Engine) GenerateDiagnostics(path string, data []byte, ranges []diag.Range) ([]diag.Diagnostic, error) {
	f, err := e.loadFile(path, data)
	if err != nil {
		return nil, err
	}
	index, err := e.moduleIndex(f)
	if err != nil {
		return nil, err
	}
	switch f.Kind {
	case parsing.KindSource:
		return analyzer.NewSource(f, e.mgr, index, e).Analyze(ranges)
	case parsing.KindData:
		return analyzer.AnalyzeData(f, e.mgr, index)
	case parsing.KindView:
		return analyzer.AnalyzeView(f, e.mgr, index)
	}
	return nil, nil
}

// GenerateCompletions returns the ranked completion items for the attribute
// access at the cursor (1-based line, 0-based column).
func (e *Engine) GenerateCompletions(path string, data []byte, line, col int) ([]registry.CompletionItem, error) {
	f, err := e.loadFile(path, data)
	if err != nil {
		return nil, err
	}
	if f.Kind != parsing.KindSource {
		return nil, nil
	}
	index, err := e.moduleIndex(f)
	if err != nil {
		return nil, err
	}
	model, err := analyzer.CompletionModel(f, e.mgr, index, e, line, col)
	if err != nil || model == nil {
		return nil, err
	}
	return model.Completions()
}

// RefreshModule drops the module's registration index so the next analysis
// rebuilds it from source, picking up registration and data-file changes.
func (e *Engine) RefreshModule(module string) {
	e.mgr.EvictModule(module)
}

// GenerateModuleDiagnostics analyzes every analyzable file of a module:
// sources, manifest-listed data files and view descriptions. Files that fail
// to parse are skipped with a log entry, never aborting the pass.
func (e *Engine) GenerateModuleDiagnostics(module string) ([]diag.Diagnostic, error) {
	ix, err := e.mgr.Module(module)
	if err != nil {
		return nil, err
	}
	var all []diag.Diagnostic
	for _, path := range modulePaths(ix) {
		diags, err := e.GenerateDiagnostics(path, nil, nil)
		if err != nil {
			if relerr.HasCode(err, relerr.ParseFailed) || relerr.HasCode(err, relerr.ModuleNotFound) {
				e.log.Warn("skipping file", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
				continue
			}
			return nil, err
		}
		all = append(all, diags...)
	}
	diag.Sort(all)
	return all, nil
}

// modulePaths lists the analyzable files of a module in a stable order.
func modulePaths(ix *modindex.Index) []string {
	var paths []string
	_ = filepath.WalkDir(ix.Dir(), func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".py") {
			paths = append(paths, path)
		}
		return nil
	})
	for _, file := range ix.DataFiles() {
		if strings.HasSuffix(file, ".xml") {
			paths = append(paths, filepath.Join(ix.Dir(), file))
		}
	}
	views, _ := filepath.Glob(filepath.Join(ix.Dir(), "view", "*.xml"))
	paths = append(paths, views...)
	return paths
}
