package analyzer

import (
	"relint/internal/modindex"
	"relint/internal/parsing"
	"relint/internal/registry"
)

// CompletionModel runs the source walk in completion mode and returns the
// model of the attribute receiver under the cursor, or nil when the cursor
// is not on a resolvable attribute access. Diagnostics collected on the way
// are discarded.
func CompletionModel(file *parsing.File, mgr *registry.Manager, index *modindex.Index,
	loader FileLoader, line, col int) (*registry.Model, error) {
	a := NewSource(file, mgr, index, loader)
	a.cursor = &cursorPos{line: line, col: col}
	if err := a.run(); err != nil {
		return nil, err
	}
	return a.captured, nil
}
