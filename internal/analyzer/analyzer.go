// Package analyzer implements the three file walkers: general source,
// declarative data and view descriptions. Walkers consume the module index
// and the model registry and emit diagnostics; they never mutate either.
package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"relint/internal/diag"
	"relint/internal/relerr"
)

// FileLoader supplies raw source lines for other files of the workspace,
// used to honor suppression markers on parent method definitions.
type FileLoader interface {
	RawLines(path string) ([]string, bool)
}

// relerrUnknownModel distinguishes the expected miss (name absent from the
// session) from transport failures, which abort the analysis.
func relerrUnknownModel(err error) bool {
	return relerr.HasCode(err, relerr.UnknownModel)
}

// nodeRange converts a syntax node span to a diagnostic range.
// Tree-sitter rows are 0-based, diagnostic lines 1-based.
func nodeRange(node *sitter.Node) diag.Range {
	return diag.Range{
		Start: diag.Position{Line: int(node.StartPoint().Row) + 1, Column: int(node.StartPoint().Column)},
		End:   diag.Position{Line: int(node.EndPoint().Row) + 1, Column: int(node.EndPoint().Column)},
	}
}
