// Package parsing loads framework source and data files, attributes them to
// their owning module and selects the matching analyzer kind from the path.
package parsing

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"relint/internal/relerr"
)

// FileKind selects which walker analyzes a file.
type FileKind int

const (
	// KindSource is framework source code
	KindSource FileKind = iota
	// KindData is a declarative-data file
	KindData
	// KindView is a view-description file
	KindView
)

// KindFromPath selects the file kind by location, mirroring the framework's
// module layout: sources anywhere, view descriptions under view/, any other
// XML as declarative data.
func KindFromPath(path string) (FileKind, bool) {
	switch {
	case strings.HasSuffix(path, ".py"):
		return KindSource, true
	case strings.HasSuffix(path, ".xml") && filepath.Base(filepath.Dir(path)) == "view":
		return KindView, true
	case strings.HasSuffix(path, ".xml"):
		return KindData, true
	default:
		return 0, false
	}
}

// File is a loaded, parsed file together with its module attribution.
type File struct {
	Path       string
	Kind       FileKind
	Data       []byte
	Lines      []string
	ModuleName string
	ModuleDir  string
	Manifest   *Manifest
	// Tree is set for source files only.
	Tree *sitter.Tree
	// ImportPath is the qualified import path of a source file inside the
	// framework namespace, used to locate the file's classes in override
	// chains.
	ImportPath string
}

// Root returns the syntax tree root of a source file.
func (f *File) Root() *sitter.Node {
	if f.Tree == nil {
		return nil
	}
	return f.Tree.RootNode()
}

// Stem returns the file name without its extension.
func (f *File) Stem() string {
	base := filepath.Base(f.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load reads and parses a file. When data is nil the file is read from disk;
// otherwise data is analyzed in place of the on-disk content (unsaved-edit
// mode). Source files that do not parse return a PARSE_FAILED error so the
// caller can fall back to the last good version.
func Load(path string, data []byte) (*File, error) {
	if data == nil {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, relerr.Wrap(relerr.ParseFailed, "reading file", err)
		}
		data = raw
	}
	kind, ok := KindFromPath(path)
	if !ok {
		return nil, relerr.Newf(relerr.ParseFailed, "unsupported file type: %s", path)
	}

	f := &File{
		Path:  path,
		Kind:  kind,
		Data:  data,
		Lines: strings.Split(string(data), "\n"),
	}
	if dir, manifest, ok := FindModuleRoot(path); ok {
		f.ModuleDir = dir
		f.ModuleName = manifest.Name
		f.Manifest = manifest
	}

	if kind == KindSource {
		parser := sitter.NewParser()
		parser.SetLanguage(python.GetLanguage())
		tree, err := parser.ParseCtx(context.Background(), nil, data)
		if err != nil {
			return nil, relerr.Wrap(relerr.ParseFailed, "parsing source", err)
		}
		if tree.RootNode().HasError() {
			return nil, relerr.Newf(relerr.ParseFailed, "syntax error in %s", path)
		}
		f.Tree = tree
		f.ImportPath = importPath(path, f.ModuleDir, f.ModuleName)
	}
	return f, nil
}

// StringLiteral returns the content of a string node without quotes or
// prefixes. Only plain single-part literals are supported, which is all the
// analyzed surface uses.
func StringLiteral(node *sitter.Node, source []byte) string {
	s := node.Content(source)
	for len(s) > 0 && s[0] != '"' && s[0] != '\'' {
		s = s[1:] // string prefix (r, b, u...)
	}
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// importPath builds the framework import path of a source file, e.g.
// fabric.modules.sale.invoice for sale/invoice.py.
func importPath(path, moduleDir, moduleName string) string {
	if moduleDir == "" {
		return ""
	}
	rel, err := filepath.Rel(moduleDir, path)
	if err != nil {
		return ""
	}
	rel = strings.TrimSuffix(rel, ".py")
	parts := append([]string{"fabric", "modules", moduleName},
		strings.Split(filepath.ToSlash(rel), "/")...)
	return strings.Join(parts, ".")
}
