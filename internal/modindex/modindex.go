// Package modindex builds the per-module registration index: which classes
// the module registers, the declarative records it ships and the views they
// describe. An index is built once per module and read-only afterwards.
package modindex

import (
	"context"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"relint/internal/introspect"
	"relint/internal/parsing"
)

// Registration describes how one class is registered: its kind and the
// dependency tuple its schema is resolved against.
type Registration struct {
	Kind introspect.Kind
	Deps introspect.DepSet
}

// Record is one declarative record indexed by identifier.
type Record struct {
	Deps  introspect.DepSet
	File  string
	Line  int
	Model string
}

// ViewInfo binds a view-description file to its model and view type.
type ViewInfo struct {
	Deps  introspect.DepSet
	Type  string
	Model string
}

type regKey struct {
	file  string
	class string
}

// Index is the read-only registration index of one module.
type Index struct {
	name          string
	dir           string
	dataFiles     []string
	registrations map[regKey]Registration
	records       map[string]Record
	views         map[string]ViewInfo
}

// Build scans a module and constructs its index. A registration entry point
// that fails to parse yields an empty registration map, never an error: the
// module is simply treated as unregistered.
func Build(name string, info introspect.ModuleInfo) *Index {
	ix := &Index{
		name:          name,
		dir:           info.Directory,
		dataFiles:     info.DataFiles,
		registrations: map[regKey]Registration{},
		records:       map[string]Record{},
		views:         map[string]ViewInfo{},
	}
	ix.scanEntryPoint()
	for _, file := range info.DataFiles {
		ix.scanDataFile(filepath.Join(info.Directory, file))
	}
	return ix
}

// Name returns the module name.
func (ix *Index) Name() string { return ix.name }

// Dir returns the module directory.
func (ix *Index) Dir() string { return ix.dir }

// DataFiles returns the manifest-listed declarative-data files.
func (ix *Index) DataFiles() []string { return ix.dataFiles }

// OwnDeps returns the dependency set of the module alone.
func (ix *Index) OwnDeps() introspect.DepSet {
	return introspect.NewDepSet(ix.name)
}

// Registration looks up how a class declared in a file is registered.
func (ix *Index) Registration(filename, class string) (Registration, bool) {
	reg, ok := ix.registrations[regKey{file: filename, class: class}]
	return reg, ok
}

// RecordByID looks up a declarative record by identifier.
func (ix *Index) RecordByID(id string) (Record, bool) {
	rec, ok := ix.records[id]
	return rec, ok
}

// ViewInfo resolves a view-description file name to its binding.
func (ix *Index) ViewInfo(filename string) (ViewInfo, bool) {
	vi, ok := ix.views[filename]
	return vi, ok
}

// scanEntryPoint extracts registrations from the module's __init__.py. Each
// Pool.register(...) call contributes its positional pkg.Class references,
// with the dependency tuple defaulting to the module's own name plus the
// explicit depends= extras.
func (ix *Index) scanEntryPoint() {
	source, err := os.ReadFile(filepath.Join(ix.dir, "__init__.py"))
	if err != nil {
		return
	}
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return
	}
	root := tree.RootNode()

	var register *sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "function_definition" {
			if name := child.ChildByFieldName("name"); name != nil && name.Content(source) == "register" {
				register = child
				break
			}
		}
	}
	if register == nil {
		return
	}
	body := register.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		call := stmt.NamedChild(0)
		if call.Type() != "call" || !isPoolRegister(call, source) {
			continue
		}
		ix.indexRegisterCall(call, source)
	}
}

func isPoolRegister(call *sitter.Node, source []byte) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return false
	}
	obj := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	return obj != nil && attr != nil &&
		obj.Type() == "identifier" && obj.Content(source) == "Pool" &&
		attr.Content(source) == "register"
}

func (ix *Index) indexRegisterCall(call *sitter.Node, source []byte) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	kind := introspect.KindModel
	modules := []string{ix.name}
	var classes []regKey
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case "attribute":
			obj := arg.ChildByFieldName("object")
			attr := arg.ChildByFieldName("attribute")
			if obj != nil && attr != nil && obj.Type() == "identifier" {
				classes = append(classes, regKey{
					file:  obj.Content(source),
					class: attr.Content(source),
				})
			}
		case "keyword_argument":
			name := arg.ChildByFieldName("name")
			value := arg.ChildByFieldName("value")
			if name == nil || value == nil {
				continue
			}
			switch name.Content(source) {
			case "depends":
				if value.Type() == "list" {
					for j := 0; j < int(value.NamedChildCount()); j++ {
						if elem := value.NamedChild(j); elem.Type() == "string" {
							modules = append(modules, parsing.StringLiteral(elem, source))
						}
					}
				}
			case "type_":
				if value.Type() == "string" {
					if v := parsing.StringLiteral(value, source); introspect.ValidKind(v) {
						kind = introspect.Kind(v)
					}
				}
			}
		}
	}
	reg := Registration{Kind: kind, Deps: introspect.NewDepSet(modules...)}
	for _, key := range classes {
		ix.registrations[key] = reg
	}
}
