package analyzer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relint/internal/diag"
	"relint/internal/introspect"
	"relint/internal/logging"
	"relint/internal/modindex"
	"relint/internal/parsing"
	"relint/internal/registry"
)

// mapLoader serves raw lines for scripted paths, standing in for the engine's
// file cache.
type mapLoader map[string][]string

func (m mapLoader) RawLines(path string) ([]string, bool) {
	lines, ok := m[path]
	return lines, ok
}

const fixtureInit = `from . import library

def register():
    Pool.register(
        library.Author,
        library.Book,
        module='library')
    Pool.register(
        library.Checkout,
        type_='wizard', module='library')
`

const fixtureManifest = `name = "library"
depends = ["base"]
data = ["library.xml"]
`

const fixtureData = `<?xml version="1.0"?>
<fabric>
  <data>
    <record model="ui.view" id="book_view_form">
      <field name="name">book_form</field>
      <field name="model">library.book</field>
      <field name="type">form</field>
    </record>
    <record model="ui.view" id="book_view_tree">
      <field name="name">book_tree</field>
      <field name="model">library.book</field>
      <field name="type">tree</field>
    </record>
    <record model="ui.view" id="ghost_view_form">
      <field name="name">ghost_form</field>
      <field name="model">library.ghost</field>
      <field name="type">form</field>
    </record>
  </data>
</fabric>
`

// fixtureParent is the upstream definition file referenced by the override
// chains; it exists only through the loader.
var fixtureParent = []string{
	"class Book:",
	"    def check(self):",
	"        pass",
	"",
	"    # RELINT-IGNORE-1004",
	"    def validate(self):",
	"        pass",
	"",
	"    def get_price(self):",
	"        pass",
}

type fixture struct {
	dir      string
	libPath  string
	basePath string
	mgr      *registry.Manager
	ix       *modindex.Index
	loader   mapLoader
}

func entityInfo(attrs []string, fields map[string]introspect.FieldInfo) introspect.ModelInfo {
	return introspect.ModelInfo{Attrs: attrs, Fields: fields}
}

func fixtureSnapshot(libPath, basePath string, dir string) introspect.SnapshotData {
	deps := introspect.NewDepSet("library").Key()
	bookChain := func(parent *introspect.ChainEntry) []introspect.ChainEntry {
		chain := []introspect.ChainEntry{{
			Class: "fabric.modules.library.library.Book",
			Site:  &introspect.DefinitionSite{File: libPath, Line: 1},
		}}
		if parent != nil {
			chain = append(chain, *parent)
		}
		return chain
	}
	parentAt := func(line int) *introspect.ChainEntry {
		return &introspect.ChainEntry{
			Class: "fabric.modules.base.book.Book",
			Site:  &introspect.DefinitionSite{File: basePath, Line: line},
		}
	}
	session := introspect.SessionInfo{
		Models:  []string{"library.author", "library.book", "ui.view"},
		Wizards: []string{"library.checkout"},
	}
	// dep set opened by <data depends="base"> groups
	extended := introspect.NewDepSet("library", "base").Key()
	models := map[string]introspect.ModelInfo{
		introspect.ModelKey("library.author", introspect.KindModel): entityInfo(
			[]string{"name", "books", "save", "search", "browse"},
			map[string]introspect.FieldInfo{
				"name":  {Label: "Name", Type: "char"},
				"books": {Label: "Books", Type: "one2many", Relation: "library.book"},
			}),
		introspect.ModelKey("library.book", introspect.KindModel): entityInfo(
			[]string{"title", "author", "pages", "check", "validate",
				"get_price", "compute", "ghost", "on_change_with_title",
				"save", "search", "browse"},
			map[string]introspect.FieldInfo{
				"title":  {Label: "Title", Type: "char"},
				"author": {Label: "Author", Type: "many2one", Relation: "library.author"},
				"pages":  {Label: "Pages", Type: "integer"},
			}),
		introspect.ModelKey("ui.view", introspect.KindModel): entityInfo(
			[]string{"name", "model", "type"},
			map[string]introspect.FieldInfo{
				"name":  {Label: "Name", Type: "char"},
				"model": {Label: "Model", Type: "char"},
				"type":  {Label: "Type", Type: "char"},
			}),
		introspect.ModelKey("library.checkout", introspect.KindWizard): {
			Attrs:  []string{"start", "transition_checkout"},
			States: map[string]introspect.StateInfo{"start": {Relation: "library.book"}},
		},
	}
	return introspect.SnapshotData{
		Sessions: map[string]introspect.SessionInfo{
			deps:     session,
			extended: session,
		},
		Models: map[string]map[string]introspect.ModelInfo{
			deps:     models,
			extended: models,
		},
		Chains: map[string]map[string]map[string][]introspect.ChainEntry{
			deps: {
				introspect.ModelKey("library.book", introspect.KindModel): {
					"check":     bookChain(parentAt(2)),
					"validate":  bookChain(parentAt(6)),
					"get_price": bookChain(parentAt(9)),
					"compute":   bookChain(nil),
					"ghost": append(bookChain(nil), introspect.ChainEntry{
						Class:  "fabric.modules.base.book.Book",
						NoBody: true,
					}),
				},
			},
		},
		Completions: map[string]map[string]map[string]introspect.CompletionInfo{
			deps: {
				introspect.ModelKey("library.author", introspect.KindModel): {
					"name":  {Kind: "field", Label: "Name", ClassName: "Author"},
					"books": {Kind: "field", Label: "Books", ClassName: "Author"},
					"save":  {Kind: "method", Documentation: "Persist the record."},
				},
			},
		},
		Modules: map[string]introspect.ModuleInfo{
			"library": {Directory: dir, DataFiles: []string{"library.xml"}},
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "library")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		parsing.ManifestName: fixtureManifest,
		"__init__.py":        fixtureInit,
		"library.xml":        fixtureData,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	libPath := filepath.Join(dir, "library.py")
	basePath := filepath.Join(dir, "..", "base", "book.py")
	snap := introspect.NewSnapshot(fixtureSnapshot(libPath, basePath, dir))
	mgr := registry.NewManager(func() (introspect.Introspector, error) {
		return snap, nil
	}, logging.New(logging.Options{Level: logging.ErrorLevel}))
	t.Cleanup(mgr.Close)

	ix, err := mgr.Module("library")
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	return &fixture{
		dir:      dir,
		libPath:  libPath,
		basePath: basePath,
		mgr:      mgr,
		ix:       ix,
		loader:   mapLoader{basePath: fixtureParent},
	}
}

// analyze runs the source walker over src as the module's library.py.
func (fx *fixture) analyze(t *testing.T, src string) []diag.Diagnostic {
	t.Helper()
	return fx.analyzeRanges(t, src, nil)
}

func (fx *fixture) analyzeRanges(t *testing.T, src string, ranges []diag.Range) []diag.Diagnostic {
	t.Helper()
	f, err := parsing.Load(fx.libPath, []byte(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	diags, err := NewSource(f, fx.mgr, fx.ix, fx.loader).Analyze(ranges)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return diags
}

func codesOf(diags []diag.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = string(d.Code)
	}
	return out
}

func countCode(diags []diag.Diagnostic, code diag.Code) int {
	n := 0
	for _, d := range diags {
		if d.Code == code {
			n++
		}
	}
	return n
}

func findCode(t *testing.T, diags []diag.Diagnostic, code diag.Code) diag.Diagnostic {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			return d
		}
	}
	t.Fatalf("no %s diagnostic in %v", code, codesOf(diags))
	return diag.Diagnostic{}
}

func expectOnly(t *testing.T, diags []diag.Diagnostic, codes ...diag.Code) {
	t.Helper()
	if len(diags) != len(codes) {
		t.Fatalf("diagnostics = %v, want %v", codesOf(diags), codes)
	}
	for i, code := range codes {
		if diags[i].Code != code {
			t.Fatalf("diagnostics = %v, want %v", codesOf(diags), codes)
		}
	}
}

func expectNone(t *testing.T, diags []diag.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		msgs := make([]string, len(diags))
		for i, d := range diags {
			msgs[i] = d.String()
		}
		t.Fatalf("unexpected diagnostics:\n%s", strings.Join(msgs, "\n"))
	}
}
