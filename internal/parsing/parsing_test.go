package parsing

import (
	"os"
	"path/filepath"
	"testing"

	"relint/internal/relerr"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testModuleDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "library")
	writeFile(t, filepath.Join(dir, ManifestName),
		"name = \"library\"\ndepends = [\"base\"]\ndata = [\"library.xml\"]\n")
	return dir
}

func TestKindFromPath(t *testing.T) {
	cases := []struct {
		path string
		kind FileKind
		ok   bool
	}{
		{"library/book.py", KindSource, true},
		{"library/library.xml", KindData, true},
		{"library/view/book_form.xml", KindView, true},
		{"library/fabric.toml", 0, false},
		{"library/README.md", 0, false},
	}
	for _, tc := range cases {
		kind, ok := KindFromPath(tc.path)
		if ok != tc.ok || (ok && kind != tc.kind) {
			t.Errorf("KindFromPath(%q) = %v, %v; want %v, %v", tc.path, kind, ok, tc.kind, tc.ok)
		}
	}
}

func TestLoadManifest(t *testing.T) {
	dir := testModuleDir(t)
	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Name != "library" {
		t.Errorf("Name = %q, want library", m.Name)
	}
	if !m.RegistersData("library.xml") {
		t.Error("library.xml should be registered")
	}
	if m.RegistersData("other.xml") {
		t.Error("other.xml should not be registered")
	}
}

func TestLoadManifestNameDefaultsToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sale")
	writeFile(t, filepath.Join(dir, ManifestName), "data = []\n")
	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Name != "sale" {
		t.Errorf("Name = %q, want sale", m.Name)
	}
}

func TestFindModuleRoot(t *testing.T) {
	dir := testModuleDir(t)
	path := filepath.Join(dir, "view", "book_form.xml")
	writeFile(t, path, "<form/>")

	root, m, ok := FindModuleRoot(path)
	if !ok {
		t.Fatal("FindModuleRoot should find the manifest")
	}
	if root != dir || m.Name != "library" {
		t.Errorf("root = %q module = %q, want %q library", root, m.Name, dir)
	}

	if _, _, ok := FindModuleRoot(filepath.Join(t.TempDir(), "loose.py")); ok {
		t.Error("a file outside any module must not resolve")
	}
}

func TestLoadSourceFile(t *testing.T) {
	dir := testModuleDir(t)
	path := filepath.Join(dir, "book.py")
	writeFile(t, path, "class Book:\n    __name__ = \"library.book\"\n")

	f, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Kind != KindSource {
		t.Errorf("Kind = %v, want KindSource", f.Kind)
	}
	if f.ModuleName != "library" {
		t.Errorf("ModuleName = %q, want library", f.ModuleName)
	}
	if f.ImportPath != "fabric.modules.library.book" {
		t.Errorf("ImportPath = %q, want fabric.modules.library.book", f.ImportPath)
	}
	if f.Root() == nil {
		t.Fatal("source file must carry a syntax tree")
	}
	if f.Stem() != "book" {
		t.Errorf("Stem = %q, want book", f.Stem())
	}
	if len(f.Lines) != 3 {
		t.Errorf("Lines = %d, want 3", len(f.Lines))
	}
}

func TestLoadUnsavedBuffer(t *testing.T) {
	dir := testModuleDir(t)
	path := filepath.Join(dir, "book.py")
	writeFile(t, path, "stale = True\n")

	f, err := Load(path, []byte("fresh = True\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(f.Data) != "fresh = True\n" {
		t.Errorf("Data = %q, want the in-memory buffer", f.Data)
	}
}

func TestLoadSyntaxErrorFails(t *testing.T) {
	dir := testModuleDir(t)
	path := filepath.Join(dir, "broken.py")
	writeFile(t, path, "def broken(:\n")

	if _, err := Load(path, nil); !relerr.HasCode(err, relerr.ParseFailed) {
		t.Errorf("syntax error = %v, want PARSE_FAILED", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.py"), nil); !relerr.HasCode(err, relerr.ParseFailed) {
		t.Errorf("missing file error should be PARSE_FAILED, got %v", err)
	}
}

func TestStringLiteral(t *testing.T) {
	source := "a = \"library.book\"\nb = 'single'\nc = r'raw'\n"
	f, err := Load(filepath.Join(testModuleDir(t), "s.py"), []byte(source))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	root := f.Root()
	want := []string{"library.book", "single", "raw"}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		assign := root.NamedChild(i).NamedChild(0)
		value := assign.ChildByFieldName("right")
		if got := StringLiteral(value, f.Data); got != want[i] {
			t.Errorf("literal %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestLineIndex(t *testing.T) {
	ix := NewLineIndex([]byte("one\ntwo\nthree\n"))
	cases := []struct {
		offset int64
		line   int
	}{
		{0, 1}, {3, 1}, {4, 2}, {7, 2}, {8, 3}, {13, 3}, {14, 4},
	}
	for _, tc := range cases {
		if got := ix.LineAt(tc.offset); got != tc.line {
			t.Errorf("LineAt(%d) = %d, want %d", tc.offset, got, tc.line)
		}
	}
}
