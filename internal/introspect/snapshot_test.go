package introspect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"relint/internal/relerr"
)

func testSnapshotData() SnapshotData {
	deps := NewDepSet("library").Key()
	return SnapshotData{
		Sessions: map[string]SessionInfo{
			deps: {Models: []string{"library.book"}, Wizards: []string{"library.checkout"}},
		},
		Models: map[string]map[string]ModelInfo{
			deps: {
				ModelKey("library.book", KindModel): {
					Attrs: []string{"title", "author"},
					Fields: map[string]FieldInfo{
						"title":  {Label: "Title", Type: "char"},
						"author": {Label: "Author", Type: "many2one", Relation: "library.author"},
					},
				},
			},
		},
		Chains: map[string]map[string]map[string][]ChainEntry{
			deps: {
				ModelKey("library.book", KindModel): {
					"get_price": {{Class: "fabric.modules.library.library.Book"}},
				},
			},
		},
		Modules: map[string]ModuleInfo{
			"library": {Directory: "/tmp/library", DataFiles: []string{"library.xml"}},
		},
	}
}

func TestSnapshotServesSessions(t *testing.T) {
	snap := NewSnapshot(testSnapshotData())
	deps := NewDepSet("library")

	info, err := snap.InitSession(deps)
	if err != nil {
		t.Fatalf("InitSession: %v", err)
	}
	if len(info.Models) != 1 || info.Models[0] != "library.book" {
		t.Errorf("Models = %v, want [library.book]", info.Models)
	}

	if _, err := snap.InitSession(NewDepSet("unknown")); !relerr.HasCode(err, relerr.SnapshotInvalid) {
		t.Errorf("missing session error = %v, want SNAPSHOT_INVALID", err)
	}
}

func TestSnapshotServesModels(t *testing.T) {
	snap := NewSnapshot(testSnapshotData())
	deps := NewDepSet("library")

	model, err := snap.FetchModel(deps, "library.book", KindModel)
	if err != nil {
		t.Fatalf("FetchModel: %v", err)
	}
	if model.Fields["author"].Relation != "library.author" {
		t.Errorf("author relation = %q, want library.author", model.Fields["author"].Relation)
	}

	if _, err := snap.FetchModel(deps, "library.missing", KindModel); !relerr.HasCode(err, relerr.UnknownModel) {
		t.Errorf("missing model error = %v, want UNKNOWN_MODEL", err)
	}
	// kind is part of the key
	if _, err := snap.FetchModel(deps, "library.book", KindWizard); !relerr.HasCode(err, relerr.UnknownModel) {
		t.Errorf("wrong-kind error = %v, want UNKNOWN_MODEL", err)
	}
}

func TestSnapshotServesChainsAndModules(t *testing.T) {
	snap := NewSnapshot(testSnapshotData())
	deps := NewDepSet("library")

	chain, err := snap.FetchOverrideChain(deps, KindModel, "library.book", "get_price")
	if err != nil {
		t.Fatalf("FetchOverrideChain: %v", err)
	}
	if len(chain) != 1 || chain[0].Class != "fabric.modules.library.library.Book" {
		t.Errorf("chain = %+v", chain)
	}
	// unknown methods yield an empty chain, not an error
	if chain, err := snap.FetchOverrideChain(deps, KindModel, "library.book", "missing"); err != nil || chain != nil {
		t.Errorf("unknown method chain = %v, %v", chain, err)
	}

	if _, err := snap.FetchModuleInfo("missing"); !relerr.HasCode(err, relerr.ModuleNotFound) {
		t.Errorf("missing module error = %v, want MODULE_NOT_FOUND", err)
	}
	if !snap.Alive() {
		t.Error("snapshot must always be alive")
	}
}

func TestLoadSnapshotFromYAML(t *testing.T) {
	raw, err := yaml.Marshal(testSnapshotData())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if _, err := snap.InitSession(NewDepSet("library")); err != nil {
		t.Errorf("InitSession after load: %v", err)
	}
}

func TestLoadSnapshotZstd(t *testing.T) {
	raw, err := yaml.Marshal(testSnapshotData())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "schema.yaml.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if _, err := snap.FetchModuleInfo("library"); err != nil {
		t.Errorf("FetchModuleInfo after compressed load: %v", err)
	}
}

func TestLoadSnapshotErrors(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.yaml")); !relerr.HasCode(err, relerr.SnapshotInvalid) {
		t.Errorf("missing file error = %v, want SNAPSHOT_INVALID", err)
	}
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSnapshot(path); !relerr.HasCode(err, relerr.SnapshotInvalid) {
		t.Errorf("malformed file error = %v, want SNAPSHOT_INVALID", err)
	}
}
