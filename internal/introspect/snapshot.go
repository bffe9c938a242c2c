package introspect

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"relint/internal/relerr"
)

// SnapshotData is the precomputed schema document backing a Snapshot.
// Top-level maps are keyed by dependency-set key (sorted names joined
// with commas); model maps by "<kind>:<name>"; chain maps additionally
// by method name.
type SnapshotData struct {
	Sessions    map[string]SessionInfo                          `yaml:"sessions"`
	Models      map[string]map[string]ModelInfo                 `yaml:"models"`
	Chains      map[string]map[string]map[string][]ChainEntry   `yaml:"chains"`
	Completions map[string]map[string]map[string]CompletionInfo `yaml:"completions"`
	Modules     map[string]ModuleInfo                           `yaml:"modules"`
}

// ModelKey builds the model lookup key used inside a snapshot.
func ModelKey(name string, kind Kind) string {
	return fmt.Sprintf("%s:%s", kind, name)
}

// Snapshot is an Introspector backed by a precomputed schema document
// instead of a live worker. It serves CI and offline runs, where spawning
// the framework is impossible; it never crashes and never respawns.
type Snapshot struct {
	data SnapshotData
}

// NewSnapshot wraps an in-memory schema document.
func NewSnapshot(data SnapshotData) *Snapshot {
	return &Snapshot{data: data}
}

// LoadSnapshot reads a YAML snapshot from disk. Files ending in .zst are
// transparently decompressed.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, relerr.Wrap(relerr.SnapshotInvalid, "opening schema snapshot", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, relerr.Wrap(relerr.SnapshotInvalid, "decompressing schema snapshot", err)
		}
		defer zr.Close()
		r = zr
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, relerr.Wrap(relerr.SnapshotInvalid, "reading schema snapshot", err)
	}
	var data SnapshotData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, relerr.Wrap(relerr.SnapshotInvalid, "parsing schema snapshot", err)
	}
	return NewSnapshot(data), nil
}

// InitSession implements Introspector.
func (s *Snapshot) InitSession(deps DepSet) (SessionInfo, error) {
	info, ok := s.data.Sessions[deps.Key()]
	if !ok {
		return SessionInfo{}, relerr.Newf(relerr.SnapshotInvalid,
			"snapshot has no session for dependency set %q", deps.Key())
	}
	return info, nil
}

// FetchModel implements Introspector.
func (s *Snapshot) FetchModel(deps DepSet, name string, kind Kind) (ModelInfo, error) {
	info, ok := s.data.Models[deps.Key()][ModelKey(name, kind)]
	if !ok {
		return ModelInfo{}, relerr.Newf(relerr.UnknownModel,
			"snapshot has no %s %q for dependency set %q", kind, name, deps.Key())
	}
	return info, nil
}

// FetchOverrideChain implements Introspector.
func (s *Snapshot) FetchOverrideChain(deps DepSet, kind Kind, name, method string) ([]ChainEntry, error) {
	return s.data.Chains[deps.Key()][ModelKey(name, kind)][method], nil
}

// FetchCompletions implements Introspector.
func (s *Snapshot) FetchCompletions(deps DepSet, name string, kind Kind) (map[string]CompletionInfo, error) {
	return s.data.Completions[deps.Key()][ModelKey(name, kind)], nil
}

// FetchModuleInfo implements Introspector.
func (s *Snapshot) FetchModuleInfo(module string) (ModuleInfo, error) {
	info, ok := s.data.Modules[module]
	if !ok {
		return ModuleInfo{}, relerr.Newf(relerr.ModuleNotFound,
			"snapshot has no module %q", module)
	}
	return info, nil
}

// Alive implements Introspector; a snapshot never dies.
func (s *Snapshot) Alive() bool { return true }

// Close implements Introspector.
func (s *Snapshot) Close() error { return nil }
