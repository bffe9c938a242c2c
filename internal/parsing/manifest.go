package parsing

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file marking a framework module root.
const ManifestName = "fabric.toml"

// Manifest is a module's fabric.toml: its name, the modules it depends on
// and the declarative-data files it ships.
type Manifest struct {
	Name    string   `toml:"name"`
	Depends []string `toml:"depends"`
	Data    []string `toml:"data"`
}

// LoadManifest reads the manifest of a module directory.
func LoadManifest(dir string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(filepath.Join(dir, ManifestName), &m); err != nil {
		return nil, err
	}
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	return &m, nil
}

// RegistersData reports whether the manifest lists the given declarative-data
// file name.
func (m *Manifest) RegistersData(filename string) bool {
	for _, f := range m.Data {
		if f == filename {
			return true
		}
	}
	return false
}

// FindModuleRoot walks up from path looking for a directory carrying a
// module manifest. It returns the directory and its manifest, or ok=false
// when the file does not belong to a module.
func FindModuleRoot(path string) (string, *Manifest, bool) {
	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(filepath.Join(dir, ManifestName)); err == nil {
			m, err := LoadManifest(dir)
			if err != nil {
				return "", nil, false
			}
			return dir, m, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, false
		}
		dir = parent
	}
}
