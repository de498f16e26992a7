package appconfig

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FileBackend persists the current snapshot as a YAML file. Suited to
// single-node deployments where admins edit config by hand.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend writing to path. The file need not exist
// yet; Load returns nil until the first Save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load implements Backend.
func (f *FileBackend) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "appconfig: read %s", f.path)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(err, "appconfig: parse %s", f.path)
	}
	return &snap, nil
}

// Save implements Backend. The file is written atomically via rename.
func (f *FileBackend) Save(_ context.Context, snap *Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "appconfig: marshal snapshot")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "appconfig: write %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return eris.Wrapf(err, "appconfig: rename %s", f.path)
	}
	return nil
}

// Close implements Backend.
func (f *FileBackend) Close() error { return nil }
