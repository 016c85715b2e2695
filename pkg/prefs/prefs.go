// Package prefs loads and saves the user's preferences as YAML.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PhantomInTheWire/imagemap/pkg/resample"
	"gopkg.in/yaml.v3"
)

// Preferences are read at startup and written back after a command
// completes.
type Preferences struct {
	LastOpenDir     string `yaml:"last_open_dir"`
	LastExportDir   string `yaml:"last_export_dir"`
	Interpolation   int    `yaml:"interpolation"`
	ApplyAll        bool   `yaml:"apply_all"`
	AttachContainer bool   `yaml:"attach_container"`
}

// DefaultPath returns $UserConfigDir/imagemap/preferences.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "imagemap", "preferences.yaml"), nil
}

// Load reads preferences from path. A missing file yields defaults.
func Load(path string) (Preferences, error) {
	var p Preferences
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if !p.InterpolationMode().Valid() {
		p.Interpolation = int(resample.Auto)
	}
	return p, nil
}

// Save writes preferences to path, creating its directory.
func Save(path string, p Preferences) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (p Preferences) InterpolationMode() resample.Interpolation {
	return resample.Interpolation(p.Interpolation)
}
