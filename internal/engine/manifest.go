package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name inside a pack directory.
const ManifestFile = "manifest.yaml"

// Capabilities a pack may declare.
const (
	CapabilityEval            = "eval"
	CapabilityExec            = "exec"
	CapabilityStaticVariables = "static_variables"
	CapabilityEdit            = "edit"
)

var validCapabilities = []string{
	CapabilityEval,
	CapabilityExec,
	CapabilityStaticVariables,
	CapabilityEdit,
}

// Manifest is the manifest.yaml of an engine pack.
type Manifest struct {
	Name         string     `yaml:"name"`
	Version      string     `yaml:"version"`
	HostVersion  float64    `yaml:"host_version"`
	Wasm         WasmConfig `yaml:"wasm"`
	Capabilities []string   `yaml:"capabilities"`
	Author       string     `yaml:"author"`
	License      string     `yaml:"license"`

	dir string
}

// WasmConfig locates the guest module.
type WasmConfig struct {
	File string `yaml:"file"`
	Size int    `yaml:"size"` // KB, upper bound when set
}

// ParseManifest reads and validates dir/manifest.yaml.
func ParseManifest(fsys afero.Fs, dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := afero.ReadFile(fsys, manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(fsys); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields and that the guest file exists.
func (m *Manifest) Validate(fsys afero.Fs) error {
	if m.Name == "" {
		return m.invalid("name", "name is required")
	}
	if m.Name == "sim" {
		return m.invalid("name", "name 'sim' is reserved for the in-process engine")
	}
	if m.Version == "" {
		return m.invalid("version", "version is required")
	}
	if m.HostVersion <= 0 {
		return m.invalid("host_version", "host_version must be positive")
	}
	if m.Wasm.File == "" {
		return m.invalid("wasm.file", "wasm.file is required")
	}
	if m.Wasm.Size < 0 {
		return m.invalid("wasm.size", "wasm.size must not be negative")
	}

	if len(m.Capabilities) == 0 {
		return m.invalid("capabilities", "at least one capability is required")
	}
	for _, c := range m.Capabilities {
		if !slices.Contains(validCapabilities, c) {
			return m.invalid("capabilities", fmt.Sprintf("unknown capability: %s (must be one of: %s)",
				c, strings.Join(validCapabilities, ", ")))
		}
	}

	info, err := fsys.Stat(m.WasmPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &WasmNotFoundError{
				ManifestPath: m.Path(),
				WasmFile:     m.Wasm.File,
			}
		}
		return err
	}
	if m.Wasm.Size > 0 && info.Size() > int64(m.Wasm.Size)*1024 {
		return m.invalid("wasm.size", fmt.Sprintf("%s is %d bytes, larger than the declared %d KB",
			m.Wasm.File, info.Size(), m.Wasm.Size))
	}

	return nil
}

func (m *Manifest) invalid(field, message string) error {
	return &ManifestValidationError{Path: m.Path(), Field: field, Message: message}
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// WasmPath returns the path of the guest module.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
