package engine

import (
	"fmt"
)

// ManifestNotFoundError occurs when manifest.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when manifest.yaml is not valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when a manifest field is missing or invalid.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when the guest referenced by a manifest is missing.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found (referenced in manifest '%s')",
		e.WasmFile, e.ManifestPath)
}

// PackLoadError occurs when a pack's guest cannot be compiled.
type PackLoadError struct {
	PackName string
	Err      error
}

func (e *PackLoadError) Error() string {
	return fmt.Sprintf("failed to load engine pack '%s': %v", e.PackName, e.Err)
}

func (e *PackLoadError) Unwrap() error {
	return e.Err
}

// PackNotFoundError occurs when no registered pack has the requested name.
type PackNotFoundError struct {
	PackName string
}

func (e *PackNotFoundError) Error() string {
	return fmt.Sprintf("engine pack '%s' not found", e.PackName)
}

// PackAlreadyRegisteredError occurs when two packs share a name.
type PackAlreadyRegisteredError struct {
	PackName string
}

func (e *PackAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("engine pack '%s' is already registered", e.PackName)
}

// NoPacksFoundError occurs when discovery finds no loadable pack.
type NoPacksFoundError struct {
	Paths []string
}

func (e *NoPacksFoundError) Error() string {
	return fmt.Sprintf("no engine packs found in paths: %v", e.Paths)
}
