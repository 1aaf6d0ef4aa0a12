package engine

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// emptyWasm is a valid module with no exports.
var emptyWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, // Magic number: \0asm
	0x01, 0x00, 0x00, 0x00, // Version: 1
}

const validManifest = `
name: echo
version: 1.0.0
host_version: 935.06
wasm:
  file: echo.wasm
  size: 4
capabilities:
  - eval
  - exec
author: hmbridge
license: MIT
`

// writePack writes manifest and, when wasm is non-nil, the guest file into
// dir on fsys.
func writePack(t *testing.T, fsys afero.Fs, dir, manifest string, wasm []byte) {
	t.Helper()
	if err := afero.WriteFile(fsys, filepath.Join(dir, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if wasm != nil {
		if err := afero.WriteFile(fsys, filepath.Join(dir, "echo.wasm"), wasm, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
