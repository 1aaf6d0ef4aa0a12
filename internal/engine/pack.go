package engine

import (
	"slices"
	"time"

	"github.com/woxQAQ/hmbridge/internal/wasm"
)

// Pack is a loaded engine pack: its manifest and compiled guest.
type Pack struct {
	Manifest *Manifest
	Compiled *wasm.CompiledModule
	LoadedAt time.Time
}

func (p *Pack) Name() string {
	return p.Manifest.Name
}

func (p *Pack) Version() string {
	return p.Manifest.Version
}

// HostVersion is the editor version the guest emulates.
func (p *Pack) HostVersion() float64 {
	return p.Manifest.HostVersion
}

func (p *Pack) Capabilities() []string {
	return p.Manifest.Capabilities
}

// Has reports whether the pack declares capability.
func (p *Pack) Has(capability string) bool {
	return slices.Contains(p.Manifest.Capabilities, capability)
}
