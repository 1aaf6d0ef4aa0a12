// Package bridge marshals values between managed code and the host editor's
// macro engine. It reads and writes macro variables through the mailbox
// component, calls macro statements and functions with temporary argument
// variables, and asks the engine to run registered methods in a fresh
// execution scope.
//
// The bridge assumes a single synchronous caller. Nothing here waits, queues
// or retries.
package bridge

import (
	"context"
	"math/rand/v2"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/internal/mailbox"
)

// Host is the macro engine the bridge drives.
type Host interface {
	// Version returns the host version, e.g. 935.06.
	Version() float64
	// IsExecuting reports whether a macro is currently running.
	IsExecuting() bool
	// EvalMacro runs text inside the running macro. Zero means failure.
	EvalMacro(ctx context.Context, text string) (int, error)
	// ExecMacro runs text as a new top-level macro.
	ExecMacro(ctx context.Context, text string) (int, string, error)
	// ExecMacroFile runs a macro file as a new top-level macro.
	ExecMacroFile(ctx context.Context, path string) (int, string, error)
}

// StaticVariables is implemented by hosts that keep process-shared macro
// variables.
type StaticVariables interface {
	StaticVariable(ctx context.Context, name string, shared bool) (string, error)
	SetStaticVariable(ctx context.Context, name, value string, shared bool) error
}

// Config holds what the bridge needs to address its own component from macro
// text.
type Config struct {
	ComponentPath  string
	ComponentClass string
	Width          macro.Width
	Fs             afero.Fs
	Rand           *rand.Rand
}

// Bridge is the managed side of the macro boundary.
type Bridge struct {
	host      Host
	component *mailbox.Component
	coercer   *macro.Coercer
	fs        afero.Fs
	path      string
	class     string
	names     *namer
	logger    *zap.Logger
}

// New creates a bridge over host. The component must be the object the host
// instantiates for createobject(cfg.ComponentPath, cfg.ComponentClass).
func New(host Host, component *mailbox.Component, cfg Config, logger *zap.Logger) *Bridge {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	return &Bridge{
		host:      host,
		component: component,
		coercer:   macro.NewCoercer(cfg.Width),
		fs:        cfg.Fs,
		path:      cfg.ComponentPath,
		class:     cfg.ComponentClass,
		names:     newNamer(cfg.Rand),
		logger:    logger.With(zap.String("component", "bridge")),
	}
}

// Host returns the driven macro engine.
func (b *Bridge) Host() Host {
	return b.host
}

// Module returns the module path remote methods must be declared in.
func (b *Bridge) Module() string {
	return b.component.Registry().Module()
}

// Width returns the active native integer width.
func (b *Bridge) Width() macro.Width {
	return b.coercer.Width()
}

// Coercer returns the coercer for the active width.
func (b *Bridge) Coercer() *macro.Coercer {
	return b.coercer
}

// Register makes a method invocable through InvokeRemote.
func (b *Bridge) Register(m *mailbox.Method) error {
	return b.component.Registry().Register(m)
}

func (b *Bridge) slot() *mailbox.Slot {
	return b.component.Slot()
}
