// Package app assembles a bridge from configuration: the mailbox component,
// the method registry, and either the in-process engine or a wasm engine
// pack.
package app

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/bridge"
	"github.com/woxQAQ/hmbridge/internal/config"
	"github.com/woxQAQ/hmbridge/internal/engine"
	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/internal/mailbox"
	"github.com/woxQAQ/hmbridge/internal/sim"
	"github.com/woxQAQ/hmbridge/internal/wasm"
)

// BuiltinType is the type name of the methods every App registers.
const BuiltinType = "HmBridge.Builtins"

// Variables written by the Remember builtin.
const (
	RememberedText = "$hmbridge_remembered"
	RememberedInt  = "#hmbridge_remembered"
)

// App owns one bridge and the engine behind it.
type App struct {
	cfg       *config.Config
	bridge    *bridge.Bridge
	component *mailbox.Component
	sim       *sim.Engine
	engines   *engine.Manager
	logger    *zap.Logger
}

// New builds an App. With cfg.Engine set to config.EngineSim the bridge drives
// the in-process engine; any other name selects an engine pack discovered
// under cfg.EnginePaths.
func New(ctx context.Context, cfg *config.Config, fsys afero.Fs, logger *zap.Logger) (*App, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	registry := mailbox.NewRegistry(cfg.ModulePath, logger)
	component := mailbox.NewComponent(mailbox.NewSlot(), registry, macro.NewCoercer(cfg.Width()), logger)

	a := &App{
		cfg:       cfg,
		component: component,
		logger:    logger.With(zap.String("component", "app")),
	}

	var host bridge.Host
	if cfg.Engine == config.EngineSim {
		a.sim = sim.New(sim.Options{
			Version: cfg.HostVersion,
			Width:   cfg.Width(),
			Fs:      fsys,
		}, logger)
		a.sim.RegisterObject(cfg.Component.Path, cfg.Component.Class, component)
		host = a.sim
	} else {
		guest, err := a.startPack(ctx, fsys, logger)
		if err != nil {
			return nil, err
		}
		host = guest
	}

	a.bridge = bridge.New(host, component, bridge.Config{
		ComponentPath:  cfg.Component.Path,
		ComponentClass: cfg.Component.Class,
		Width:          cfg.Width(),
		Fs:             fsys,
	}, logger)

	if err := a.registerBuiltins(); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.logger.Info("Bridge ready",
		zap.String("engine", cfg.Engine),
		zap.Float64("host_version", host.Version()),
		zap.Int("width", int(cfg.Width())),
		zap.String("module", cfg.ModulePath),
	)
	return a, nil
}

func (a *App) startPack(ctx context.Context, fsys afero.Fs, logger *zap.Logger) (*wasm.Engine, error) {
	runtime, err := wasm.NewRuntime(ctx, logger, &wasm.RuntimeConfig{
		MemoryPages:      a.cfg.Wasm.MemoryPages,
		DebugEnabled:     a.cfg.Wasm.Debug,
		CacheDir:         a.cfg.Wasm.CacheDir,
		MaxInstances:     a.cfg.Wasm.MaxInstances,
		ExecutionTimeout: a.cfg.Wasm.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	a.engines = engine.NewManager(a.cfg, runtime, wasm.NewHostFunctions(a.component, logger), fsys, logger)
	if err := a.engines.LoadAll(ctx); err != nil {
		_ = a.engines.Shutdown(ctx)
		return nil, err
	}

	pack, err := a.engines.GetPack(a.cfg.Engine)
	if err != nil {
		_ = a.engines.Shutdown(ctx)
		return nil, err
	}
	for _, c := range []string{engine.CapabilityEval, engine.CapabilityExec} {
		if !pack.Has(c) {
			_ = a.engines.Shutdown(ctx)
			return nil, fmt.Errorf("engine pack '%s' lacks capability '%s'", pack.Name(), c)
		}
	}

	guest, err := a.engines.Engine(ctx, pack.Name())
	if err != nil {
		_ = a.engines.Shutdown(ctx)
		return nil, fmt.Errorf("failed to start engine pack '%s': %w", pack.Name(), err)
	}
	return guest, nil
}

// registerBuiltins adds the methods macro text can always reach:
// Log(text), and Remember overloaded on text and integer payloads.
func (a *App) registerBuiltins() error {
	methods := []*mailbox.Method{
		{
			Name:  "Log",
			Param: macro.KindText,
			Handler: func(_ context.Context, arg macro.Value) error {
				a.logger.Info("Macro message", zap.String("text", arg.String()))
				return nil
			},
		},
		{
			Name:  "Remember",
			Param: macro.KindText,
			Handler: func(ctx context.Context, arg macro.Value) error {
				return a.bridge.SetVar(ctx, RememberedText, arg.String())
			},
		},
		{
			Name:  "Remember",
			Param: macro.KindInteger,
			Handler: func(ctx context.Context, arg macro.Value) error {
				return a.bridge.SetVar(ctx, RememberedInt, arg.Int())
			},
		},
	}

	for _, m := range methods {
		m.Module = a.cfg.ModulePath
		m.Type = BuiltinType
		m.Public = true
		m.Static = true
		if err := a.bridge.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Bridge returns the assembled bridge.
func (a *App) Bridge() *bridge.Bridge {
	return a.bridge
}

// Sim returns the in-process engine, or nil when a pack drives the bridge.
func (a *App) Sim() *sim.Engine {
	return a.sim
}

// Ref returns the declaration of a public static method in the App's module.
func (a *App) Ref(typeName, method string) mailbox.MethodRef {
	return mailbox.MethodRef{
		Module: a.cfg.ModulePath,
		Type:   typeName,
		Name:   method,
		Public: true,
		Static: true,
	}
}

// Close shuts down the engine runtime, if any.
func (a *App) Close(ctx context.Context) error {
	if a.engines == nil {
		return nil
	}
	return a.engines.Shutdown(ctx)
}
