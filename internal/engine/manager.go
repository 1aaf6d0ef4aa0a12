package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/config"
	"github.com/woxQAQ/hmbridge/internal/wasm"
)

// Manager discovers engine packs and turns them into running engines.
type Manager struct {
	paths       []string
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	fs          afero.Fs
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a manager over the configured engine paths.
func NewManager(
	cfg *config.Config,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctions,
	fsys afero.Fs,
	logger *zap.Logger,
) *Manager {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Manager{
		paths:       cfg.EnginePaths,
		runtime:     runtime,
		loader:      NewLoader(runtime, fsys, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, hostFuncs, logger),
		fs:          fsys,
		logger:      logger.With(zap.String("component", "engine-manager")),
	}
}

// LoadAll discovers and registers every pack. Finding none is not an error;
// packs that fail to load are logged and skipped.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("engine packs already loaded")
	}

	m.logger.Info("Loading engine packs", zap.Strings("paths", m.paths))

	packs, err := m.loader.Discover(ctx, m.paths)
	if err != nil {
		var none *NoPacksFoundError
		if errors.As(err, &none) {
			m.logger.Warn("No engine packs found in configured paths",
				zap.Strings("paths", m.paths),
				zap.Error(err),
			)
			m.loaded = true
			return nil
		}
		if packs == nil {
			return err
		}
		m.logger.Warn("Continuing with the packs that loaded", zap.Error(err))
	}

	for _, pack := range packs {
		if err := m.registry.Register(pack); err != nil {
			m.logger.Error("Failed to register engine pack",
				zap.String("name", pack.Name()),
				zap.Error(err),
			)
		}
	}

	m.loaded = true
	m.logger.Info("Engine packs loaded", zap.Int("count", m.registry.Count()))

	return nil
}

// GetPack retrieves a pack by name.
func (m *Manager) GetPack(name string) (*Pack, error) {
	pack, ok := m.registry.Get(name)
	if !ok {
		return nil, &PackNotFoundError{PackName: name}
	}
	return pack, nil
}

// FindPackWithCapability returns the first pack declaring capability.
func (m *Manager) FindPackWithCapability(capability string) (*Pack, error) {
	packs := m.registry.LookupByCapability(capability)
	if len(packs) == 0 {
		return nil, fmt.Errorf("no engine pack provides '%s'", capability)
	}
	return packs[0], nil
}

// Engine instantiates a pack's guest as a macro engine reporting the pack's
// host version. Macro files are read from the manager's filesystem.
func (m *Manager) Engine(ctx context.Context, name string) (*wasm.Engine, error) {
	pack, err := m.GetPack(name)
	if err != nil {
		return nil, err
	}

	instance, err := m.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{ModuleName: pack.Compiled.Name})
	if err != nil {
		return nil, err
	}

	return wasm.NewEngine(instance, wasm.EngineConfig{
		Version: pack.HostVersion(),
		Fs:      m.fs,
	}, m.logger), nil
}

// Shutdown closes the runtime and every engine created from it.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down engine manager")

	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("Engine manager shutdown complete")
	return nil
}

// Registry returns the pack registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded reports whether LoadAll has run.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
