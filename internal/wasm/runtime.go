package wasm

import (
	"context"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Runtime owns the wazero runtime that hosts guest macro engines.
// One Runtime serves the whole process.
type Runtime struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache

	// Compiled guests keyed by source name.
	modules sync.Map // map[string]*CompiledModule

	// Live guest instances keyed by instance ID.
	instances sync.Map // map[string]*Instance

	config *RuntimeConfig
	logger *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limit per guest in 64KiB pages.
	MemoryPages uint32

	// Log every guest call at debug level.
	DebugEnabled bool

	// Directory for the persistent compilation cache. Empty keeps the cache
	// in memory.
	CacheDir string

	// Maximum number of live guest instances.
	MaxInstances int

	// Upper bound for a single guest call. Zero disables the limit.
	ExecutionTimeout time.Duration
}

// CompiledModule wraps a wazero.CompiledModule with metadata.
type CompiledModule struct {
	Module wazero.CompiledModule

	Name      string
	Source    string
	SizeBytes int64

	CompiledAt int64
}

// NewRuntime creates the wazero runtime. Guest calls abort when their context
// is done.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	var (
		cache wazero.CompilationCache
		err   error
	)
	if config.CacheDir != "" {
		cache, err = wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, err
		}
	} else {
		cache = wazero.NewCompilationCache()
	}

	rc := wazero.NewRuntimeConfig().
		WithCompilationCache(cache).
		WithCloseOnContextDone(true)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}

	runtime := &Runtime{
		runtime: wazero.NewRuntimeWithConfig(ctx, rc),
		cache:   cache,
		config:  config,
		logger:  logger.With(zap.String("component", "wasm-runtime")),
		closed:  make(chan struct{}),
	}

	runtime.logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
		zap.Duration("execution_timeout", config.ExecutionTimeout),
	)

	return runtime, nil
}

// DefaultRuntimeConfig returns sensible defaults.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:      256, // 16MB
		DebugEnabled:     false,
		CacheDir:         "",
		MaxInstances:     16,
		ExecutionTimeout: 30 * time.Second,
	}
}

// Config returns the runtime configuration.
func (r *Runtime) Config() *RuntimeConfig {
	return r.config
}

// Close closes every live instance, then the runtime and its cache.
// Safe to call multiple times.
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down Wasm runtime")

		r.instances.Range(func(key, value any) bool {
			if inst, ok := value.(*Instance); ok && inst.module != nil {
				if closeErr := inst.module.Close(ctx); closeErr != nil {
					r.logger.Warn("Failed to close instance",
						zap.String("instance_id", key.(string)),
						zap.Error(closeErr),
					)
				}
			}
			r.instances.Delete(key)
			return true
		})

		err = multierr.Append(r.runtime.Close(ctx), r.cache.Close(ctx))

		close(r.closed)
		r.logger.Info("Wasm runtime shutdown complete")
	})

	return err
}

// GetCompiledModule retrieves a compiled module from cache.
func (r *Runtime) GetCompiledModule(name string) (*CompiledModule, bool) {
	if val, ok := r.modules.Load(name); ok {
		if mod, ok := val.(*CompiledModule); ok {
			return mod, true
		}
	}
	return nil, false
}

// StoreCompiledModule stores a compiled module in cache.
func (r *Runtime) StoreCompiledModule(module *CompiledModule) {
	r.modules.Store(module.Name, module)
}

// GetInstance retrieves a live instance.
func (r *Runtime) GetInstance(instanceID string) (*Instance, bool) {
	if val, ok := r.instances.Load(instanceID); ok {
		inst, ok := val.(*Instance)
		return inst, ok
	}
	return nil, false
}

// StoreInstance tracks a live instance.
func (r *Runtime) StoreInstance(inst *Instance) {
	r.instances.Store(inst.ID, inst)
}

// DeleteInstance stops tracking an instance.
func (r *Runtime) DeleteInstance(instanceID string) {
	r.instances.Delete(instanceID)
}

// InstanceCount returns the number of live instances.
func (r *Runtime) InstanceCount() int {
	n := 0
	r.instances.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// IsClosed returns whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
