package wasm

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// ModuleLoader compiles guest engines and caches them on the runtime by name.
type ModuleLoader struct {
	runtime *Runtime
	fs      afero.Fs
	logger  *zap.Logger
}

// NewModuleLoader creates a loader reading guest files from fs.
func NewModuleLoader(runtime *Runtime, fs afero.Fs, logger *zap.Logger) *ModuleLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ModuleLoader{
		runtime: runtime,
		fs:      fs,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// LoadModuleFromFile compiles the guest at path, cached under the path.
func (l *ModuleLoader) LoadModuleFromFile(ctx context.Context, path string) (*CompiledModule, error) {
	if cached, ok := l.runtime.GetCompiledModule(path); ok {
		return cached, nil
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest %s: %w", path, err)
	}
	return l.compile(ctx, path, path, data)
}

// LoadModuleFromMemory compiles guest bytes cached under name.
func (l *ModuleLoader) LoadModuleFromMemory(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	if cached, ok := l.runtime.GetCompiledModule(name); ok {
		return cached, nil
	}
	return l.compile(ctx, name, "memory", data)
}

// compile rejects guests importing anything beyond the host module and WASI.
func (l *ModuleLoader) compile(ctx context.Context, name, source string, data []byte) (*CompiledModule, error) {
	start := time.Now()

	compiled, err := l.runtime.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, &CompilationError{ModuleName: name, Err: err}
	}

	for _, fn := range compiled.ImportedFunctions() {
		module, fnName, _ := fn.Import()
		if module != protocol.HostModule && module != wasi_snapshot_preview1.ModuleName {
			_ = compiled.Close(ctx)
			return nil, &CompilationError{ModuleName: name, Err: &ImportError{Module: module, Name: fnName}}
		}
	}

	cm := &CompiledModule{
		Module:     compiled,
		Name:       name,
		Source:     source,
		SizeBytes:  int64(len(data)),
		CompiledAt: time.Now().Unix(),
	}
	l.runtime.StoreCompiledModule(cm)

	l.logger.Info("Guest compiled",
		zap.String("module", name),
		zap.String("source", source),
		zap.Int("size_bytes", len(data)),
		zap.Int("imports", len(compiled.ImportedFunctions())),
		zap.Duration("duration", time.Since(start)),
	)
	return cm, nil
}
