package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/wasm"
)

// Loader loads engine packs from disk.
type Loader struct {
	fs           afero.Fs
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new pack loader.
func NewLoader(runtime *wasm.Runtime, fsys afero.Fs, logger *zap.Logger) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{
		fs:           fsys,
		moduleLoader: wasm.NewModuleLoader(runtime, fsys, logger),
		logger:       logger.With(zap.String("component", "engine-loader")),
	}
}

// LoadPack loads a single pack from a directory. The guest is compiled under
// the pack's name.
func (l *Loader) LoadPack(ctx context.Context, dir string) (*Pack, error) {
	manifest, err := ParseManifest(l.fs, dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading engine pack",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Float64("host_version", manifest.HostVersion),
	)

	data, err := afero.ReadFile(l.fs, manifest.WasmPath())
	if err != nil {
		return nil, &PackLoadError{PackName: manifest.Name, Err: err}
	}
	compiled, err := l.moduleLoader.LoadModuleFromMemory(ctx, manifest.Name, data)
	if err != nil {
		return nil, &PackLoadError{PackName: manifest.Name, Err: err}
	}

	pack := &Pack{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Engine pack loaded",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return pack, nil
}

// Discover loads every pack directory under paths. Missing paths are
// skipped. Packs that fail to load are reported in the returned error, which
// aggregates one error per failed pack alongside the packs that loaded.
func (l *Loader) Discover(ctx context.Context, paths []string) ([]*Pack, error) {
	var (
		packs []*Pack
		errs  error
	)

	for _, basePath := range paths {
		l.logger.Debug("Scanning engine directory", zap.String("path", basePath))

		entries, err := afero.ReadDir(l.fs, basePath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				l.logger.Warn("Engine path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			dir := filepath.Join(basePath, entry.Name())
			pack, err := l.LoadPack(ctx, dir)
			if err != nil {
				l.logger.Error("Failed to load engine pack",
					zap.String("dir", dir),
					zap.Error(err),
				)
				errs = multierr.Append(errs, err)
				continue
			}
			packs = append(packs, pack)
		}
	}

	if len(packs) == 0 {
		return nil, multierr.Append(&NoPacksFoundError{Paths: paths}, errs)
	}
	if errs != nil {
		l.logger.Warn("Some engine packs failed to load",
			zap.Int("loaded", len(packs)),
			zap.Int("failed", len(multierr.Errors(errs))),
		)
	}

	return packs, errs
}
