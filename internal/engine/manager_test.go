package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/config"
	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/internal/mailbox"
	"github.com/woxQAQ/hmbridge/internal/wasm"
)

func newTestManager(t *testing.T, fsys afero.Fs, paths ...string) *Manager {
	t.Helper()
	logger := zap.NewNop()
	component := mailbox.NewComponent(
		mailbox.NewSlot(),
		mailbox.NewRegistry("example.com/ext", logger),
		macro.NewCoercer(macro.Width64),
		logger,
	)
	cfg := &config.Config{EnginePaths: paths}
	return NewManager(cfg, newTestRuntime(t), wasm.NewHostFunctions(component, logger), fsys, logger)
}

func TestManager_NewManager(t *testing.T) {
	manager := newTestManager(t, afero.NewMemMapFs(), "/engines")

	if manager.IsLoaded() {
		t.Error("Manager should not be loaded initially")
	}
	if manager.Registry().Count() != 0 {
		t.Error("Registry should start empty")
	}
}

func TestManager_LoadAll(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writePack(t, fsys, "/engines/echo", validManifest, emptyWasm)
	writePack(t, fsys, "/engines/broken", "name: [", emptyWasm)
	manager := newTestManager(t, fsys, "/engines")
	ctx := context.Background()

	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if !manager.IsLoaded() {
		t.Error("Manager should be loaded")
	}

	pack, err := manager.GetPack("echo")
	if err != nil {
		t.Fatalf("GetPack() failed: %v", err)
	}
	if found, err := manager.FindPackWithCapability(CapabilityExec); err != nil || found != pack {
		t.Errorf("FindPackWithCapability(exec) = %v, %v", found, err)
	}
	if _, err := manager.FindPackWithCapability(CapabilityEdit); err == nil {
		t.Error("FindPackWithCapability(edit) should fail")
	}

	if err := manager.LoadAll(ctx); err == nil {
		t.Error("second LoadAll() should fail")
	}
}

func TestManager_LoadAll_NoPacks(t *testing.T) {
	manager := newTestManager(t, afero.NewMemMapFs(), "/engines")

	if err := manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() should tolerate an empty pack path, got %v", err)
	}
	if !manager.IsLoaded() {
		t.Error("Manager should be loaded")
	}
}

func TestManager_GetPack_NotFound(t *testing.T) {
	manager := newTestManager(t, afero.NewMemMapFs())

	_, err := manager.GetPack("nonexistent")

	var notFound *PackNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected PackNotFoundError, got %T", err)
	}
}

func TestManager_Engine(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writePack(t, fsys, "/engines/echo", validManifest, emptyWasm)
	manager := newTestManager(t, fsys, "/engines")
	ctx := context.Background()

	if err := manager.LoadAll(ctx); err != nil {
		t.Fatal(err)
	}

	// An empty module is a valid pack but not a macro engine.
	_, err := manager.Engine(ctx, "echo")
	var fnErr *wasm.FunctionNotFoundError
	if !errors.As(err, &fnErr) {
		t.Errorf("expected FunctionNotFoundError, got %v", err)
	}

	if _, err := manager.Engine(ctx, "missing"); err == nil {
		t.Error("Engine() should fail for an unknown pack")
	}
}

func TestManager_Shutdown(t *testing.T) {
	manager := newTestManager(t, afero.NewMemMapFs())

	if err := manager.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}
