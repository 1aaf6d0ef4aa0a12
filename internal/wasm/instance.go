package wasm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// InstanceManager creates guest instances linked against the host module.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctions

	hostOnce sync.Once
	hostErr  error
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctions, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Compiled module to instantiate.
	ModuleName string

	// Instance ID; a random UUID when empty.
	InstanceID string
}

// Instance is an instantiated guest macro engine.
type Instance struct {
	module api.Module

	ID        string
	Name      string
	CreatedAt int64

	runtime *Runtime
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Close closes the instance and stops tracking it.
func (i *Instance) Close(ctx context.Context) error {
	i.runtime.DeleteInstance(i.ID)
	return i.module.Close(ctx)
}

// Instantiate creates an instance of a compiled guest. The host module and
// WASI are instantiated on first use and shared by every guest. Guests
// missing any of the required exports are closed and rejected.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.InstanceCount() >= limit {
		return nil, &InstanceLimitError{Limit: limit}
	}

	if err := m.instantiateHost(ctx); err != nil {
		return nil, err
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions("_initialize")

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	for _, name := range protocol.GuestExports {
		if module.ExportedFunction(name) == nil {
			_ = module.Close(ctx)
			return nil, &FunctionNotFoundError{ModuleName: config.ModuleName, FunctionName: name}
		}
	}
	if module.Memory() == nil {
		_ = module.Close(ctx)
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        errors.New("guest exports no memory"),
		}
	}

	instance := &Instance{
		module:    module,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		runtime:   m.runtime,
	}
	m.runtime.StoreInstance(instance)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
	)

	return instance, nil
}

func (m *InstanceManager) instantiateHost(ctx context.Context) error {
	m.hostOnce.Do(func() {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, m.runtime.runtime); err != nil {
			m.hostErr = fmt.Errorf("failed to instantiate WASI: %w", err)
			return
		}
		builder := m.runtime.runtime.NewHostModuleBuilder(protocol.HostModule)
		if _, err := m.hostFuncs.export(builder).Instantiate(ctx); err != nil {
			m.hostErr = fmt.Errorf("failed to instantiate host module: %w", err)
		}
	})
	return m.hostErr
}
