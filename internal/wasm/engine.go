package wasm

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// EngineConfig configures a guest-backed macro engine.
type EngineConfig struct {
	// Host version reported to the bridge.
	Version float64

	// Filesystem macro files are read from.
	Fs afero.Fs
}

// Engine runs macro text inside a guest instance. It satisfies the bridge's
// Host interface.
//
// Every call looks its export up afresh: a guest may re-enter macro_eval from
// a host callback while macro_exec is still on the stack.
type Engine struct {
	instance *Instance
	mem      *Memory
	version  float64
	fs       afero.Fs
	timeout  time.Duration
	debug    bool
	logger   *zap.Logger
}

// NewEngine wraps an instance as a macro engine.
func NewEngine(instance *Instance, cfg EngineConfig, logger *zap.Logger) *Engine {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	rc := instance.runtime.config
	return &Engine{
		instance: instance,
		mem:      NewMemory(instance.module),
		version:  cfg.Version,
		fs:       cfg.Fs,
		timeout:  rc.ExecutionTimeout,
		debug:    rc.DebugEnabled,
		logger: logger.With(
			zap.String("component", "wasm-engine"),
			zap.String("instance_id", instance.ID),
		),
	}
}

// Version returns the configured host version.
func (e *Engine) Version() float64 {
	return e.version
}

// IsExecuting asks the guest whether a macro is running. A failing guest
// reports false.
func (e *Engine) IsExecuting() bool {
	res, err := e.call(context.Background(), protocol.GuestIsExecuting)
	if err != nil {
		e.logger.Warn("Guest state query failed", zap.Error(err))
		return false
	}
	return res != 0
}

// EvalMacro evaluates text inside the running macro.
func (e *Engine) EvalMacro(ctx context.Context, text string) (int, error) {
	res, err := e.callText(ctx, protocol.GuestEval, text)
	if err != nil {
		return 0, err
	}
	return int(res), nil
}

// ExecMacro runs text as a new top-level macro and returns the guest's exit
// message when it exports one.
func (e *Engine) ExecMacro(ctx context.Context, text string) (int, string, error) {
	res, err := e.callText(ctx, protocol.GuestExec, text)
	if err != nil {
		return 0, "", err
	}
	return int(res), e.message(ctx), nil
}

// ExecMacroFile runs a macro file. A leading byte order mark is dropped.
func (e *Engine) ExecMacroFile(ctx context.Context, path string) (int, string, error) {
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, "", &macro.NotFoundError{Name: path, Err: err}
		}
		return 0, "", err
	}
	return e.ExecMacro(ctx, strings.TrimPrefix(string(data), "\ufeff"))
}

// Close closes the guest instance.
func (e *Engine) Close(ctx context.Context) error {
	return e.instance.Close(ctx)
}

func (e *Engine) callText(ctx context.Context, name, text string) (int32, error) {
	ptr, length, err := e.mem.WriteString(ctx, text)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := e.mem.Free(ctx, ptr, length); err != nil {
			e.logger.Warn("Failed to free guest text", zap.Error(err))
		}
	}()
	return e.call(ctx, name, uint64(ptr), uint64(length))
}

func (e *Engine) call(ctx context.Context, name string, params ...uint64) (int32, error) {
	fn := e.instance.module.ExportedFunction(name)
	if fn == nil {
		return 0, &FunctionNotFoundError{ModuleName: e.instance.Name, FunctionName: name}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if e.debug {
		e.logger.Debug("Calling guest", zap.String("function", name))
	}

	res, err := fn.Call(ctx, params...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, &TimeoutError{Function: name, Duration: e.timeout}
		}
		return 0, &CallError{Function: name, Err: err}
	}
	if len(res) == 0 {
		return 0, nil
	}
	return int32(uint32(res[0])), nil
}

// message reads the optional exit message export.
func (e *Engine) message(ctx context.Context) string {
	fn := e.instance.module.ExportedFunction(protocol.GuestMessage)
	if fn == nil {
		return ""
	}
	res, err := fn.Call(ctx)
	if err != nil || len(res) == 0 {
		return ""
	}
	ptr, length := uint32(res[0]>>32), uint32(res[0])
	text, err := e.mem.ReadText(ptr, length)
	if err != nil {
		e.logger.Warn("Failed to read exit message", zap.Error(err))
		return ""
	}
	return text
}
