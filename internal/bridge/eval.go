package bridge

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

// Result is the outcome of running macro text. Code is positive on success,
// zero when the engine rejected the text and -1 when the call was refused
// before reaching the engine.
type Result struct {
	Code    int
	Message string
}

// OK reports whether the engine accepted the text.
func (r Result) OK() bool {
	return r.Code > 0
}

// Eval runs text inside the macro that is currently executing.
func (b *Bridge) Eval(ctx context.Context, text string) (Result, error) {
	if !b.host.IsExecuting() {
		return Result{Code: -1}, &macro.StateError{Op: "eval", Executing: false}
	}

	code, err := b.host.EvalMacro(ctx, text)
	if err != nil || code == 0 {
		b.logger.Debug("Macro evaluation failed", zap.String("text", text), zap.Error(err))
		return Result{Code: 0}, &macro.EvalError{Op: "eval", Text: text, Err: err}
	}
	return Result{Code: code}, nil
}

// ExecEval runs text as a new top-level macro. It fails when a macro is
// already executing.
func (b *Bridge) ExecEval(ctx context.Context, text string) (Result, error) {
	if b.host.IsExecuting() {
		return Result{Code: -1}, &macro.StateError{Op: "exec", Executing: true}
	}

	code, msg, err := b.host.ExecMacro(ctx, text)
	if err != nil || code == 0 {
		b.logger.Debug("Macro execution failed", zap.String("text", text), zap.Error(err))
		return Result{Code: 0, Message: msg}, &macro.EvalError{Op: "exec", Text: text, Err: err}
	}
	return Result{Code: code, Message: msg}, nil
}

// ExecFile runs a macro file as a new top-level macro.
func (b *Bridge) ExecFile(ctx context.Context, path string) (Result, error) {
	if b.host.IsExecuting() {
		return Result{Code: -1}, &macro.StateError{Op: "exec file", Executing: true}
	}
	if _, err := b.fs.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Code: -1}, &macro.NotFoundError{Name: path, Err: err}
		}
		return Result{Code: -1}, err
	}

	code, msg, err := b.host.ExecMacroFile(ctx, path)
	if err != nil || code == 0 {
		b.logger.Debug("Macro file execution failed", zap.String("path", path), zap.Error(err))
		return Result{Code: 0, Message: msg}, &macro.EvalError{Op: "exec file", Text: path, Err: err}
	}
	return Result{Code: code, Message: msg}, nil
}
