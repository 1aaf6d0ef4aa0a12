// Package sim is an in-process macro engine. It interprets the subset of macro
// text the bridge generates (assignments, statement and function calls,
// createobject/member/releaseobject, if blocks) against an in-memory editor
// buffer.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

// DefaultVersion is the host version reported when none is configured.
const DefaultVersion = 940.0

// ErrBusy is returned when a top-level execution starts while another runs.
var ErrBusy = errors.New("a macro is already executing")

// Object is a component instance macro text can create with createobject.
type Object interface {
	Call(ctx context.Context, member string, args []any) (any, error)
}

// StatementFunc implements a macro statement. The returned integer becomes
// the value of the result keyword.
type StatementFunc func(ctx context.Context, call *Call) (int64, error)

// FunctionFunc implements a macro function.
type FunctionFunc func(ctx context.Context, call *Call) (macro.Value, error)

// RuntimeError occurs when parsed macro text fails while running.
type RuntimeError struct {
	Op      string
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Options configure an Engine.
type Options struct {
	Version float64
	Width   macro.Width
	Fs      afero.Fs
}

type classKey struct {
	path  string
	class string
}

type staticKey struct {
	name   string
	shared bool
}

// Engine is a single-threaded macro interpreter. Its state accessors are
// safe for concurrent use, but only one macro runs at a time.
type Engine struct {
	mu         sync.Mutex
	version    float64
	width      macro.Width
	fs         afero.Fs
	executing  bool
	vars       map[string]macro.Value
	result     int64
	statics    map[staticKey]string
	classes    map[classKey]Object
	objects    map[int64]Object
	nextHandle int64
	statements map[string]StatementFunc
	functions  map[string]FunctionFunc
	history    []string
	failWhen   func(text string) bool
	editor     *Editor
	logger     *zap.Logger
}

// New creates an engine with the builtin statements and functions.
func New(opts Options, logger *zap.Logger) *Engine {
	if opts.Version == 0 {
		opts.Version = DefaultVersion
	}
	if opts.Width == 0 {
		opts.Width = macro.NativeWidth
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	e := &Engine{
		version:    opts.Version,
		width:      opts.Width,
		fs:         opts.Fs,
		vars:       make(map[string]macro.Value),
		statics:    make(map[staticKey]string),
		classes:    make(map[classKey]Object),
		objects:    make(map[int64]Object),
		statements: make(map[string]StatementFunc),
		functions:  make(map[string]FunctionFunc),
		editor:     NewEditor(),
		logger:     logger.With(zap.String("component", "sim-engine")),
	}
	e.registerBuiltins()
	return e
}

// Version returns the emulated host version.
func (e *Engine) Version() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// SetVersion changes the emulated host version.
func (e *Engine) SetVersion(v float64) {
	e.mu.Lock()
	e.version = v
	e.mu.Unlock()
}

// Width returns the engine's native integer width.
func (e *Engine) Width() macro.Width {
	return e.width
}

// Editor returns the text buffer macros edit.
func (e *Engine) Editor() *Editor {
	return e.editor
}

// IsExecuting reports whether a macro is running.
func (e *Engine) IsExecuting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executing
}

// SetExecuting forces the executing state, the way a host does while a
// macro has called into managed code.
func (e *Engine) SetExecuting(v bool) {
	e.mu.Lock()
	e.executing = v
	e.mu.Unlock()
}

// RegisterObject makes obj available to createobject(path, class).
func (e *Engine) RegisterObject(path, class string, obj Object) {
	e.mu.Lock()
	e.classes[classKey{path: path, class: class}] = obj
	e.mu.Unlock()
}

// RegisterStatement adds or replaces a statement.
func (e *Engine) RegisterStatement(name string, fn StatementFunc) {
	e.mu.Lock()
	e.statements[name] = fn
	e.mu.Unlock()
}

// RegisterFunction adds or replaces a function.
func (e *Engine) RegisterFunction(name string, fn FunctionFunc) {
	e.mu.Lock()
	e.functions[name] = fn
	e.mu.Unlock()
}

// FailWhen makes every evaluation whose text matches fn fail before running.
// A nil fn clears the hook.
func (e *Engine) FailWhen(fn func(text string) bool) {
	e.mu.Lock()
	e.failWhen = fn
	e.mu.Unlock()
}

// History returns every text passed to EvalMacro or ExecMacro, in order.
func (e *Engine) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.history))
	copy(out, e.history)
	return out
}

// ResetHistory forgets recorded texts.
func (e *Engine) ResetHistory() {
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
}

// Var returns a variable's value and whether it was ever assigned.
func (e *Engine) Var(name string) (macro.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[name]
	if !ok {
		return macro.Zero(sigilKind(name)), false
	}
	return v, true
}

// SetVar assigns a variable directly, applying the same kind rules as macro
// text.
func (e *Engine) SetVar(name string, v macro.Value) error {
	return e.assign(name, v)
}

// Result returns the value of the result keyword.
func (e *Engine) Result() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Objects returns the number of live createobject handles.
func (e *Engine) Objects() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.objects)
}

// StaticVariable reads a process-shared variable.
func (e *Engine) StaticVariable(_ context.Context, name string, shared bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statics[staticKey{name: name, shared: shared}], nil
}

// SetStaticVariable writes a process-shared variable.
func (e *Engine) SetStaticVariable(_ context.Context, name, value string, shared bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statics[staticKey{name: name, shared: shared}] = value
	return nil
}

// EvalMacro runs text inside the current execution. It returns 1 on success
// and 0 with an error when the text fails to parse or run.
func (e *Engine) EvalMacro(ctx context.Context, text string) (int, error) {
	if _, err := e.run(ctx, text); err != nil {
		e.logger.Debug("Evaluation failed", zap.Error(err))
		return 0, err
	}
	return 1, nil
}

// ExecMacro runs text as a fresh top-level macro. The message is the value
// passed to endmacro, if any.
func (e *Engine) ExecMacro(ctx context.Context, text string) (int, string, error) {
	if !e.begin() {
		return 0, "", ErrBusy
	}
	defer e.end()

	msg, err := e.run(ctx, text)
	if err != nil {
		e.logger.Debug("Execution failed", zap.Error(err))
		return 0, msg, err
	}
	return 1, msg, nil
}

// ExecMacroFile reads a macro file and runs it as ExecMacro does.
func (e *Engine) ExecMacroFile(ctx context.Context, path string) (int, string, error) {
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, "", &macro.NotFoundError{Name: path, Err: err}
		}
		return 0, "", fmt.Errorf("failed to read macro file '%s': %w", path, err)
	}
	return e.ExecMacro(ctx, strings.TrimPrefix(string(data), "\ufeff"))
}

// begin starts a top-level execution with a fresh variable scope.
func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.executing {
		return false
	}
	e.executing = true
	e.vars = make(map[string]macro.Value)
	e.result = 0
	return true
}

func (e *Engine) end() {
	e.mu.Lock()
	e.executing = false
	e.mu.Unlock()
}

func (e *Engine) run(ctx context.Context, text string) (string, error) {
	e.mu.Lock()
	e.history = append(e.history, text)
	fail := e.failWhen
	e.mu.Unlock()

	if fail != nil && fail(text) {
		return "", &RuntimeError{Op: "eval", Message: "evaluation rejected by host"}
	}

	prog, err := parse(text, e.isFunction)
	if err != nil {
		return "", err
	}

	in := &interp{engine: e}
	err = in.block(ctx, prog)
	var end *endMacro
	if errors.As(err, &end) {
		return end.message, nil
	}
	return "", err
}

func (e *Engine) isFunction(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.functions[name]
	return ok
}

func (e *Engine) statement(name string) (StatementFunc, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn, ok := e.statements[name]
	return fn, ok
}

func (e *Engine) function(name string) (FunctionFunc, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn, ok := e.functions[name]
	return fn, ok
}

func (e *Engine) lookup(name string) macro.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.vars[name]; ok {
		return v
	}
	return macro.Zero(sigilKind(name))
}

func (e *Engine) assign(name string, v macro.Value) error {
	want := sigilKind(name)
	if v.Kind() != want {
		return &RuntimeError{
			Op:      "assign",
			Message: fmt.Sprintf("cannot assign %s value to %s variable %s", v.Kind(), want, name),
		}
	}
	if want == macro.KindInteger {
		v = macro.Int(e.width.Truncate(v.Int()))
	}
	e.mu.Lock()
	e.vars[name] = v
	e.mu.Unlock()
	return nil
}

func (e *Engine) setResult(n int64) {
	e.mu.Lock()
	e.result = e.width.Truncate(n)
	e.mu.Unlock()
}

func sigilKind(name string) macro.Kind {
	if strings.HasPrefix(name, "$") {
		return macro.KindText
	}
	return macro.KindInteger
}
