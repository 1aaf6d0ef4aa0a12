package sim

import (
	"context"
	"fmt"
	"strconv"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

type endMacro struct {
	message string
}

func (e *endMacro) Error() string {
	return "endmacro"
}

type interp struct {
	engine *Engine
}

func (in *interp) block(ctx context.Context, body []stmt) error {
	for _, s := range body {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := in.statement(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (in *interp) statement(ctx context.Context, s stmt) error {
	switch s := s.(type) {
	case *assignStmt:
		name, err := in.name(ctx, s.target)
		if err != nil {
			return err
		}
		v, err := in.eval(ctx, s.value)
		if err != nil {
			return err
		}
		return in.engine.assign(name, v)
	case *exprStmt:
		_, err := in.eval(ctx, s.x)
		return err
	case *callStmt:
		fn, ok := in.engine.statement(s.name)
		if !ok {
			return &RuntimeError{Op: s.name, Message: "unknown statement"}
		}
		call, err := in.call(ctx, s.name, s.args)
		if err != nil {
			return err
		}
		n, err := fn(ctx, call)
		if err != nil {
			return err
		}
		in.engine.setResult(n)
		return nil
	case *ifStmt:
		cond, err := in.eval(ctx, s.cond)
		if err != nil {
			return err
		}
		if truthy(cond) {
			return in.block(ctx, s.then)
		}
		return in.block(ctx, s.els)
	case *endStmt:
		end := &endMacro{}
		if s.value != nil {
			v, err := in.eval(ctx, s.value)
			if err != nil {
				return err
			}
			end.message = v.String()
		}
		return end
	}
	return fmt.Errorf("unknown statement node %T", s)
}

// name resolves a variable reference to its storage key, e.g. "$a[3]".
func (in *interp) name(ctx context.Context, ref varRef) (string, error) {
	if ref.index == nil {
		return ref.name, nil
	}
	idx, err := in.eval(ctx, ref.index)
	if err != nil {
		return "", err
	}
	if idx.IsText() {
		return "", &RuntimeError{Op: ref.name, Message: "array index must be an integer"}
	}
	return ref.name + "[" + strconv.FormatInt(idx.Int(), 10) + "]", nil
}

func (in *interp) call(ctx context.Context, name string, args []expr) (*Call, error) {
	call := &Call{
		Name:   name,
		Args:   make([]macro.Value, len(args)),
		refs:   make([]string, len(args)),
		engine: in.engine,
	}
	for i, a := range args {
		if v, ok := a.(*varExpr); ok {
			ref, err := in.name(ctx, v.ref)
			if err != nil {
				return nil, err
			}
			call.refs[i] = ref
		}
		v, err := in.eval(ctx, a)
		if err != nil {
			return nil, err
		}
		call.Args[i] = v
	}
	return call, nil
}

func (in *interp) eval(ctx context.Context, x expr) (macro.Value, error) {
	switch x := x.(type) {
	case *litExpr:
		return x.v, nil
	case *varExpr:
		name, err := in.name(ctx, x.ref)
		if err != nil {
			return macro.Value{}, err
		}
		return in.engine.lookup(name), nil
	case *identExpr:
		if x.name == "result" {
			return macro.Int(in.engine.Result()), nil
		}
		return in.invoke(ctx, x.name, nil)
	case *callExpr:
		return in.invoke(ctx, x.name, x.args)
	case *unaryExpr:
		v, err := in.eval(ctx, x.x)
		if err != nil {
			return macro.Value{}, err
		}
		if v.IsText() {
			return macro.Value{}, &RuntimeError{Op: x.op, Message: "operand must be an integer"}
		}
		if x.op == "!" {
			return boolInt(v.Int() == 0), nil
		}
		return in.integer(-v.Int()), nil
	case *binaryExpr:
		return in.binary(ctx, x)
	}
	return macro.Value{}, fmt.Errorf("unknown expression node %T", x)
}

func (in *interp) invoke(ctx context.Context, name string, args []expr) (macro.Value, error) {
	fn, ok := in.engine.function(name)
	if !ok {
		return macro.Value{}, &RuntimeError{Op: name, Message: "unknown function"}
	}
	call, err := in.call(ctx, name, args)
	if err != nil {
		return macro.Value{}, err
	}
	return fn(ctx, call)
}

func (in *interp) binary(ctx context.Context, x *binaryExpr) (macro.Value, error) {
	l, err := in.eval(ctx, x.l)
	if err != nil {
		return macro.Value{}, err
	}
	switch x.op {
	case "&&":
		if !truthy(l) {
			return macro.Int(0), nil
		}
	case "||":
		if truthy(l) {
			return macro.Int(1), nil
		}
	}
	r, err := in.eval(ctx, x.r)
	if err != nil {
		return macro.Value{}, err
	}

	switch x.op {
	case "&&", "||":
		return boolInt(truthy(r)), nil
	}

	if l.IsText() || r.IsText() {
		if l.Kind() != r.Kind() {
			return macro.Value{}, &RuntimeError{Op: x.op, Message: "operands differ in kind"}
		}
		switch x.op {
		case "+":
			return macro.Text(l.Text() + r.Text()), nil
		case "==":
			return boolInt(l.Text() == r.Text()), nil
		case "!=":
			return boolInt(l.Text() != r.Text()), nil
		}
		return macro.Value{}, &RuntimeError{Op: x.op, Message: "not defined for text"}
	}

	a, b := l.Int(), r.Int()
	switch x.op {
	case "+":
		return in.integer(a + b), nil
	case "-":
		return in.integer(a - b), nil
	case "*":
		return in.integer(a * b), nil
	case "/":
		if b == 0 {
			return macro.Value{}, &RuntimeError{Op: "/", Message: "division by zero"}
		}
		return in.integer(a / b), nil
	case "==":
		return boolInt(a == b), nil
	case "!=":
		return boolInt(a != b), nil
	case "<":
		return boolInt(a < b), nil
	case ">":
		return boolInt(a > b), nil
	case "<=":
		return boolInt(a <= b), nil
	case ">=":
		return boolInt(a >= b), nil
	}
	return macro.Value{}, &RuntimeError{Op: x.op, Message: "unknown operator"}
}

func (in *interp) integer(n int64) macro.Value {
	return macro.Int(in.engine.width.Truncate(n))
}

func truthy(v macro.Value) bool {
	if v.IsText() {
		return v.Text() != ""
	}
	return v.Int() != 0
}

func boolInt(b bool) macro.Value {
	if b {
		return macro.Int(1)
	}
	return macro.Int(0)
}
