package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// Returnable lists the result types a function call can be pinned to.
type Returnable interface {
	int | int32 | int64 | uintptr | float64 | string
}

// FunctionResult is the outcome of an unpinned function call.
type FunctionResult struct {
	Result  macro.Value
	Args    []macro.Arg
	Message string
}

// TypedResult is the outcome of a function call pinned to T.
type TypedResult[T Returnable] struct {
	Result  T
	Args    []macro.Arg
	Message string
}

func callExpr(name string, bindings []binding) string {
	return name + "(" + keys(bindings) + ")"
}

// Function evaluates name(args...) and returns whatever kind the engine
// produces. Reading the expression back is its evaluation, so a read failure
// is the call's error.
func (b *Bridge) Function(ctx context.Context, name string, args ...any) (FunctionResult, error) {
	bindings, err := b.bind(ctx, functionCall, args)
	if err != nil {
		return FunctionResult{}, err
	}
	defer b.release(ctx, bindings, "")

	v, err := b.GetVar(ctx, callExpr(name, bindings))
	if err != nil {
		return FunctionResult{Args: inputs(bindings)}, err
	}
	return FunctionResult{Result: v, Args: b.readBack(ctx, bindings)}, nil
}

// CallFunction evaluates name(args...) into a scratch variable whose sigil
// pins the result kind: ## for numeric T, $$ for string T. The scratch
// variable and every temporary are reset afterwards.
func CallFunction[T Returnable](ctx context.Context, b *Bridge, name string, args ...any) (TypedResult[T], error) {
	var out TypedResult[T]

	scratch := protocol.NumericScratch
	if _, ok := any(out.Result).(string); ok {
		scratch = protocol.TextScratch
	}

	bindings, err := b.bind(ctx, functionCall, args)
	if err != nil {
		return out, err
	}
	defer b.release(ctx, bindings, scratch)

	text := scratch + " = " + callExpr(name, bindings) + ";\n"
	res, err := b.Eval(ctx, text)
	out.Message = res.Message
	if err != nil {
		out.Args = inputs(bindings)
		return out, err
	}

	v, err := b.GetVar(ctx, scratch)
	if err != nil {
		b.logger.Debug("Function result not read", zap.String("function", name), zap.Error(err))
	} else {
		out.Result = convert[T](b.coercer, v)
	}

	out.Args = b.readBack(ctx, bindings)
	return out, nil
}

func convert[T Returnable](c *macro.Coercer, v macro.Value) T {
	var out T
	switch p := any(&out).(type) {
	case *string:
		*p = v.String()
		return out
	}

	n := v.Int()
	if v.IsText() {
		iv, _ := c.ToInteger(v)
		n = iv.Int()
	}
	switch p := any(&out).(type) {
	case *int:
		*p = int(n)
	case *int32:
		*p = int32(n)
	case *int64:
		*p = n
	case *uintptr:
		*p = uintptr(n)
	case *float64:
		*p = float64(n)
	}
	return out
}
