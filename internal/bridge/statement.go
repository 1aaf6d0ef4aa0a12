package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// StatementResult is the outcome of a macro statement call.
type StatementResult struct {
	// Result is the engine's result keyword after the statement, clamped to
	// int32 at every width. It stays the evaluation code when it cannot be read.
	Result int64
	// Args holds the arguments as the engine left them, in declaration order.
	Args    []macro.Arg
	Message string
}

// Statement runs "name arg1, arg2;" with every argument passed through a
// temporary macro variable. Temporaries are reset whether or not the
// statement succeeds.
func (b *Bridge) Statement(ctx context.Context, name string, args ...any) (StatementResult, error) {
	bindings, err := b.bind(ctx, statementCall, args)
	if err != nil {
		return StatementResult{}, err
	}
	defer b.release(ctx, bindings, "")

	text := name + " " + keys(bindings) + ";\n"
	res, err := b.Eval(ctx, text)
	out := StatementResult{Result: int64(res.Code), Message: res.Message}
	if err != nil {
		out.Args = inputs(bindings)
		return out, err
	}

	if v, rerr := b.GetVar(ctx, protocol.ResultVar); rerr != nil || v.IsText() {
		b.logger.Debug("Statement result not read", zap.String("statement", name), zap.Error(rerr))
	} else {
		out.Result = macro.Width32.Clamp(v.Int())
	}

	out.Args = b.readBack(ctx, bindings)
	return out, nil
}
