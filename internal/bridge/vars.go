package bridge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// GetVar reads a macro variable, or any macro expression, by storing its
// value in the mailbox from macro text and fetching it back.
//
// Text comes back as Text. Integers come back truncated to the active width.
func (b *Bridge) GetVar(ctx context.Context, name string) (macro.Value, error) {
	slot := b.slot()
	slot.Clear()
	defer slot.Clear()

	var sb strings.Builder
	sb.WriteString(b.createObject(protocol.MailboxVar))
	sb.WriteString(protocol.MailboxResultVar + " = member(" + protocol.MailboxVar + ", " +
		quote(protocol.MemberMacroToDll) + ", " + name + ");\n")
	sb.WriteString(releaseObject(protocol.MailboxVar))
	sb.WriteString(protocol.MailboxResultVar + " = 0;\n")

	if _, err := b.Eval(ctx, sb.String()); err != nil {
		return macro.Value{}, err
	}
	return b.fromMacro(slot.Fetch()), nil
}

// SetVar writes a macro variable. Names with the # sigil take integer
// coercion; any other name receives the value's text form.
func (b *Bridge) SetVar(ctx context.Context, name string, v any) error {
	val := b.toMacro(name, v)

	slot := b.slot()
	slot.Clear()
	slot.Store(val)
	defer slot.Clear()

	var sb strings.Builder
	sb.WriteString(b.createObject(protocol.MailboxVar))
	sb.WriteString(name + " = " + fetchExpr(protocol.MailboxVar) + ";\n")
	sb.WriteString(releaseObject(protocol.MailboxVar))

	_, err := b.Eval(ctx, sb.String())
	return err
}

func (b *Bridge) toMacro(name string, v any) macro.Value {
	if !strings.HasPrefix(name, "#") {
		return macro.Text(b.coercer.Coerce(v).String())
	}
	val, ok := b.coercer.ToInteger(v)
	if !ok {
		b.logger.Debug("Value coerced to 0",
			zap.String("variable", name),
			zap.Any("value", v),
		)
	}
	return val
}

// fromMacro types a value the engine stored in the slot.
func (b *Bridge) fromMacro(v any) macro.Value {
	w := b.coercer.Width()
	switch val := v.(type) {
	case nil:
		return macro.Int(0)
	case macro.Value:
		if val.IsText() {
			return val
		}
		return macro.Int(w.Truncate(val.Int()))
	case string:
		return macro.Text(val)
	case int:
		return macro.Int(w.Truncate(int64(val)))
	case int32:
		return macro.Int(int64(val))
	case int64:
		return macro.Int(w.Truncate(val))
	case uintptr:
		return macro.Int(w.Truncate(int64(val)))
	}
	return b.coercer.Coerce(v)
}
