package mailbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// Component is the object macro text creates with createobject. It exposes
// exactly three members: DllToMacro, MacroToDll and MethodToDll.
type Component struct {
	slot     *Slot
	registry *Registry
	coercer  *macro.Coercer
	logger   *zap.Logger
}

// NewComponent creates the component over a slot and a method registry.
func NewComponent(slot *Slot, registry *Registry, coercer *macro.Coercer, logger *zap.Logger) *Component {
	return &Component{
		slot:     slot,
		registry: registry,
		coercer:  coercer,
		logger:   logger.With(zap.String("component", "mailbox")),
	}
}

// Slot returns the slot the component reads and writes.
func (c *Component) Slot() *Slot {
	return c.slot
}

// Registry returns the methods MethodToDll can reach.
func (c *Component) Registry() *Registry {
	return c.registry
}

// Coercer returns the coercer used for integer payloads.
func (c *Component) Coercer() *macro.Coercer {
	return c.coercer
}

// DllToMacro returns the slot's current value.
func (c *Component) DllToMacro() any {
	return c.slot.Fetch()
}

// MacroToDll stores v in the slot.
func (c *Component) MacroToDll(v any) int {
	c.slot.Store(v)
	return protocol.StatusSuccess
}

// MethodToDll stores the payload in the slot, then resolves and runs the
// named method. Failures are reported as StatusFailure with a debug-level
// diagnostic only.
func (c *Component) MethodToDll(ctx context.Context, module, typeName, method string, payload any) int {
	c.slot.Store(payload)

	m, err := c.registry.Resolve(module, typeName, method, payload)
	if err != nil {
		c.logger.Debug("Remote method not resolved",
			zap.String("module", module),
			zap.String("method", methodKey(typeName, method)),
			zap.Error(err),
		)
		return protocol.StatusFailure
	}

	arg := c.argument(m.Param, payload)
	if err := m.Handler(ctx, arg); err != nil {
		c.logger.Debug("Remote method failed",
			zap.String("method", m.Key()),
			zap.Error(err),
		)
		return protocol.StatusFailure
	}
	return protocol.StatusSuccess
}

func (c *Component) argument(k macro.Kind, payload any) macro.Value {
	if k == macro.KindText {
		if payload == nil {
			return macro.Text("")
		}
		return macro.Text(macro.TextOf(payload))
	}
	v, ok := c.coercer.ToInteger(payload)
	if !ok {
		c.logger.Debug("Payload coerced to 0", zap.Any("payload", payload))
	}
	return v
}

// Call dispatches a member call by wire name. Engines use it to route
// member(obj, "<name>", args...) expressions.
func (c *Component) Call(ctx context.Context, member string, args []any) (any, error) {
	switch member {
	case protocol.MemberDllToMacro:
		if len(args) != 0 {
			return nil, &ArgumentCountError{Member: member, Want: 0, Got: len(args)}
		}
		return c.DllToMacro(), nil
	case protocol.MemberMacroToDll:
		if len(args) != 1 {
			return nil, &ArgumentCountError{Member: member, Want: 1, Got: len(args)}
		}
		return c.MacroToDll(args[0]), nil
	case protocol.MemberMethodToDll:
		if len(args) != 4 {
			return nil, &ArgumentCountError{Member: member, Want: 4, Got: len(args)}
		}
		return c.MethodToDll(ctx,
			macro.TextOf(args[0]),
			macro.TextOf(args[1]),
			macro.TextOf(args[2]),
			args[3],
		), nil
	}
	return nil, &UnknownMemberError{Member: member}
}
