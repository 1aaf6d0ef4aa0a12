package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/internal/mailbox"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// HostFunctions exposes the mailbox component to guests as the "hmbridge"
// import module. A guest engine maps createobject/member on the component
// onto these calls.
type HostFunctions struct {
	component *mailbox.Component
	logger    *zap.Logger
}

// NewHostFunctions creates host functions over component.
func NewHostFunctions(component *mailbox.Component, logger *zap.Logger) *HostFunctions {
	return &HostFunctions{
		component: component,
		logger:    logger.With(zap.String("component", "wasm-host")),
	}
}

// Component returns the mailbox component guests reach.
func (h *HostFunctions) Component() *mailbox.Component {
	return h.component
}

// export registers every host function on builder.
func (h *HostFunctions) export(builder wazero.HostModuleBuilder) wazero.HostModuleBuilder {
	return builder.
		NewFunctionBuilder().
		WithFunc(h.logMessage).
		WithParameterNames("level", "ptr", "length").
		Export(protocol.HostLogMessage).
		NewFunctionBuilder().
		WithFunc(h.fetchKind).
		Export(protocol.HostMailboxFetchKind).
		NewFunctionBuilder().
		WithFunc(h.fetchInt).
		Export(protocol.HostMailboxFetchInt).
		NewFunctionBuilder().
		WithFunc(h.fetchText).
		WithParameterNames("ptr", "capacity").
		Export(protocol.HostMailboxFetchText).
		NewFunctionBuilder().
		WithFunc(h.storeInt).
		WithParameterNames("value").
		Export(protocol.HostMailboxStoreInt).
		NewFunctionBuilder().
		WithFunc(h.storeText).
		WithParameterNames("ptr", "length").
		Export(protocol.HostMailboxStoreText).
		NewFunctionBuilder().
		WithFunc(h.invoke).
		WithParameterNames(
			"module_ptr", "module_len",
			"type_ptr", "type_len",
			"method_ptr", "method_len",
			"payload_ptr", "payload_len",
		).
		Export(protocol.HostMailboxInvoke)
}

// logMessage writes a guest message to the host log.
// level: 0 = debug, 1 = info, 2 = warn, 3 = error.
func (h *HostFunctions) logMessage(_ context.Context, mod api.Module, level, ptr, length uint32) {
	msg, ok := mod.Memory().Read(ptr, length)
	if !ok {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	guest := zap.String("guest", mod.Name())
	switch level {
	case 0:
		h.logger.Debug(string(msg), guest)
	case 2:
		h.logger.Warn(string(msg), guest)
	case 3:
		h.logger.Error(string(msg), guest)
	default:
		h.logger.Info(string(msg), guest)
	}
}

// fetchKind reports what DllToMacro would return.
func (h *HostFunctions) fetchKind(context.Context, api.Module) uint32 {
	return uint32(slotKind(h.component.DllToMacro()))
}

// fetchInt returns the slot as an integer; text is coerced.
func (h *HostFunctions) fetchInt(context.Context, api.Module) int64 {
	v := h.component.DllToMacro()
	if v == nil {
		return 0
	}
	n, ok := h.component.Coercer().ToInteger(v)
	if !ok {
		h.logger.Debug("Slot value coerced to 0", zap.Any("value", v))
	}
	return n.Int()
}

// fetchText copies the slot's text into a guest buffer and returns its full
// byte length. A guest whose buffer was too small calls again with a larger
// one.
func (h *HostFunctions) fetchText(_ context.Context, mod api.Module, ptr, capacity uint32) uint32 {
	v := h.component.DllToMacro()
	if v == nil {
		return 0
	}
	text := macro.TextOf(v)
	n := uint32(len(text))
	if n == 0 {
		return 0
	}
	if w := min(n, capacity); w > 0 && !mod.Memory().Write(ptr, []byte(text[:w])) {
		h.logger.Error("Failed to write slot text to Wasm memory",
			zap.Error(&MemoryAccessError{Operation: "write", Address: ptr, Length: w}),
		)
		return 0
	}
	return n
}

func (h *HostFunctions) storeInt(_ context.Context, _ api.Module, value int64) uint32 {
	return uint32(h.component.MacroToDll(macro.Int(value)))
}

func (h *HostFunctions) storeText(_ context.Context, mod api.Module, ptr, length uint32) uint32 {
	text, err := NewMemory(mod).ReadText(ptr, length)
	if err != nil {
		h.logger.Error("Failed to read stored text",
			zap.Error(&HostFunctionError{FunctionName: protocol.HostMailboxStoreText, Err: err}),
		)
		return protocol.StatusFailure
	}
	return uint32(h.component.MacroToDll(macro.Text(text)))
}

// invoke runs MethodToDll. The payload always arrives as text.
func (h *HostFunctions) invoke(ctx context.Context, mod api.Module,
	modulePtr, moduleLen, typePtr, typeLen, methodPtr, methodLen, payloadPtr, payloadLen uint32,
) uint32 {
	mem := NewMemory(mod)
	var texts [4]string
	spans := [4][2]uint32{
		{modulePtr, moduleLen},
		{typePtr, typeLen},
		{methodPtr, methodLen},
		{payloadPtr, payloadLen},
	}
	for i, s := range spans {
		text, err := mem.ReadText(s[0], s[1])
		if err != nil {
			h.logger.Error("Failed to read invocation arguments",
				zap.Error(&HostFunctionError{FunctionName: protocol.HostMailboxInvoke, Err: err}),
			)
			return protocol.StatusFailure
		}
		texts[i] = text
	}
	return uint32(h.component.MethodToDll(ctx, texts[0], texts[1], texts[2], texts[3]))
}

// slotKind classifies a slot value for guests.
func slotKind(v any) protocol.SlotKind {
	switch val := v.(type) {
	case nil:
		return protocol.SlotEmpty
	case macro.Value:
		if val.IsText() {
			return protocol.SlotText
		}
		return protocol.SlotInteger
	case string:
		return protocol.SlotText
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, uintptr, bool:
		return protocol.SlotInteger
	default:
		return protocol.SlotOpaque
	}
}
