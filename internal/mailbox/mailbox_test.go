package mailbox

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

const testModule = "example.com/ext"

func TestSlot_LastWriteWins(t *testing.T) {
	slot := NewSlot()

	slot.Store("a")
	slot.Store("b")

	if got := slot.Fetch(); got != "b" {
		t.Errorf("Fetch() = %v, want b", got)
	}
	// Reads do not clear.
	if got := slot.Fetch(); got != "b" {
		t.Errorf("second Fetch() = %v, want b", got)
	}

	slot.Clear()
	if slot.Full() || slot.Fetch() != nil {
		t.Error("slot should be empty after Clear")
	}
}

func newMethod(name string, param macro.Kind, h Handler) *Method {
	return &Method{
		Module:  testModule,
		Type:    "Ext.Commands",
		Name:    name,
		Public:  true,
		Static:  true,
		Param:   param,
		Handler: h,
	}
}

func noop(context.Context, macro.Value) error { return nil }

func TestRegistry_RegisterValidation(t *testing.T) {
	registry := NewRegistry(testModule, zap.NewNop())

	tests := []struct {
		name   string
		mutate func(m *Method)
		want   macro.RejectReason
	}{
		{"foreign module", func(m *Method) { m.Module = "example.com/other" }, macro.RejectNotInOwnModule},
		{"instance method", func(m *Method) { m.Static = false }, macro.RejectNotStatic},
		{"private method", func(m *Method) { m.Public = false }, macro.RejectNotPublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMethod("Run", macro.KindText, noop)
			tt.mutate(m)

			err := registry.Register(m)
			var rejected *macro.RejectedError
			if !errors.As(err, &rejected) {
				t.Fatalf("expected RejectedError, got %v", err)
			}
			if rejected.Reason != tt.want {
				t.Errorf("reason = %s, want %s", rejected.Reason, tt.want)
			}
		})
	}

	if registry.Count() != 0 {
		t.Errorf("expected no registered methods, got %d", registry.Count())
	}
}

func TestRegistry_NilHandler(t *testing.T) {
	registry := NewRegistry(testModule, zap.NewNop())

	err := registry.Register(newMethod("Run", macro.KindText, nil))
	if _, ok := err.(*InvalidMethodError); !ok {
		t.Errorf("expected InvalidMethodError, got %T", err)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	registry := NewRegistry(testModule, zap.NewNop())

	if err := registry.Register(newMethod("Run", macro.KindText, noop)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	err := registry.Register(newMethod("Run", macro.KindText, noop))
	if _, ok := err.(*MethodAlreadyRegisteredError); !ok {
		t.Errorf("expected MethodAlreadyRegisteredError, got %T", err)
	}

	// A different parameter kind is an overload, not a duplicate.
	if err := registry.Register(newMethod("Run", macro.KindInteger, noop)); err != nil {
		t.Fatalf("Register() overload failed: %v", err)
	}
	if registry.Count() != 2 {
		t.Errorf("expected count 2, got %d", registry.Count())
	}
}

func TestRegistry_ResolveOverloads(t *testing.T) {
	registry := NewRegistry(testModule, zap.NewNop())

	var picked macro.Kind
	for _, k := range []macro.Kind{macro.KindText, macro.KindInteger} {
		k := k
		h := func(context.Context, macro.Value) error { picked = k; return nil }
		if err := registry.Register(newMethod("Open", k, h)); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	m, err := registry.Resolve(testModule, "Ext.Commands", "Open", int64(3))
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if m.Param != macro.KindInteger {
		t.Errorf("integer payload resolved to %s overload", m.Param)
	}

	m, err = registry.Resolve(testModule, "Ext.Commands", "Open", "file.txt")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if m.Param != macro.KindText {
		t.Errorf("text payload resolved to %s overload", m.Param)
	}

	_ = m.Handler(context.Background(), macro.Text("x"))
	if picked != macro.KindText {
		t.Errorf("handler for %s ran", picked)
	}
}

func TestRegistry_ResolveSingleCandidate(t *testing.T) {
	registry := NewRegistry(testModule, zap.NewNop())
	if err := registry.Register(newMethod("Close", macro.KindInteger, noop)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// One candidate wins regardless of the payload kind.
	m, err := registry.Resolve(testModule, "Ext.Commands", "Close", "text payload")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if m.Name != "Close" {
		t.Errorf("resolved %s", m.Name)
	}

	_, err = registry.Resolve(testModule, "Ext.Commands", "Missing", "")
	if !errors.Is(err, macro.ErrRemoteRejected) {
		t.Errorf("expected ErrRemoteRejected, got %v", err)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry(testModule, zap.NewNop())
	_ = registry.Register(newMethod("Run", macro.KindText, noop))

	registry.Unregister("Ext.Commands", "Run")
	if registry.Has("Ext.Commands", "Run") {
		t.Error("method still registered after Unregister")
	}

	// Unregistering an unknown method is a no-op.
	registry.Unregister("Ext.Commands", "Run")
}

func newTestComponent(t *testing.T) *Component {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewComponent(NewSlot(), NewRegistry(testModule, logger), macro.NewCoercer(macro.Width64), logger)
}

func TestComponent_Members(t *testing.T) {
	c := newTestComponent(t)
	ctx := context.Background()

	got, err := c.Call(ctx, protocol.MemberMacroToDll, []any{macro.Text("hi")})
	if err != nil {
		t.Fatalf("Call(MacroToDll) failed: %v", err)
	}
	if got != protocol.StatusSuccess {
		t.Errorf("MacroToDll returned %v", got)
	}

	got, err = c.Call(ctx, protocol.MemberDllToMacro, nil)
	if err != nil {
		t.Fatalf("Call(DllToMacro) failed: %v", err)
	}
	if got != macro.Text("hi") {
		t.Errorf("DllToMacro returned %v", got)
	}

	if _, err := c.Call(ctx, "Dispose", nil); err == nil {
		t.Error("unknown member should fail")
	}
	if _, err := c.Call(ctx, protocol.MemberMacroToDll, nil); err == nil {
		t.Error("wrong argument count should fail")
	}
}

func TestComponent_MethodToDll(t *testing.T) {
	c := newTestComponent(t)
	ctx := context.Background()

	var received macro.Value
	err := c.Registry().Register(newMethod("Echo", macro.KindText, func(_ context.Context, v macro.Value) error {
		received = v
		return nil
	}))
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	status := c.MethodToDll(ctx, testModule, "Ext.Commands", "Echo", "payload")
	if status != protocol.StatusSuccess {
		t.Fatalf("MethodToDll returned %d", status)
	}
	if received != macro.Text("payload") {
		t.Errorf("handler received %v", received)
	}
	// The payload is routed through the slot.
	if c.Slot().Fetch() != "payload" {
		t.Errorf("slot holds %v", c.Slot().Fetch())
	}

	if status := c.MethodToDll(ctx, "example.com/other", "Ext.Commands", "Echo", "x"); status != protocol.StatusFailure {
		t.Errorf("foreign module returned %d", status)
	}
	if status := c.MethodToDll(ctx, testModule, "Ext.Commands", "Nope", "x"); status != protocol.StatusFailure {
		t.Errorf("missing method returned %d", status)
	}
}

func TestComponent_MethodToDllHandlerError(t *testing.T) {
	c := newTestComponent(t)

	err := c.Registry().Register(newMethod("Fail", macro.KindInteger, func(context.Context, macro.Value) error {
		return errors.New("boom")
	}))
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	status := c.MethodToDll(context.Background(), testModule, "Ext.Commands", "Fail", "12")
	if status != protocol.StatusFailure {
		t.Errorf("failing handler returned %d", status)
	}
}
