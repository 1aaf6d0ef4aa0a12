package bridge

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/internal/mailbox"
	"github.com/woxQAQ/hmbridge/internal/sim"
)

func echoMethod(got *macro.Value) *mailbox.Method {
	return &mailbox.Method{
		Module: testModule,
		Type:   "Ext.Commands",
		Name:   "Echo",
		Public: true,
		Static: true,
		Param:  macro.KindText,
		Handler: func(_ context.Context, v macro.Value) error {
			*got = v
			return nil
		},
	}
}

func TestInvokeRemote_Rejections(t *testing.T) {
	f := newFixture(t, macro.Width64)
	f.engine.SetExecuting(false)

	var got macro.Value
	if err := f.bridge.Register(echoMethod(&got)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	valid := echoMethod(&got).Ref()

	tests := []struct {
		name string
		ref  func() mailbox.MethodRef
		want macro.RejectReason
	}{
		{
			name: "other module wins over every other failure",
			ref: func() mailbox.MethodRef {
				r := valid
				r.Module, r.Static, r.Public = "example.com/other", false, false
				return r
			},
			want: macro.RejectNotInOwnModule,
		},
		{
			name: "instance method",
			ref: func() mailbox.MethodRef {
				r := valid
				r.Static, r.Public = false, false
				return r
			},
			want: macro.RejectNotStatic,
		},
		{
			name: "private method",
			ref: func() mailbox.MethodRef {
				r := valid
				r.Public = false
				return r
			},
			want: macro.RejectNotPublic,
		},
		{
			name: "unregistered method",
			ref: func() mailbox.MethodRef {
				r := valid
				r.Name = "Missing"
				return r
			},
			want: macro.RejectMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.engine.ResetHistory()

			res, err := f.bridge.InvokeRemote(context.Background(), "payload", tt.ref())
			var rejected *macro.RejectedError
			if !errors.As(err, &rejected) {
				t.Fatalf("expected RejectedError, got %v", err)
			}
			if rejected.Reason != tt.want {
				t.Errorf("reason = %s, want %s", rejected.Reason, tt.want)
			}
			if !errors.Is(err, macro.ErrRemoteRejected) {
				t.Error("RejectedError must match ErrRemoteRejected")
			}
			if res.OK() {
				t.Error("rejected invocation reported success")
			}
			if n := len(f.engine.History()); n != 0 {
				t.Errorf("engine evaluated %d texts for a rejected invocation", n)
			}
		})
	}
}

func TestInvokeRemote(t *testing.T) {
	f := newFixture(t, macro.Width64)
	f.engine.SetExecuting(false)
	ctx := context.Background()

	var got macro.Value
	if err := f.bridge.Register(echoMethod(&got)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	payload := `he said "hi" ) and left`
	res, err := f.bridge.InvokeRemote(ctx, payload, echoMethod(&got).Ref())
	if err != nil {
		t.Fatalf("InvokeRemote() failed: %v", err)
	}
	if !res.OK() || res.Message != payload {
		t.Errorf("InvokeRemote() = %+v", res)
	}
	if got != macro.Text(payload) {
		t.Errorf("handler received %q", got.Text())
	}
	if f.engine.IsExecuting() {
		t.Error("engine still executing after the invocation")
	}
	if f.engine.Objects() != 0 {
		t.Errorf("%d component instances leaked", f.engine.Objects())
	}
	if f.component.Slot().Full() {
		t.Errorf("slot still holds %v after the invocation", f.component.Slot().Fetch())
	}
}

func TestInvokeRemote_UnquotablePayload(t *testing.T) {
	f := newFixture(t, macro.Width64)
	f.engine.SetExecuting(false)
	ctx := context.Background()

	var got macro.Value
	if err := f.bridge.Register(echoMethod(&got)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	ran := false
	f.engine.RegisterStatement("escaped", func(context.Context, *sim.Call) (int64, error) {
		ran = true
		return 1, nil
	})

	payload := `a)MACRO_OF_SCOPENAME"); escaped 1; #_z = member(#_hmbridge_invoke, "MacroToDll", R"MACRO_OF_SCOPENAME(`
	res, err := f.bridge.InvokeRemote(ctx, payload, echoMethod(&got).Ref())

	var rejected *macro.RejectedError
	if !errors.As(err, &rejected) || rejected.Reason != macro.RejectPayload {
		t.Fatalf("expected an unquotable-payload rejection, got %v", err)
	}
	if res.OK() {
		t.Error("rejected invocation reported success")
	}
	if ran {
		t.Error("text after the raw terminator ran as macro statements")
	}
	if n := len(f.engine.History()); n != 0 {
		t.Errorf("engine evaluated %d texts for a rejected payload", n)
	}
	if got != (macro.Value{}) {
		t.Errorf("handler ran with %q", got.Text())
	}

	// The tag alone, without the closing quote, still travels intact.
	near := `x)MACRO_OF_SCOPENAME y`
	if _, err := f.bridge.InvokeRemote(ctx, near, echoMethod(&got).Ref()); err != nil {
		t.Fatalf("InvokeRemote() failed: %v", err)
	}
	if got != macro.Text(near) {
		t.Errorf("handler received %q, want %q", got.Text(), near)
	}
}

func TestInvokeRemote_HandlerUsesBridge(t *testing.T) {
	f := newFixture(t, macro.Width64)
	f.engine.SetExecuting(false)
	ctx := context.Background()

	err := f.bridge.Register(&mailbox.Method{
		Module: testModule,
		Type:   "Ext.Commands",
		Name:   "Remember",
		Public: true,
		Static: true,
		Handler: func(ctx context.Context, v macro.Value) error {
			return f.bridge.SetVar(ctx, "$remembered", v)
		},
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	ref := mailbox.MethodRef{Module: testModule, Type: "Ext.Commands", Name: "Remember", Public: true, Static: true}
	if _, err := f.bridge.InvokeRemote(ctx, "kept", ref); err != nil {
		t.Fatalf("InvokeRemote() failed: %v", err)
	}
	if v, _ := f.engine.Var("$remembered"); v.Text() != "kept" {
		t.Errorf("$remembered = %q", v.Text())
	}
}

func TestInvokeRemote_WhileExecuting(t *testing.T) {
	f := newFixture(t, macro.Width64)

	var got macro.Value
	if err := f.bridge.Register(echoMethod(&got)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	_, err := f.bridge.InvokeRemote(context.Background(), "x", echoMethod(&got).Ref())
	if !errors.Is(err, macro.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

// plainHost hides the engine's static variable support.
type plainHost struct {
	Host
}

func TestStaticVar(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	if err := f.bridge.SetStaticVar(ctx, "k", "v", true); err != nil {
		t.Fatalf("SetStaticVar() failed: %v", err)
	}
	got, err := f.bridge.StaticVar(ctx, "k", true)
	if err != nil {
		t.Fatalf("StaticVar() failed: %v", err)
	}
	if got != "v" {
		t.Errorf("StaticVar() = %q", got)
	}

	f.engine.SetVersion(914.99)
	_, err = f.bridge.StaticVar(ctx, "k", true)
	var unsupported *macro.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
	if unsupported.Required != StaticVariablesVersion {
		t.Errorf("Required = %v", unsupported.Required)
	}
}

func TestStaticVar_HostWithoutSupport(t *testing.T) {
	f := newFixture(t, macro.Width64)
	b := New(plainHost{f.engine}, f.component, Config{ComponentPath: testPath, ComponentClass: testClass}, zap.NewNop())

	if err := b.SetStaticVar(context.Background(), "k", "v", false); !errors.Is(err, macro.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestSetTotalText(t *testing.T) {
	for _, version := range []float64{930, SetTotalTextVersion} {
		f := newFixture(t, macro.Width64)
		f.engine.SetVersion(version)
		f.engine.Editor().SetText("old text")

		if err := f.bridge.SetTotalText(context.Background(), `new "text"`); err != nil {
			t.Fatalf("version %v: SetTotalText() failed: %v", version, err)
		}
		if got := f.engine.Editor().Text(); got != `new "text"` {
			t.Errorf("version %v: buffer = %q", version, got)
		}

		wantGroups := 1
		if version >= SetTotalTextVersion {
			wantGroups = 0
		}
		if got := f.engine.Editor().UndoGroups(); got != wantGroups {
			t.Errorf("version %v: undo groups = %d, want %d", version, got, wantGroups)
		}
		if f.component.Slot().Full() {
			t.Errorf("version %v: slot not cleared", version)
		}
	}
}

func TestSetTotalText_NotExecuting(t *testing.T) {
	f := newFixture(t, macro.Width64)
	f.engine.SetExecuting(false)

	if err := f.bridge.SetTotalText(context.Background(), "fresh"); err != nil {
		t.Fatalf("SetTotalText() failed: %v", err)
	}
	if f.engine.Editor().Text() != "fresh" {
		t.Errorf("buffer = %q", f.engine.Editor().Text())
	}
}

func TestSetSelectedText(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()
	ed := f.engine.Editor()
	ed.SetText("hello world")

	if err := f.bridge.SetSelectedText(ctx, "X"); err != nil {
		t.Fatalf("SetSelectedText() failed: %v", err)
	}
	if ed.Text() != "hello world" {
		t.Errorf("buffer changed without a selection: %q", ed.Text())
	}

	ed.Select(0, 5)
	if err := f.bridge.SetSelectedText(ctx, "goodbye"); err != nil {
		t.Fatalf("SetSelectedText() failed: %v", err)
	}
	if ed.Text() != "goodbye world" {
		t.Errorf("buffer = %q", ed.Text())
	}
}

func TestSetLineText(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ed := f.engine.Editor()
	ed.SetText("one\ntwo\nthree")

	if err := f.bridge.SetLineText(context.Background(), "TWO\n", 1, 2); err != nil {
		t.Fatalf("SetLineText() failed: %v", err)
	}
	if ed.Text() != "one\nTWO\nthree" {
		t.Errorf("buffer = %q", ed.Text())
	}
	if col, line := ed.Cursor(); col != 1 || line != 2 {
		t.Errorf("cursor = %d, %d; want 1, 2", col, line)
	}
	if ed.UndoGroups() != 1 {
		t.Errorf("undo groups = %d, want 1", ed.UndoGroups())
	}
}
