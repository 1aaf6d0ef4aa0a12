package bridge

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/internal/sim"
)

// assertReset checks that every temporary the call wrote is back at its
// kind's zero value.
func assertReset(t *testing.T, f *fixture, names []string) {
	t.Helper()
	for _, name := range names {
		if name == "#_hmbridge_mailbox" {
			continue
		}
		v, ok := f.engine.Var(name)
		if !ok {
			t.Errorf("%s was never written", name)
			continue
		}
		if v != macro.Zero(v.Kind()) {
			t.Errorf("%s = %v after the call, want zero value", name, v)
		}
	}
}

func TestStatement_Gotoline(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	var got []macro.Value
	f.engine.RegisterStatement("gotoline", func(_ context.Context, c *sim.Call) (int64, error) {
		got = c.Args
		return 1, nil
	})

	res, err := f.bridge.Statement(ctx, "gotoline", 5)
	if err != nil {
		t.Fatalf("Statement() failed: %v", err)
	}
	if res.Result != 1 {
		t.Errorf("Result = %d, want 1", res.Result)
	}
	if len(got) != 1 || got[0] != macro.Int(5) {
		t.Errorf("statement received %v", got)
	}

	re := regexp.MustCompile(`^gotoline (#AsMacroArs_\d+_\d+);\n$`)
	var temp string
	for _, text := range f.engine.History() {
		if m := re.FindStringSubmatch(text); m != nil {
			temp = m[1]
		}
	}
	if temp == "" {
		t.Fatalf("no statement text in history:\n%s", strings.Join(f.engine.History(), "---\n"))
	}

	if v, ok := f.engine.Var(temp); !ok || v != macro.Int(0) {
		t.Errorf("%s = %v after the call, want 0", temp, v)
	}
}

func TestStatement_OutArguments(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	f.engine.RegisterStatement("getpos", func(_ context.Context, c *sim.Call) (int64, error) {
		if err := c.Set(0, macro.Int(10)); err != nil {
			return 0, err
		}
		if err := c.Set(1, macro.Text("line")); err != nil {
			return 0, err
		}
		return 3, nil
	})

	res, err := f.bridge.Statement(ctx, "getpos", 0, "")
	if err != nil {
		t.Fatalf("Statement() failed: %v", err)
	}

	want := []macro.Arg{
		macro.ScalarArg(macro.Int(10)),
		macro.ScalarArg(macro.Text("line")),
	}
	if diff := cmp.Diff(want, res.Args, cmp.AllowUnexported(macro.Value{})); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
	if res.Result != 3 {
		t.Errorf("Result = %d, want 3", res.Result)
	}
	assertReset(t, f, f.assigned())
}

func TestStatement_ArrayArguments(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	var ints, strs []macro.Value
	f.engine.RegisterStatement("fill", func(_ context.Context, c *sim.Call) (int64, error) {
		ints = c.Items(0)
		strs = c.Items(1)
		return int64(len(ints) + len(strs)), nil
	})

	res, err := f.bridge.Statement(ctx, "fill", []int{1, 2, 3}, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Statement() failed: %v", err)
	}

	if diff := cmp.Diff([]macro.Value{macro.Text("1"), macro.Text("2"), macro.Text("3")}, ints,
		cmp.AllowUnexported(macro.Value{})); diff != "" {
		t.Errorf("integer array mismatch (-want +got):\n%s", diff)
	}
	if len(strs) != 2 || strs[1] != macro.Text("b") {
		t.Errorf("string array = %v", strs)
	}
	if res.Result != 5 {
		t.Errorf("Result = %d, want 5", res.Result)
	}

	wantArgs := []macro.Arg{
		macro.ArrayArg(macro.KindInteger, []macro.Value{macro.Int(1), macro.Int(2), macro.Int(3)}),
		macro.ArrayArg(macro.KindText, []macro.Value{macro.Text("a"), macro.Text("b")}),
	}
	if diff := cmp.Diff(wantArgs, res.Args, cmp.AllowUnexported(macro.Value{})); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}

	names := f.assigned()
	for _, prefix := range []string{"$AsIntArrayOfMacroArs_", "$AsStrArrayOfMacroArs_"} {
		found := false
		for _, n := range names {
			if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, "[0]") {
				found = true
			}
		}
		if !found {
			t.Errorf("no %s temporaries written", prefix)
		}
	}
	assertReset(t, f, names)
}

func TestStatement_Width32Arguments(t *testing.T) {
	f := newFixture(t, macro.Width32)
	ctx := context.Background()

	var scalar macro.Value
	var items []macro.Value
	f.engine.RegisterStatement("fill", func(_ context.Context, c *sim.Call) (int64, error) {
		scalar = c.Arg(0)
		items = c.Items(1)
		return 1, nil
	})

	res, err := f.bridge.Statement(ctx, "fill", int64(1<<32+5), []int64{1 << 32, -(1 << 31) - 1})
	if err != nil {
		t.Fatalf("Statement() failed: %v", err)
	}

	if scalar != macro.Int(5) {
		t.Errorf("scalar argument = %v, want 5", scalar)
	}
	if diff := cmp.Diff([]macro.Value{macro.Text("0"), macro.Text("2147483647")}, items,
		cmp.AllowUnexported(macro.Value{})); diff != "" {
		t.Errorf("array items mismatch (-want +got):\n%s", diff)
	}

	wantArgs := []macro.Arg{
		macro.ScalarArg(macro.Int(5)),
		macro.ArrayArg(macro.KindInteger, []macro.Value{macro.Int(0), macro.Int(math.MaxInt32)}),
	}
	if diff := cmp.Diff(wantArgs, res.Args, cmp.AllowUnexported(macro.Value{})); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
	assertReset(t, f, f.assigned())
}

func TestStatement_ResultClampedToInt32(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	f.engine.RegisterStatement("big", func(context.Context, *sim.Call) (int64, error) { return 1 << 40, nil })
	f.engine.RegisterStatement("small", func(context.Context, *sim.Call) (int64, error) { return -(1 << 40), nil })

	for name, want := range map[string]int64{"big": math.MaxInt32, "small": math.MinInt32} {
		res, err := f.bridge.Statement(ctx, name)
		if err != nil {
			t.Fatalf("Statement(%s) failed: %v", name, err)
		}
		if res.Result != want {
			t.Errorf("Statement(%s).Result = %d, want %d", name, res.Result, want)
		}
	}
}

func TestStatement_SearchOptionFlags(t *testing.T) {
	for _, w := range []macro.Width{macro.Width32, macro.Width64} {
		f := newFixture(t, w)
		ctx := context.Background()

		var got macro.Value
		f.engine.RegisterStatement("searchdown", func(_ context.Context, c *sim.Call) (int64, error) {
			got = c.Arg(1)
			return 1, nil
		})

		flags := macro.EnableSearchOption2(w) | macro.SearchCasesense | macro.SearchRegular
		if _, err := f.bridge.Statement(ctx, "searchdown", "needle", flags); err != nil {
			t.Fatalf("width %d: Statement() failed: %v", w, err)
		}
		if got != macro.Int(flags) {
			t.Errorf("width %d: searchoption = %v, want %d", w, got, flags)
		}
	}
}

func TestStatement_FailureStillResets(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	res, err := f.bridge.Statement(ctx, "nosuchstatement", 7, "text", []int{1})
	if !errors.Is(err, macro.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if res.Result != 0 {
		t.Errorf("Result = %d, want 0", res.Result)
	}
	if len(res.Args) != 3 {
		t.Errorf("Args has %d entries, want the 3 inputs", len(res.Args))
	}
	assertReset(t, f, f.assigned())
}

func TestStatement_SharedBase(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()
	f.engine.RegisterStatement("noop", func(context.Context, *sim.Call) (int64, error) { return 1, nil })

	for i := 0; i < 2; i++ {
		if _, err := f.bridge.Statement(ctx, "noop", i); err != nil {
			t.Fatalf("Statement() failed: %v", err)
		}
	}

	re := regexp.MustCompile(`^noop #AsMacroArs_(\d+)_\d+;\n$`)
	var bases []string
	for _, text := range f.engine.History() {
		if m := re.FindStringSubmatch(text); m != nil {
			bases = append(bases, m[1])
		}
	}
	if len(bases) != 2 || bases[0] != bases[1] {
		t.Errorf("statement bases = %v, want one base reused", bases)
	}
}

func TestCallFunction_String(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	f.engine.RegisterFunction("getfilename", func(context.Context, *sim.Call) (macro.Value, error) {
		return macro.Text(`C:\docs\a.txt`), nil
	})

	res, err := CallFunction[string](ctx, f.bridge, "getfilename")
	if err != nil {
		t.Fatalf("CallFunction() failed: %v", err)
	}
	if res.Result != `C:\docs\a.txt` {
		t.Errorf("Result = %q", res.Result)
	}

	found := false
	for _, text := range f.engine.History() {
		if text == "$$_tmp_dll_expression_ret = getfilename();\n" {
			found = true
		}
	}
	if !found {
		t.Errorf("pinned expression not evaluated:\n%s", strings.Join(f.engine.History(), "---\n"))
	}

	if v, _ := f.engine.Var("$$_tmp_dll_expression_ret"); v != macro.Text("") {
		t.Errorf("scratch variable = %q after the call, want empty", v.Text())
	}
}

func TestCallFunction_Numeric(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	f.engine.RegisterFunction("add", func(_ context.Context, c *sim.Call) (macro.Value, error) {
		return macro.Int(c.Arg(0).Int() + c.Arg(1).Int()), nil
	})

	res, err := CallFunction[int64](ctx, f.bridge, "add", 40, 2)
	if err != nil {
		t.Fatalf("CallFunction() failed: %v", err)
	}
	if res.Result != 42 {
		t.Errorf("Result = %d, want 42", res.Result)
	}

	dres, err := CallFunction[float64](ctx, f.bridge, "add", 1, true)
	if err != nil {
		t.Fatalf("CallFunction() failed: %v", err)
	}
	if dres.Result != 2 {
		t.Errorf("Result = %v, want 2", dres.Result)
	}

	if v, _ := f.engine.Var("##_tmp_dll_expression_ret"); v != macro.Int(0) {
		t.Errorf("scratch variable = %v after the call, want 0", v)
	}
	assertReset(t, f, f.assigned())
}

func TestCallFunction_Failure(t *testing.T) {
	f := newFixture(t, macro.Width64)

	_, err := CallFunction[int](context.Background(), f.bridge, "nosuchfunction", 1)
	if !errors.Is(err, macro.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	assertReset(t, f, f.assigned())
}

func TestFunction_Unpinned(t *testing.T) {
	f := newFixture(t, macro.Width64)
	ctx := context.Background()

	f.engine.RegisterFunction("upper", func(_ context.Context, c *sim.Call) (macro.Value, error) {
		return macro.Text(strings.ToUpper(c.Arg(0).Text())), nil
	})

	res, err := f.bridge.Function(ctx, "upper", "abc")
	if err != nil {
		t.Fatalf("Function() failed: %v", err)
	}
	if res.Result != macro.Text("ABC") {
		t.Errorf("Result = %v", res.Result)
	}

	// The readback is the evaluation, so its failure is the call's error.
	if _, err := f.bridge.Function(ctx, "nosuchfunction"); !errors.Is(err, macro.ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation, got %v", err)
	}
	assertReset(t, f, f.assigned())
}
