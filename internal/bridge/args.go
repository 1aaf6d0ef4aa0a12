package bridge

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

const maxTag = 32767

type callKind int

const (
	statementCall callKind = iota
	functionCall
)

// namer hands out temporary variable tags. Each call kind gets one random
// base for the life of the bridge; each call seeds a counter that advances
// once per argument. This avoids reusing names across sequential calls but
// does not make concurrent calls safe.
type namer struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	bases [2]int
}

func newNamer(rnd *rand.Rand) *namer {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &namer{rnd: rnd}
}

// tag returns a value in 1..32767.
func (n *namer) tag() int {
	return n.rnd.IntN(maxTag) + 1
}

func (n *namer) base(k callKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bases[k] == 0 {
		n.bases[k] = n.tag()
	}
	return n.bases[k]
}

func (n *namer) seed() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tag()
}

// binding is one argument bound to its temporary variable.
type binding struct {
	name string
	arg  macro.Arg
}

func tempName(arg macro.Arg, base, counter int) string {
	var prefix string
	switch {
	case arg.IsArray() && arg.Kind == macro.KindText:
		prefix = "$AsStrArrayOfMacroArs_"
	case arg.IsArray():
		prefix = "$AsIntArrayOfMacroArs_"
	case arg.Kind == macro.KindText:
		prefix = "$AsMacroArs_"
	default:
		prefix = "#AsMacroArs_"
	}
	return prefix + strconv.Itoa(base) + "_" + strconv.Itoa(counter)
}

func element(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}

// bind classifies each argument and writes it into a fresh temporary. When a
// write fails the temporaries written so far are reset before returning.
func (b *Bridge) bind(ctx context.Context, k callKind, args []any) ([]binding, error) {
	base := b.names.base(k)
	counter := b.names.seed()

	bindings := make([]binding, 0, len(args))
	for _, v := range args {
		counter++
		arg := b.coercer.Classify(v)
		bd := binding{name: tempName(arg, base, counter), arg: arg}
		bindings = append(bindings, bd)

		if err := b.write(ctx, bd); err != nil {
			b.release(ctx, bindings, "")
			return nil, err
		}
	}
	return bindings, nil
}

func (b *Bridge) write(ctx context.Context, bd binding) error {
	if !bd.arg.IsArray() {
		return b.SetVar(ctx, bd.name, bd.arg.Value)
	}
	for i, item := range bd.arg.Items {
		if err := b.SetVar(ctx, element(bd.name, i), item); err != nil {
			return err
		}
	}
	return nil
}

// keys joins the temporaries the way the engine expects an argument list.
func keys(bindings []binding) string {
	names := make([]string, len(bindings))
	for i, bd := range bindings {
		names[i] = bd.name
	}
	return strings.Join(names, ", ")
}

// readBack collects out parameters in declaration order. Scalars are read
// from the engine; arrays report the items they were bound with. A failed
// read keeps the bound value.
func (b *Bridge) readBack(ctx context.Context, bindings []binding) []macro.Arg {
	out := make([]macro.Arg, len(bindings))
	for i, bd := range bindings {
		out[i] = bd.arg
		if bd.arg.IsArray() {
			continue
		}
		v, err := b.GetVar(ctx, bd.name)
		if err != nil {
			b.logger.Debug("Out argument not read", zap.String("variable", bd.name), zap.Error(err))
			continue
		}
		out[i] = macro.ScalarArg(v)
	}
	return out
}

// inputs returns the normalized arguments without reading the engine.
func inputs(bindings []binding) []macro.Arg {
	out := make([]macro.Arg, len(bindings))
	for i, bd := range bindings {
		out[i] = bd.arg
	}
	return out
}

// release resets every temporary, and scratch when set, to its kind's zero
// value. Failures are logged, never returned.
func (b *Bridge) release(ctx context.Context, bindings []binding, scratch string) {
	var errs error
	for _, bd := range bindings {
		if !bd.arg.IsArray() {
			errs = multierr.Append(errs, b.SetVar(ctx, bd.name, macro.Zero(bd.arg.Kind)))
			continue
		}
		// Array elements live in $ variables.
		for i := range bd.arg.Items {
			errs = multierr.Append(errs, b.SetVar(ctx, element(bd.name, i), macro.Text("")))
		}
	}
	if scratch != "" {
		errs = multierr.Append(errs, b.SetVar(ctx, scratch, zeroFor(scratch)))
	}
	if errs != nil {
		b.logger.Warn("Temporary variables not reset",
			zap.Int("failures", len(multierr.Errors(errs))),
			zap.Error(errs),
		)
	}
}

func zeroFor(name string) macro.Value {
	if strings.HasPrefix(name, "#") {
		return macro.Int(0)
	}
	return macro.Text("")
}
