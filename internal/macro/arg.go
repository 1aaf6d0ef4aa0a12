package macro

// Shape distinguishes scalar arguments from homogeneous arrays.
type Shape int

const (
	Scalar Shape = iota + 1
	Array
)

// Arg is an argument normalized at the API boundary: a scalar value or a
// homogeneous array of one kind.
type Arg struct {
	Shape Shape
	Kind  Kind
	Value Value
	Items []Value
}

// ScalarArg wraps a single value.
func ScalarArg(v Value) Arg {
	return Arg{Shape: Scalar, Kind: v.Kind(), Value: v}
}

// ArrayArg wraps items that all share kind k.
func ArrayArg(k Kind, items []Value) Arg {
	return Arg{Shape: Array, Kind: k, Items: items}
}

// IsArray reports whether the argument expands into indexed siblings.
func (a Arg) IsArray() bool {
	return a.Shape == Array
}

// Any returns the argument as int64, string, or a slice of those.
func (a Arg) Any() any {
	if a.Shape != Array {
		return a.Value.Any()
	}
	if a.Kind == KindText {
		out := make([]string, len(a.Items))
		for i, it := range a.Items {
			out[i] = it.Text()
		}
		return out
	}
	out := make([]int64, len(a.Items))
	for i, it := range a.Items {
		out[i] = it.Int()
	}
	return out
}

// Classify decides once whether v is a scalar or an array argument and
// normalizes it. Integer arrays are truncated to the coercer's width.
func (c *Coercer) Classify(v any) Arg {
	switch list := v.(type) {
	case Arg:
		return list
	case []int:
		return intArray(c, len(list), func(i int) int64 { return int64(list[i]) })
	case []int32:
		return intArray(c, len(list), func(i int) int64 { return int64(list[i]) })
	case []int64:
		return intArray(c, len(list), func(i int) int64 { return list[i] })
	case []uintptr:
		return intArray(c, len(list), func(i int) int64 { return int64(list[i]) })
	case []string:
		items := make([]Value, len(list))
		for i, s := range list {
			items[i] = Text(s)
		}
		return ArrayArg(KindText, items)
	}
	return ScalarArg(c.Coerce(v))
}

func intArray(c *Coercer, n int, at func(int) int64) Arg {
	items := make([]Value, n)
	for i := range items {
		items[i] = Int(c.width.Truncate(at(i)))
	}
	return ArrayArg(KindInteger, items)
}
