package macro

import (
	"math"
	"strconv"
)

// Kind is one of the two value kinds the macro engine understands.
type Kind int

const (
	KindInteger Kind = iota + 1
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is a macro-native value: a native-width integer or a string.
// The zero Value is Int(0).
type Value struct {
	kind Kind
	i    int64
	s    string
}

// Int returns an integer-kind value.
func Int(v int64) Value {
	return Value{kind: KindInteger, i: v}
}

// Text returns a text-kind value.
func Text(s string) Value {
	return Value{kind: KindText, s: s}
}

// Zero returns the reset value for a kind: 0 or "".
func Zero(k Kind) Value {
	if k == KindText {
		return Text("")
	}
	return Int(0)
}

// Kind reports the value kind.
func (v Value) Kind() Kind {
	if v.kind == 0 {
		return KindInteger
	}
	return v.kind
}

// IsText reports whether v is text-kind.
func (v Value) IsText() bool {
	return v.kind == KindText
}

// Int returns the integer payload. Text values yield 0.
func (v Value) Int() int64 {
	return v.i
}

// Text returns the string payload. Integer values yield "".
func (v Value) Text() string {
	return v.s
}

// String renders the value the way the macro engine would print it.
func (v Value) String() string {
	if v.kind == KindText {
		return v.s
	}
	return strconv.FormatInt(v.i, 10)
}

// Any returns the payload as int64 or string.
func (v Value) Any() any {
	if v.kind == KindText {
		return v.s
	}
	return v.i
}

// Width is the native integer width of the macro engine in bits.
type Width int

const (
	Width32 Width = 32
	Width64 Width = 64
)

// NativeWidth is the pointer width of the running process.
var NativeWidth = Width(strconv.IntSize)

// ParseWidth maps a configured width to a Width. Zero selects NativeWidth.
func ParseWidth(bits int) (Width, bool) {
	switch bits {
	case 0:
		return NativeWidth, true
	case 32:
		return Width32, true
	case 64:
		return Width64, true
	default:
		return 0, false
	}
}

// Min returns the smallest representable integer for the width.
func (w Width) Min() int64 {
	if w == Width32 {
		return math.MinInt32
	}
	return math.MinInt64
}

// Max returns the largest representable integer for the width.
func (w Width) Max() int64 {
	if w == Width32 {
		return math.MaxInt32
	}
	return math.MaxInt64
}

// Clamp saturates x into the width's range.
func (w Width) Clamp(x int64) int64 {
	if x < w.Min() {
		return w.Min()
	}
	if x > w.Max() {
		return w.Max()
	}
	return x
}

// Truncate reduces x to the width the way a register of that width would.
func (w Width) Truncate(x int64) int64 {
	if w == Width32 {
		return Wrap32(x)
	}
	return x
}
