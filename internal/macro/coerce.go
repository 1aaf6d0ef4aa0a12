package macro

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const twoTo32 = int64(1) << 32

// Coercer normalizes arbitrary Go values into macro values for one native width.
type Coercer struct {
	width Width
}

// NewCoercer returns a coercer for the given width. A zero width selects
// NativeWidth.
func NewCoercer(w Width) *Coercer {
	if w == 0 {
		w = NativeWidth
	}
	return &Coercer{width: w}
}

// Width returns the native width the coercer targets.
func (c *Coercer) Width() Width {
	return c.width
}

// Coerce converts v into a macro value. Booleans map to 1/0, string-like
// values become text, and everything else goes through ToInteger. Lists are
// not single values; use Classify for them.
func (c *Coercer) Coerce(v any) Value {
	switch val := v.(type) {
	case Value:
		return val
	case bool:
		return boolValue(val)
	}
	if s, ok := stringLike(v); ok {
		return Text(s)
	}
	out, _ := c.ToInteger(v)
	return out
}

// ToInteger applies integer-kind coercion. The second result is false when
// neither an integer nor a float could be parsed and the value fell back to 0.
//
// On a 32-bit width, integers outside the int32 range wrap around. Floats
// never wrap: they are clamped to the width's range and truncated toward zero.
func (c *Coercer) ToInteger(v any) (Value, bool) {
	switch val := v.(type) {
	case bool:
		return boolValue(val), true
	case Value:
		if !val.IsText() {
			return Int(c.width.Truncate(val.Int())), true
		}
		v = val.Text()
	}

	s := strings.TrimSpace(fmt.Sprint(v))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if c.width == Width32 {
			return Int(Wrap32(n)), true
		}
		return Int(n), true
	}

	var d float64
	switch f := v.(type) {
	case float64:
		d = f
	case float32:
		d = float64(f)
	default:
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Int(0), false
		}
		d = parsed
	}
	return Int(ClampFloat(d, c.width)), true
}

// Wrap32 reduces x into the int32 range modulo 2^32, the way a 32-bit
// register truncates it.
func Wrap32(x int64) int64 {
	if x >= math.MinInt32 && x <= math.MaxInt32 {
		return x
	}
	r := (x - math.MinInt32) % twoTo32
	if r < 0 {
		r += twoTo32
	}
	return r + math.MinInt32
}

// ClampFloat saturates d to the width's range and truncates toward zero.
// NaN compares below every bound and yields the minimum.
func ClampFloat(d float64, w Width) int64 {
	if math.IsNaN(d) {
		return w.Min()
	}
	if d <= float64(w.Min()) {
		return w.Min()
	}
	// float64(MaxInt64) rounds up to 2^63, so compare with >=.
	if w == Width64 && d >= float64(math.MaxInt64) {
		return w.Max()
	}
	if d > float64(w.Max()) {
		return w.Max()
	}
	return int64(math.Trunc(d))
}

func boolValue(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func stringLike(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case *strings.Builder:
		return val.String(), true
	case *bytes.Buffer:
		return val.String(), true
	}
	return "", false
}

// TextOf renders v as macro text: string-like values as is, booleans as 1/0,
// macro values by their printed form, everything else with fmt.
func TextOf(v any) string {
	switch val := v.(type) {
	case Value:
		return val.String()
	case bool:
		return boolValue(val).String()
	}
	if s, ok := stringLike(v); ok {
		return s
	}
	return fmt.Sprint(v)
}
