package bridge

import (
	"fmt"
	"strings"

	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// Verbatim quotes s as a verbatim macro string literal: @"..." with embedded
// quotes doubled.
func Verbatim(s string) string {
	return `@"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Raw quotes s as R"TAG(...)TAG". Check s with Quotable first.
func Raw(s string) string {
	return `R"` + protocol.RawTag + "(" + s + ")" + protocol.RawTag + `"`
}

// Quotable reports whether s fits in Raw without closing the literal early.
func Quotable(s string) bool {
	return !strings.Contains(s, ")"+protocol.RawTag+`"`)
}

func quote(s string) string {
	return `"` + s + `"`
}

// createObject assigns a new mailbox component instance to v.
func (b *Bridge) createObject(v string) string {
	return fmt.Sprintf("%s = createobject(%s, %s );\n", v, Verbatim(b.path), Verbatim(b.class))
}

func releaseObject(v string) string {
	return "releaseobject(" + v + ");\n"
}

// fetchExpr is the expression that yields the slot's value inside macro text.
func fetchExpr(v string) string {
	return fmt.Sprintf("member(%s, %s )", v, quote(protocol.MemberDllToMacro))
}
