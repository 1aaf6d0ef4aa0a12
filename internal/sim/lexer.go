package sim

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokString
	tokVar
	tokIdent
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	num  int64
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of text"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return t.text
	}
}

// SyntaxError occurs when macro text cannot be tokenized or parsed.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Message)
}

var punctuation = []string{
	"==", "!=", "<=", ">=", "&&", "||",
	";", ",", "(", ")", "{", "}", "[", "]", "=", "<", ">", "+", "-", "*", "/", "!",
}

type lexer struct {
	src string
	pos int
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: lx.pos, Message: fmt.Sprintf(format, args...)}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			lx.pos++
		case strings.HasPrefix(lx.src[lx.pos:], "//"):
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	rest := lx.src[lx.pos:]
	c := rest[0]

	switch {
	case strings.HasPrefix(rest, `@"`):
		lx.pos += 2
		return lx.verbatim(start)
	case strings.HasPrefix(rest, `R"`):
		lx.pos += 2
		return lx.raw(start)
	case c == '"':
		lx.pos++
		return lx.quoted(start)
	case c == '#' || c == '$':
		return lx.variable(start)
	case isDigit(c):
		return lx.number(start)
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokIdent, text: lx.src[start:lx.pos], pos: start}, nil
	}

	for _, p := range punctuation {
		if strings.HasPrefix(rest, p) {
			lx.pos += len(p)
			return token{kind: tokPunct, text: p, pos: start}, nil
		}
	}
	return token{}, lx.errorf("unexpected character %q", c)
}

// verbatim reads @"..." where "" stands for one quote.
func (lx *lexer) verbatim(start int) (token, error) {
	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == '"' {
			if lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '"' {
				sb.WriteByte('"')
				lx.pos += 2
				continue
			}
			lx.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		sb.WriteByte(c)
		lx.pos++
	}
	return token{}, &SyntaxError{Pos: start, Message: "unterminated verbatim string"}
}

// raw reads R"TAG(...)TAG".
func (lx *lexer) raw(start int) (token, error) {
	open := strings.IndexByte(lx.src[lx.pos:], '(')
	if open < 0 {
		return token{}, &SyntaxError{Pos: start, Message: "raw string without delimiter"}
	}
	tag := lx.src[lx.pos : lx.pos+open]
	body := lx.pos + open + 1
	end := strings.Index(lx.src[body:], ")"+tag+`"`)
	if end < 0 {
		return token{}, &SyntaxError{Pos: start, Message: "unterminated raw string"}
	}
	lx.pos = body + end + len(tag) + 2
	return token{kind: tokString, text: lx.src[body : body+end], pos: start}, nil
}

func (lx *lexer) quoted(start int) (token, error) {
	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '"':
			lx.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		case '\\':
			if lx.pos+1 >= len(lx.src) {
				return token{}, &SyntaxError{Pos: start, Message: "unterminated string"}
			}
			switch e := lx.src[lx.pos+1]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(e)
			}
			lx.pos += 2
		default:
			sb.WriteByte(c)
			lx.pos++
		}
	}
	return token{}, &SyntaxError{Pos: start, Message: "unterminated string"}
}

// variable reads #name, ##name, $name or $$name.
func (lx *lexer) variable(start int) (token, error) {
	sigil := lx.src[lx.pos]
	lx.pos++
	if lx.pos < len(lx.src) && lx.src[lx.pos] == sigil {
		lx.pos++
	}
	nameStart := lx.pos
	for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}
	if lx.pos == nameStart {
		return token{}, lx.errorf("variable without a name")
	}
	return token{kind: tokVar, text: lx.src[start:lx.pos], pos: start}, nil
}

func (lx *lexer) number(start int) (token, error) {
	base := 10
	if strings.HasPrefix(lx.src[lx.pos:], "0x") {
		base = 16
		lx.pos += 2
	}
	digits := lx.pos
	for lx.pos < len(lx.src) && isHexDigit(lx.src[lx.pos]) && (base == 16 || isDigit(lx.src[lx.pos])) {
		lx.pos++
	}
	n, err := strconv.ParseInt(lx.src[digits:lx.pos], base, 64)
	if err != nil {
		return token{}, &SyntaxError{Pos: start, Message: fmt.Sprintf("bad number: %v", err)}
	}
	return token{kind: tokInt, text: lx.src[start:lx.pos], num: n, pos: start}, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
