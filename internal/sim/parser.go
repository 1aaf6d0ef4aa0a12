package sim

import (
	"fmt"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

type stmt interface{}

type expr interface{}

type varRef struct {
	name  string
	index expr
}

type (
	assignStmt struct {
		target varRef
		value  expr
	}
	callStmt struct {
		name string
		args []expr
	}
	exprStmt struct {
		x expr
	}
	ifStmt struct {
		cond expr
		then []stmt
		els  []stmt
	}
	endStmt struct {
		value expr
	}
)

type (
	litExpr struct {
		v macro.Value
	}
	varExpr struct {
		ref varRef
	}
	callExpr struct {
		name string
		args []expr
	}
	identExpr struct {
		name string
	}
	unaryExpr struct {
		op string
		x  expr
	}
	binaryExpr struct {
		op   string
		l, r expr
	}
)

type parser struct {
	toks   []token
	pos    int
	isFunc func(string) bool
}

func parse(src string, isFunc func(string) bool) ([]stmt, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, isFunc: isFunc}
	return p.block(tokEOF, "")
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) is(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) expect(text string) error {
	if !p.is(text) {
		return p.errorf("expected %q, found %s", text, p.peek())
	}
	p.advance()
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.peek().pos, Message: fmt.Sprintf(format, args...)}
}

// block parses statements until a token of kind end (and text, for punctuation).
func (p *parser) block(end tokenKind, text string) ([]stmt, error) {
	var out []stmt
	for {
		t := p.peek()
		if t.kind == end && (text == "" || t.text == text) {
			return out, nil
		}
		if t.kind == tokEOF {
			return nil, p.errorf("unexpected end of text")
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
}

func (p *parser) statement() (stmt, error) {
	t := p.peek()
	switch {
	case t.kind == tokPunct && t.text == ";":
		p.advance()
		return nil, nil
	case t.kind == tokVar:
		return p.assignment()
	case t.kind == tokIdent && t.text == "if":
		return p.ifStatement()
	case t.kind == tokIdent && t.text == "endmacro":
		p.advance()
		s := &endStmt{}
		if !p.is(";") {
			v, err := p.expression()
			if err != nil {
				return nil, err
			}
			s.value = v
		}
		return s, p.expect(";")
	case t.kind == tokIdent:
		return p.call()
	}
	return nil, p.errorf("unexpected %s", t)
}

func (p *parser) variable() (varRef, error) {
	t := p.advance()
	ref := varRef{name: t.text}
	if p.is("[") {
		p.advance()
		idx, err := p.expression()
		if err != nil {
			return varRef{}, err
		}
		if err := p.expect("]"); err != nil {
			return varRef{}, err
		}
		ref.index = idx
	}
	return ref, nil
}

func (p *parser) assignment() (stmt, error) {
	target, err := p.variable()
	if err != nil {
		return nil, err
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	v, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &assignStmt{target: target, value: v}, p.expect(";")
}

func (p *parser) ifStatement() (stmt, error) {
	p.advance()
	if err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	s := &ifStmt{cond: cond}
	if s.then, err = p.braced(); err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokIdent && t.text == "else" {
		p.advance()
		if s.els, err = p.braced(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) braced() ([]stmt, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	body, err := p.block(tokPunct, "}")
	if err != nil {
		return nil, err
	}
	return body, p.expect("}")
}

// call parses "name args;" or, for known functions, "name(args);".
func (p *parser) call() (stmt, error) {
	name := p.peek().text
	if p.isFunc(name) && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "(" {
		x, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &exprStmt{x: x}, p.expect(";")
	}

	p.advance()
	s := &callStmt{name: name}
	if p.is(";") {
		p.advance()
		return s, nil
	}
	args, err := p.list(";")
	if err != nil {
		return nil, err
	}
	s.args = args
	return s, p.expect(";")
}

// list parses comma-separated expressions up to, but not including, end.
func (p *parser) list(end string) ([]expr, error) {
	var args []expr
	if p.is(end) {
		return args, nil
	}
	for {
		x, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, x)
		if !p.is(",") {
			return args, nil
		}
		p.advance()
	}
}

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6,
}

func (p *parser) expression() (expr, error) {
	return p.binary(1)
}

func (p *parser) binary(minPrec int) (expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := precedence[t.text]
		if t.kind != tokPunct || !ok || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: t.text, l: left, r: right}
	}
}

func (p *parser) unary() (expr, error) {
	if p.is("-") || p.is("!") {
		op := p.advance().text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: op, x: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (expr, error) {
	t := p.peek()
	switch t.kind {
	case tokInt:
		p.advance()
		return &litExpr{v: macro.Int(t.num)}, nil
	case tokString:
		p.advance()
		return &litExpr{v: macro.Text(t.text)}, nil
	case tokVar:
		ref, err := p.variable()
		if err != nil {
			return nil, err
		}
		return &varExpr{ref: ref}, nil
	case tokIdent:
		p.advance()
		if !p.is("(") {
			return &identExpr{name: t.text}, nil
		}
		p.advance()
		args, err := p.list(")")
		if err != nil {
			return nil, err
		}
		return &callExpr{name: t.text, args: args}, p.expect(")")
	case tokPunct:
		if t.text == "(" {
			p.advance()
			x, err := p.expression()
			if err != nil {
				return nil, err
			}
			return x, p.expect(")")
		}
	}
	return nil, p.errorf("unexpected %s", t)
}
