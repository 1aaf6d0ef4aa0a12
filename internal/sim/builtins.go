package sim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

// Call carries the evaluated arguments of a statement or function call.
type Call struct {
	Name   string
	Args   []macro.Value
	refs   []string
	engine *Engine
}

// Arg returns argument i, or Int(0) when it was not passed.
func (c *Call) Arg(i int) macro.Value {
	if i < 0 || i >= len(c.Args) {
		return macro.Int(0)
	}
	return c.Args[i]
}

// Ref returns the variable name passed as argument i, or "" when the argument
// was not a plain variable.
func (c *Call) Ref(i int) string {
	if i < 0 || i >= len(c.refs) {
		return ""
	}
	return c.refs[i]
}

// Set writes v back into the variable passed as argument i.
func (c *Call) Set(i int, v macro.Value) error {
	name := c.Ref(i)
	if name == "" {
		return &RuntimeError{Op: c.Name, Message: fmt.Sprintf("argument %d is not a variable", i+1)}
	}
	return c.engine.assign(name, v)
}

// Items reads the array whose name was passed as argument i: name[0],
// name[1], ... up to the first element never assigned.
func (c *Call) Items(i int) []macro.Value {
	name := c.Ref(i)
	if name == "" {
		return nil
	}
	var items []macro.Value
	for k := 0; ; k++ {
		v, ok := c.engine.Var(name + "[" + strconv.Itoa(k) + "]")
		if !ok {
			return items
		}
		items = append(items, v)
	}
}

func (c *Call) expect(n int) error {
	if len(c.Args) < n {
		return &RuntimeError{Op: c.Name, Message: fmt.Sprintf("takes %d argument(s), got %d", n, len(c.Args))}
	}
	return nil
}

func (c *Call) text(i int) (string, error) {
	v := c.Arg(i)
	if !v.IsText() {
		return "", &RuntimeError{Op: c.Name, Message: fmt.Sprintf("argument %d must be text", i+1)}
	}
	return v.Text(), nil
}

func (c *Call) integer(i int) (int64, error) {
	v := c.Arg(i)
	if v.IsText() {
		return 0, &RuntimeError{Op: c.Name, Message: fmt.Sprintf("argument %d must be an integer", i+1)}
	}
	return v.Int(), nil
}

func (e *Engine) registerBuiltins() {
	e.functions["createobject"] = e.createObject
	e.functions["member"] = e.member
	e.functions["releaseobject"] = e.releaseObject
	e.functions["getstaticvariable"] = e.getStaticVariable
	e.functions["str"] = func(_ context.Context, c *Call) (macro.Value, error) {
		return macro.Text(c.Arg(0).String()), nil
	}
	e.functions["val"] = func(_ context.Context, c *Call) (macro.Value, error) {
		n, _ := strconv.ParseInt(strings.TrimSpace(c.Arg(0).String()), 10, 64)
		return macro.Int(e.width.Truncate(n)), nil
	}
	e.functions["strlen"] = func(_ context.Context, c *Call) (macro.Value, error) {
		return macro.Int(int64(utf8.RuneCountInString(c.Arg(0).String()))), nil
	}
	e.functions["version"] = func(context.Context, *Call) (macro.Value, error) {
		return macro.Int(int64(e.Version())), nil
	}
	e.functions["selecting"] = func(context.Context, *Call) (macro.Value, error) {
		return boolInt(e.editor.Selecting()), nil
	}
	e.functions["gettotaltext"] = func(context.Context, *Call) (macro.Value, error) {
		return macro.Text(e.editor.Text()), nil
	}
	e.functions["gettext"] = func(context.Context, *Call) (macro.Value, error) {
		return macro.Text(e.editor.Selected()), nil
	}

	e.statements["setstaticvariable"] = e.setStaticVariable
	e.statements["insert"] = func(_ context.Context, c *Call) (int64, error) {
		s, err := c.text(0)
		if err != nil {
			return 0, err
		}
		e.editor.Insert(s)
		return 1, nil
	}
	e.statements["settotaltext"] = func(_ context.Context, c *Call) (int64, error) {
		s, err := c.text(0)
		if err != nil {
			return 0, err
		}
		e.editor.SetText(s)
		return 1, nil
	}
	e.statements["selectall"] = func(context.Context, *Call) (int64, error) {
		e.editor.SelectAll()
		return 1, nil
	}
	e.statements["selectline"] = func(context.Context, *Call) (int64, error) {
		e.editor.SelectLine()
		return 1, nil
	}
	e.statements["escape"] = func(context.Context, *Call) (int64, error) {
		e.editor.Escape()
		return 1, nil
	}
	e.statements["moveto2"] = func(_ context.Context, c *Call) (int64, error) {
		col, err := c.integer(0)
		if err != nil {
			return 0, err
		}
		line, err := c.integer(1)
		if err != nil {
			return 0, err
		}
		e.editor.MoveTo(int(col), int(line))
		return 1, nil
	}
	e.statements["begingroupundo"] = func(context.Context, *Call) (int64, error) {
		e.editor.BeginGroupUndo()
		return 1, nil
	}
	e.statements["endgroupundo"] = func(context.Context, *Call) (int64, error) {
		if err := e.editor.EndGroupUndo(); err != nil {
			return 0, &RuntimeError{Op: "endgroupundo", Message: err.Error()}
		}
		return 1, nil
	}
}

func (e *Engine) createObject(_ context.Context, c *Call) (macro.Value, error) {
	if err := c.expect(2); err != nil {
		return macro.Value{}, err
	}
	path, err := c.text(0)
	if err != nil {
		return macro.Value{}, err
	}
	class, err := c.text(1)
	if err != nil {
		return macro.Value{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.classes[classKey{path: path, class: class}]
	if !ok {
		return macro.Value{}, &RuntimeError{
			Op:      "createobject",
			Message: fmt.Sprintf("no component %q in %q", class, path),
		}
	}
	e.nextHandle++
	e.objects[e.nextHandle] = obj
	return macro.Int(e.nextHandle), nil
}

func (e *Engine) object(c *Call) (Object, int64, error) {
	handle, err := c.integer(0)
	if err != nil {
		return nil, 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[handle]
	if !ok {
		return nil, 0, &RuntimeError{Op: c.Name, Message: fmt.Sprintf("no object with handle %d", handle)}
	}
	return obj, handle, nil
}

func (e *Engine) member(ctx context.Context, c *Call) (macro.Value, error) {
	if err := c.expect(2); err != nil {
		return macro.Value{}, err
	}
	obj, _, err := e.object(c)
	if err != nil {
		return macro.Value{}, err
	}
	name, err := c.text(1)
	if err != nil {
		return macro.Value{}, err
	}

	args := make([]any, 0, len(c.Args)-2)
	for _, a := range c.Args[2:] {
		args = append(args, a)
	}
	out, err := obj.Call(ctx, name, args)
	if err != nil {
		return macro.Value{}, &RuntimeError{Op: "member", Message: err.Error()}
	}
	return e.toValue(out)
}

func (e *Engine) releaseObject(_ context.Context, c *Call) (macro.Value, error) {
	_, handle, err := e.object(c)
	if err != nil {
		return macro.Value{}, err
	}
	e.mu.Lock()
	delete(e.objects, handle)
	e.mu.Unlock()
	return macro.Int(0), nil
}

func (e *Engine) getStaticVariable(ctx context.Context, c *Call) (macro.Value, error) {
	name, err := c.text(0)
	if err != nil {
		return macro.Value{}, err
	}
	shared, err := c.integer(1)
	if err != nil {
		return macro.Value{}, err
	}
	s, err := e.StaticVariable(ctx, name, shared != 0)
	if err != nil {
		return macro.Value{}, err
	}
	return macro.Text(s), nil
}

func (e *Engine) setStaticVariable(ctx context.Context, c *Call) (int64, error) {
	name, err := c.text(0)
	if err != nil {
		return 0, err
	}
	value, err := c.text(1)
	if err != nil {
		return 0, err
	}
	shared, err := c.integer(2)
	if err != nil {
		return 0, err
	}
	if err := e.SetStaticVariable(ctx, name, value, shared != 0); err != nil {
		return 0, err
	}
	return 1, nil
}

// toValue converts what a component member returned into a macro value.
func (e *Engine) toValue(v any) (macro.Value, error) {
	switch val := v.(type) {
	case nil:
		return macro.Int(0), nil
	case macro.Value:
		if val.IsText() {
			return val, nil
		}
		return macro.Int(e.width.Truncate(val.Int())), nil
	case string:
		return macro.Text(val), nil
	case bool:
		return boolInt(val), nil
	case int:
		return macro.Int(e.width.Truncate(int64(val))), nil
	case int32:
		return macro.Int(int64(val)), nil
	case int64:
		return macro.Int(e.width.Truncate(val)), nil
	case uintptr:
		return macro.Int(e.width.Truncate(int64(val))), nil
	}
	return macro.Value{}, &RuntimeError{Op: "member", Message: fmt.Sprintf("unsupported return type %T", v)}
}
