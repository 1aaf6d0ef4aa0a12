package sim

import (
	"errors"
	"sync"
)

// Editor is the in-memory text buffer macro statements operate on.
// Offsets count runes.
type Editor struct {
	mu         sync.Mutex
	text       []rune
	cursor     int
	selStart   int
	selEnd     int
	selecting  bool
	undoDepth  int
	undoGroups int
}

// NewEditor returns an empty buffer.
func NewEditor() *Editor {
	return &Editor{}
}

// Text returns the whole buffer.
func (ed *Editor) Text() string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return string(ed.text)
}

// SetText replaces the buffer and moves the cursor to its start.
func (ed *Editor) SetText(s string) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	ed.text = []rune(s)
	ed.cursor = 0
	ed.selecting = false
}

// Select selects runes [start, end).
func (ed *Editor) Select(start, end int) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	start, end = ed.clamp(start), ed.clamp(end)
	if start > end {
		start, end = end, start
	}
	ed.selStart, ed.selEnd = start, end
	ed.selecting = true
	ed.cursor = end
}

// SelectAll selects the whole buffer.
func (ed *Editor) SelectAll() {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	ed.selStart, ed.selEnd = 0, len(ed.text)
	ed.selecting = true
	ed.cursor = len(ed.text)
}

// SelectLine selects the cursor's line including its line break.
func (ed *Editor) SelectLine() {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	start := ed.cursor
	for start > 0 && ed.text[start-1] != '\n' {
		start--
	}
	end := ed.cursor
	for end < len(ed.text) && ed.text[end] != '\n' {
		end++
	}
	if end < len(ed.text) {
		end++
	}
	ed.selStart, ed.selEnd = start, end
	ed.selecting = true
	ed.cursor = end
}

// Escape drops the selection.
func (ed *Editor) Escape() {
	ed.mu.Lock()
	ed.selecting = false
	ed.mu.Unlock()
}

// Selecting reports whether a selection is active.
func (ed *Editor) Selecting() bool {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.selecting
}

// Selected returns the selected text, or "" when nothing is selected.
func (ed *Editor) Selected() string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if !ed.selecting {
		return ""
	}
	return string(ed.text[ed.selStart:ed.selEnd])
}

// Insert replaces the selection with s, or inserts s at the cursor.
func (ed *Editor) Insert(s string) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	at, end := ed.cursor, ed.cursor
	if ed.selecting {
		at, end = ed.selStart, ed.selEnd
	}
	ins := []rune(s)
	out := make([]rune, 0, len(ed.text)-(end-at)+len(ins))
	out = append(out, ed.text[:at]...)
	out = append(out, ins...)
	out = append(out, ed.text[end:]...)
	ed.text = out
	ed.cursor = at + len(ins)
	ed.selecting = false
}

// MoveTo places the cursor at a zero-based column of a one-based line.
func (ed *Editor) MoveTo(column, line int) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	pos, n := 0, 1
	for n < line && pos < len(ed.text) {
		if ed.text[pos] == '\n' {
			n++
		}
		pos++
	}
	for c := 0; c < column && pos < len(ed.text) && ed.text[pos] != '\n'; c++ {
		pos++
	}
	ed.cursor = pos
	ed.selecting = false
}

// Cursor returns the zero-based column and one-based line of the cursor.
func (ed *Editor) Cursor() (column, line int) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	line = 1
	for i := 0; i < ed.cursor; i++ {
		if ed.text[i] == '\n' {
			line++
			column = 0
			continue
		}
		column++
	}
	return column, line
}

// BeginGroupUndo opens an undo group.
func (ed *Editor) BeginGroupUndo() {
	ed.mu.Lock()
	ed.undoDepth++
	ed.mu.Unlock()
}

// EndGroupUndo closes the innermost undo group.
func (ed *Editor) EndGroupUndo() error {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.undoDepth == 0 {
		return errors.New("no open undo group")
	}
	ed.undoDepth--
	if ed.undoDepth == 0 {
		ed.undoGroups++
	}
	return nil
}

// UndoGroups returns the number of completed top-level undo groups.
func (ed *Editor) UndoGroups() int {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.undoGroups
}

func (ed *Editor) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > len(ed.text) {
		return len(ed.text)
	}
	return i
}
