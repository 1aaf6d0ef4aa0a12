package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// SetTotalTextVersion is the first host version with settotaltext.
const SetTotalTextVersion = 935.06

// SetTotalText replaces the whole buffer as one undo step.
func (b *Bridge) SetTotalText(ctx context.Context, text string) error {
	mb := protocol.MailboxVar

	var sb strings.Builder
	if b.host.Version() >= SetTotalTextVersion {
		sb.WriteString(b.createObject(mb))
		sb.WriteString("settotaltext " + fetchExpr(mb) + ";\n")
		sb.WriteString(releaseObject(mb))
	} else {
		sb.WriteString("begingroupundo;\n")
		sb.WriteString("selectall;\n")
		sb.WriteString(b.createObject(mb))
		sb.WriteString("insert " + fetchExpr(mb) + ";\n")
		sb.WriteString(releaseObject(mb))
		sb.WriteString("endgroupundo;\n")
	}
	return b.edit(ctx, text, sb.String())
}

// SetSelectedText replaces the selection. Nothing changes when no text is
// selected.
func (b *Bridge) SetSelectedText(ctx context.Context, text string) error {
	mb := protocol.MailboxVar

	var sb strings.Builder
	sb.WriteString("if (selecting) {\n")
	sb.WriteString(b.createObject(mb))
	sb.WriteString("insert " + fetchExpr(mb) + ";\n")
	sb.WriteString(releaseObject(mb))
	sb.WriteString("}\n")
	return b.edit(ctx, text, sb.String())
}

// SetLineText replaces line (one-based) as one undo step and leaves the cursor
// at column (zero-based) of that line.
func (b *Bridge) SetLineText(ctx context.Context, text string, column, line int) error {
	mb := protocol.MailboxVar

	var sb strings.Builder
	sb.WriteString("begingroupundo;\n")
	fmt.Fprintf(&sb, "moveto2 %d, %d;\n", column, line)
	sb.WriteString("selectline;\n")
	sb.WriteString(b.createObject(mb))
	sb.WriteString("insert " + fetchExpr(mb) + ";\n")
	sb.WriteString(releaseObject(mb))
	fmt.Fprintf(&sb, "moveto2 %d, %d;\n", column, line)
	sb.WriteString("endgroupundo;\n")
	return b.edit(ctx, text, sb.String())
}

// edit routes text through the mailbox and runs cmd inside the current macro
// when one is executing, or as a new macro otherwise.
func (b *Bridge) edit(ctx context.Context, text, cmd string) error {
	slot := b.slot()
	slot.Clear()
	slot.Store(macro.Text(text))
	defer slot.Clear()

	var err error
	if b.host.IsExecuting() {
		_, err = b.Eval(ctx, cmd)
	} else {
		_, err = b.ExecEval(ctx, cmd)
	}
	return err
}
