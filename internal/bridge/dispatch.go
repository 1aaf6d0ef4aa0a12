package bridge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
	"github.com/woxQAQ/hmbridge/internal/mailbox"
	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// InvokeRemote asks the engine to run a registered method in a new top-level
// macro execution, passing payload through the mailbox.
//
// ref is checked before anything reaches the engine, in order: declared in
// this bridge's module, static, public, registered. A payload containing the
// raw string terminator is refused too. Each miss is a *macro.RejectedError.
//
// The slot is cleared before and after the round trip.
func (b *Bridge) InvokeRemote(ctx context.Context, payload string, ref mailbox.MethodRef) (Result, error) {
	if err := b.validate(ref, payload); err != nil {
		b.logger.Debug("Remote invocation rejected", zap.Error(err))
		return Result{Code: 0}, err
	}

	slot := b.slot()
	slot.Clear()
	defer slot.Clear()

	var sb strings.Builder
	sb.WriteString(b.createObject(protocol.InvokeVar))
	sb.WriteString(protocol.InvokeResultVar + " = member(" + protocol.InvokeVar + ", " +
		quote(protocol.MemberMethodToDll) + ", " +
		Verbatim(ref.Module) + ", " +
		Verbatim(ref.Type) + ", " +
		Verbatim(ref.Name) + ", " +
		Raw(payload) + ");\n")
	sb.WriteString(releaseObject(protocol.InvokeVar))
	sb.WriteString(protocol.InvokeResultVar + " = 0;\n")

	res, err := b.ExecEval(ctx, sb.String())
	if res.OK() {
		res.Message = payload
	}
	return res, err
}

func (b *Bridge) validate(ref mailbox.MethodRef, payload string) error {
	reason, ok := mailbox.Check(b.Module(), ref)
	if ok && !b.component.Registry().Has(ref.Type, ref.Name) {
		reason, ok = macro.RejectMissing, false
	}
	if ok && !Quotable(payload) {
		reason, ok = macro.RejectPayload, false
	}
	if ok {
		return nil
	}
	return &macro.RejectedError{Reason: reason, Module: ref.Module, Type: ref.Type, Method: ref.Name}
}
