package bridge

import (
	"context"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

// StaticVariablesVersion is the first host version with static variables.
const StaticVariablesVersion = 915

func (b *Bridge) statics(op string) (StaticVariables, error) {
	if v := b.host.Version(); v < StaticVariablesVersion {
		return nil, &macro.UnsupportedError{Feature: op, Required: StaticVariablesVersion, Actual: v}
	}
	sv, ok := b.host.(StaticVariables)
	if !ok {
		return nil, &macro.UnsupportedError{Feature: op}
	}
	return sv, nil
}

// StaticVar reads a static variable. Shared variables are visible to every
// editor process.
func (b *Bridge) StaticVar(ctx context.Context, name string, shared bool) (string, error) {
	sv, err := b.statics("getstaticvariable")
	if err != nil {
		return "", err
	}
	return sv.StaticVariable(ctx, name, shared)
}

// SetStaticVar writes a static variable.
func (b *Bridge) SetStaticVar(ctx context.Context, name, value string, shared bool) error {
	sv, err := b.statics("setstaticvariable")
	if err != nil {
		return err
	}
	return sv.SetStaticVariable(ctx, name, value, shared)
}
