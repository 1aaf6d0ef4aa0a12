package mailbox

import (
	"fmt"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

// UnknownMemberError occurs when macro text calls a member the component does
// not expose.
type UnknownMemberError struct {
	Member string
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("component has no member '%s'", e.Member)
}

// ArgumentCountError occurs when a member is called with the wrong number of
// arguments.
type ArgumentCountError struct {
	Member string
	Want   int
	Got    int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("member '%s' takes %d argument(s), got %d", e.Member, e.Want, e.Got)
}

// InvalidMethodError occurs when a method cannot be registered at all.
type InvalidMethodError struct {
	Key     string
	Message string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("invalid method '%s': %s", e.Key, e.Message)
}

// MethodAlreadyRegisteredError occurs when an overload with the same parameter
// kind is registered twice.
type MethodAlreadyRegisteredError struct {
	Key   string
	Param macro.Kind
}

func (e *MethodAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("method '%s(%s)' is already registered", e.Key, e.Param)
}

// AmbiguousMethodError occurs when overloads exist but none accepts the
// payload's kind.
type AmbiguousMethodError struct {
	Key     string
	Payload macro.Kind
}

func (e *AmbiguousMethodError) Error() string {
	return fmt.Sprintf("no overload of '%s' accepts a %s payload", e.Key, e.Payload)
}

func (e *AmbiguousMethodError) Is(target error) bool {
	return target == macro.ErrNotFound
}
