package macro

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Each typed error below matches exactly one.
var (
	ErrUnsupported      = errors.New("unsupported operation")
	ErrInvalidState     = errors.New("invalid macro engine state")
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrRemoteRejected   = errors.New("remote invocation rejected")
)

// UnsupportedError occurs when a feature needs a newer host or an entry point
// the host never bound.
type UnsupportedError struct {
	Feature  string
	Required float64
	Actual   float64
}

func (e *UnsupportedError) Error() string {
	if e.Required == 0 {
		return fmt.Sprintf("'%s' is not available in this host", e.Feature)
	}
	return fmt.Sprintf("'%s' requires host version %g (have %g)", e.Feature, e.Required, e.Actual)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// StateError occurs when an operation runs while the macro engine is (or is
// not) executing, contrary to its precondition.
type StateError struct {
	Op        string
	Executing bool
}

func (e *StateError) Error() string {
	if e.Executing {
		return fmt.Sprintf("%s: a macro is already executing", e.Op)
	}
	return fmt.Sprintf("%s: no macro is executing", e.Op)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NotFoundError occurs when a referenced file or symbol does not exist.
type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("'%s' not found: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("'%s' not found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// EvalError occurs when the macro engine rejects generated macro text.
type EvalError struct {
	Op   string
	Text string
	Err  error
}

func (e *EvalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: macro evaluation failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: macro evaluation failed", e.Op)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

func (e *EvalError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// RejectReason tells why a remote invocation was refused.
type RejectReason int

const (
	RejectNotInOwnModule RejectReason = iota + 1
	RejectNotStatic
	RejectNotPublic
	RejectMissing
	RejectPayload
)

func (r RejectReason) String() string {
	switch r {
	case RejectNotInOwnModule:
		return "not-in-own-module"
	case RejectNotStatic:
		return "not-static"
	case RejectNotPublic:
		return "not-public"
	case RejectMissing:
		return "missing"
	case RejectPayload:
		return "unquotable-payload"
	default:
		return "unknown"
	}
}

// RejectedError occurs when a remote method reference fails validation.
type RejectedError struct {
	Reason RejectReason
	Module string
	Type   string
	Method string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote method '%s.%s' in '%s' rejected: %s",
		e.Type, e.Method, e.Module, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRemoteRejected
}
