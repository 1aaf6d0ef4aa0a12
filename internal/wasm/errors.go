package wasm

import (
	"fmt"
	"time"
)

// CompilationError occurs when guest compilation fails.
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when guest instantiation fails.
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a module is not in cache.
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in cache", e.ModuleName)
}

// FunctionNotFoundError occurs when a guest lacks a required export.
type FunctionNotFoundError struct {
	ModuleName   string
	FunctionName string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found in module '%s'",
		e.FunctionName, e.ModuleName)
}

// MemoryAccessError occurs when guest memory cannot be read or written.
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d)",
			e.Operation, e.Address, e.Length)
	}
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d): %v",
		e.Operation, e.Address, e.Length, e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}

// HostFunctionError occurs when a host function cannot serve a guest call.
type HostFunctionError struct {
	FunctionName string
	Err          error
}

func (e *HostFunctionError) Error() string {
	return fmt.Sprintf("host function '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *HostFunctionError) Unwrap() error {
	return e.Err
}

// CallError occurs when a guest export traps or fails.
type CallError struct {
	Function string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("guest call '%s' failed: %v", e.Function, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// InstanceLimitError occurs when instantiating would exceed MaxInstances.
type InstanceLimitError struct {
	Limit int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("instance limit of %d reached", e.Limit)
}

// TimeoutError occurs when a guest call outlives ExecutionTimeout.
type TimeoutError struct {
	Function string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Wasm call '%s' timed out after %v", e.Function, e.Duration)
}

// ImportError occurs when a guest imports a function the host does not
// provide.
type ImportError struct {
	Module string
	Name   string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("unsupported import %s.%s", e.Module, e.Name)
}
