package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// Memory moves strings across the guest boundary. Writes go through the
// guest's own alloc/free exports so the guest allocator stays in charge of
// its heap.
type Memory struct {
	module api.Module
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{module: module}
}

// ReadBytes reads raw bytes. The result aliases guest memory.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, bool) {
	return m.module.Memory().Read(ptr, length)
}

// ReadText copies length bytes at ptr into a Go string.
func (m *Memory) ReadText(ptr uint32, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	buf, ok := m.ReadBytes(ptr, length)
	if !ok {
		return "", &MemoryAccessError{Operation: "read", Address: ptr, Length: length}
	}
	return string(buf), nil
}

// WriteString copies s into a guest allocation. Free releases it.
func (m *Memory) WriteString(ctx context.Context, s string) (uint32, uint32, error) {
	return m.WriteBytes(ctx, []byte(s))
}

// WriteBytes copies data into a guest allocation. Empty data allocates
// nothing and returns pointer 0.
func (m *Memory) WriteBytes(ctx context.Context, data []byte) (uint32, uint32, error) {
	length := uint32(len(data))
	if length == 0 {
		return 0, 0, nil
	}

	alloc := m.module.ExportedFunction(protocol.GuestAlloc)
	if alloc == nil {
		return 0, 0, &FunctionNotFoundError{ModuleName: m.module.Name(), FunctionName: protocol.GuestAlloc}
	}
	res, err := alloc.Call(ctx, uint64(length))
	if err != nil {
		return 0, 0, &MemoryAccessError{Operation: "alloc", Length: length, Err: err}
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return 0, 0, &MemoryAccessError{Operation: "alloc", Length: length}
	}

	if !m.module.Memory().Write(ptr, data) {
		_ = m.Free(ctx, ptr, length)
		return 0, 0, &MemoryAccessError{Operation: "write", Address: ptr, Length: length}
	}
	return ptr, length, nil
}

// Free returns an allocation made by WriteBytes to the guest.
func (m *Memory) Free(ctx context.Context, ptr, length uint32) error {
	if ptr == 0 {
		return nil
	}
	free := m.module.ExportedFunction(protocol.GuestFree)
	if free == nil {
		return &FunctionNotFoundError{ModuleName: m.module.Name(), FunctionName: protocol.GuestFree}
	}
	if _, err := free.Call(ctx, uint64(ptr), uint64(length)); err != nil {
		return &MemoryAccessError{Operation: "free", Address: ptr, Length: length, Err: err}
	}
	return nil
}
