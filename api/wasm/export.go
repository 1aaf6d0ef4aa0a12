//go:build wasm

// Package wasm is the guest side of the hmbridge engine ABI. A macro engine
// compiled to WebAssembly imports the "hmbridge" host module declared in
// host.go and exports the functions below with //go:wasmexport.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a
// 32-bit linear memory model.
//
// Required exports:
//
//	//go:wasmexport alloc
//	func alloc(size uint32) uint32          // return Alloc(size)
//
//	//go:wasmexport free
//	func free(ptr, size uint32)             // Free(ptr, size)
//
//	//go:wasmexport macro_eval
//	func macroEval(ptr, size uint32) int32  // nonzero on success
//
//	//go:wasmexport macro_exec
//	func macroExec(ptr, size uint32) int32  // nonzero on success
//
//	//go:wasmexport macro_is_executing
//	func macroIsExecuting() int32           // 1 while a macro runs
//
// Optional:
//
//	//go:wasmexport macro_message
//	func macroMessage() uint64              // Pack(ptr, size) of the last exit message
//
// A module-level _initialize, when present, runs once at instantiation.
package wasm

import "unsafe"

// pinned keeps host-written buffers reachable until the host frees them.
var pinned = map[uint32][]byte{}

// Alloc returns a buffer of size bytes the host may write into.
func Alloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	pinned[ptr] = buf
	return ptr
}

// Free releases a buffer returned by Alloc.
func Free(ptr, _ uint32) {
	delete(pinned, ptr)
}

// Text reads size bytes of guest memory at ptr as a string. The string
// aliases the memory; copy it before the buffer is freed if it must outlive
// the call.
func Text(ptr, size uint32) string {
	if size == 0 {
		return ""
	}
	return unsafe.String((*byte)(unsafe.Pointer(uintptr(ptr))), size)
}

// Pack encodes a buffer as ptr<<32 | size, the form macro_message returns.
func Pack(s string) uint64 {
	if len(s) == 0 {
		return 0
	}
	ptr := uint32(uintptr(unsafe.Pointer(unsafe.StringData(s))))
	return uint64(ptr)<<32 | uint64(len(s))
}
