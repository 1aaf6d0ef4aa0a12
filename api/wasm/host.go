//go:build wasm

package wasm

import (
	"unsafe"

	"github.com/woxQAQ/hmbridge/pkg/protocol"
)

// Log levels accepted by log_message.
const (
	LevelDebug uint32 = iota
	LevelInfo
	LevelWarn
	LevelError
)

//go:wasmimport hmbridge log_message
func logMessage(level, ptr, size uint32)

//go:wasmimport hmbridge mailbox_fetch_kind
func mailboxFetchKind() uint32

//go:wasmimport hmbridge mailbox_fetch_int
func mailboxFetchInt() int64

//go:wasmimport hmbridge mailbox_fetch_text
func mailboxFetchText(ptr, capacity uint32) uint32

//go:wasmimport hmbridge mailbox_store_int
func mailboxStoreInt(value int64) uint32

//go:wasmimport hmbridge mailbox_store_text
func mailboxStoreText(ptr, size uint32) uint32

//go:wasmimport hmbridge mailbox_invoke
func mailboxInvoke(modulePtr, moduleLen, typePtr, typeLen, methodPtr, methodLen, payloadPtr, payloadLen uint32) uint32

func span(s string) (uint32, uint32) {
	if len(s) == 0 {
		return 0, 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))), uint32(len(s))
}

// Log writes msg to the host log.
func Log(level uint32, msg string) {
	ptr, size := span(msg)
	logMessage(level, ptr, size)
}

// SlotKind reports what createobject(...).DllToMacro would yield.
func SlotKind() protocol.SlotKind {
	return protocol.SlotKind(mailboxFetchKind())
}

// FetchInt reads the mailbox as an integer. Text is coerced by the host.
func FetchInt() int64 {
	return mailboxFetchInt()
}

// FetchText reads the mailbox as text.
func FetchText() string {
	buf := make([]byte, 256)
	for {
		n := mailboxFetchText(uint32(uintptr(unsafe.Pointer(&buf[0]))), uint32(len(buf)))
		if int(n) <= len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, n)
	}
}

// StoreInt is MacroToDll with an integer. It returns the status code.
func StoreInt(v int64) uint32 {
	return mailboxStoreInt(v)
}

// StoreText is MacroToDll with text. It returns the status code.
func StoreText(s string) uint32 {
	ptr, size := span(s)
	return mailboxStoreText(ptr, size)
}

// Invoke is MethodToDll: it runs a registered host method with a text payload.
func Invoke(module, typeName, method, payload string) uint32 {
	mp, ml := span(module)
	tp, tl := span(typeName)
	np, nl := span(method)
	pp, pl := span(payload)
	return mailboxInvoke(mp, ml, tp, tl, np, nl, pp, pl)
}
