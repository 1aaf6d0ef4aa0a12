package wasm

// Hand-assembled guest modules. echoGuest implements the guest ABI with a
// bump allocator whose free only counts calls in the exported "freed" global;
// evaluating or executing text stores that text in the mailbox through
// mailbox_store_text and returns its status.

const (
	wasmI32 = 0x7f

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10

	exportFunc   = 0x00
	exportMemory = 0x02
	exportGlobal = 0x03
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(items ...[]byte) []byte {
	return concat(uleb(uint32(len(items))), concat(items...))
}

func bytesVec(b []byte) []byte {
	return concat(uleb(uint32(len(b))), b)
}

func wasmName(s string) []byte {
	return bytesVec([]byte(s))
}

func section(id byte, payload []byte) []byte {
	return concat([]byte{id}, uleb(uint32(len(payload))), payload)
}

func funcType(params, results []byte) []byte {
	return concat([]byte{0x60}, bytesVec(params), bytesVec(results))
}

func export(name string, kind byte, index uint32) []byte {
	return concat(wasmName(name), []byte{kind}, uleb(index))
}

// body wraps instructions as a function body without locals.
func body(instrs ...byte) []byte {
	b := concat([]byte{0x00}, instrs, []byte{0x0b})
	return concat(uleb(uint32(len(b))), b)
}

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

// emptyGuest is a valid module with no exports.
func emptyGuest() []byte {
	return header()
}

func echoGuest() []byte {
	types := section(sectionType, vec(
		funcType([]byte{wasmI32, wasmI32}, []byte{wasmI32}), // 0: (ptr, len) -> status
		funcType([]byte{wasmI32}, []byte{wasmI32}),          // 1: alloc
		funcType([]byte{wasmI32, wasmI32}, nil),             // 2: free
		funcType(nil, []byte{wasmI32}),                      // 3: macro_is_executing
	))
	imports := section(sectionImport, vec(
		concat(wasmName("hmbridge"), wasmName("mailbox_store_text"), []byte{0x00}, uleb(0)),
	))
	funcs := section(sectionFunction, vec(
		uleb(1), // 1 alloc
		uleb(2), // 2 free
		uleb(0), // 3 macro_eval
		uleb(0), // 4 macro_exec
		uleb(3), // 5 macro_is_executing
	))
	memory := section(sectionMemory, vec([]byte{0x00, 0x01}))
	globals := section(sectionGlobal, vec(
		concat([]byte{wasmI32, 0x01, 0x41}, sleb(1024), []byte{0x0b}),
		concat([]byte{wasmI32, 0x01, 0x41}, sleb(0), []byte{0x0b}),
	))
	exports := section(sectionExport, vec(
		export("memory", exportMemory, 0),
		export("alloc", exportFunc, 1),
		export("free", exportFunc, 2),
		export("macro_eval", exportFunc, 3),
		export("macro_exec", exportFunc, 4),
		export("macro_is_executing", exportFunc, 5),
		export("freed", exportGlobal, 1),
	))
	code := section(sectionCode, vec(
		// alloc: old := heap; heap += n; return old
		body(0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00),
		// free: freed++
		body(0x23, 0x01, 0x41, 0x01, 0x6a, 0x24, 0x01),
		// macro_eval: return mailbox_store_text(ptr, len)
		body(0x20, 0x00, 0x20, 0x01, 0x10, 0x00),
		// macro_exec: same
		body(0x20, 0x00, 0x20, 0x01, 0x10, 0x00),
		// macro_is_executing: 0
		body(0x41, 0x00),
	))
	return concat(header(), types, imports, funcs, memory, globals, exports, code)
}

// foreignGuest imports a function from a module the host does not provide.
func foreignGuest() []byte {
	types := section(sectionType, vec(funcType(nil, nil)))
	imports := section(sectionImport, vec(
		concat(wasmName("env"), wasmName("tick"), []byte{0x00}, uleb(0)),
	))
	return concat(header(), types, imports)
}
