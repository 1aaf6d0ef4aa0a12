package protocol

// Wire names shared by the bridge, the in-process macro engine and wasm guests.
// Generated macro text and guest modules depend on these exact spellings.

// Mailbox component members callable from macro text.
const (
	MemberDllToMacro  = "DllToMacro"
	MemberMacroToDll  = "MacroToDll"
	MemberMethodToDll = "MethodToDll"
)

// Members lists the whole capability surface of the mailbox component.
var Members = []string{MemberDllToMacro, MemberMacroToDll, MemberMethodToDll}

// Status codes returned by component members.
const (
	StatusFailure = 0
	StatusSuccess = 1
)

// Macro variables reserved by generated text.
const (
	MailboxVar       = "#_hmbridge_mailbox"
	MailboxResultVar = "#_hmbridge_mailbox_result"
	InvokeVar        = "#_hmbridge_invoke"
	InvokeResultVar  = "#_hmbridge_invoke_result"
	NumericScratch   = "##_tmp_dll_expression_ret"
	TextScratch      = "$$_tmp_dll_expression_ret"
	ResultVar        = "result"
)

// RawTag delimits raw string payloads: R"TAG(...)TAG".
const RawTag = "MACRO_OF_SCOPENAME"

// HostModule is the import module name guests use for host functions.
const HostModule = "hmbridge"

// Host functions exported to guests.
const (
	HostLogMessage       = "log_message"
	HostMailboxFetchKind = "mailbox_fetch_kind"
	HostMailboxFetchInt  = "mailbox_fetch_int"
	HostMailboxFetchText = "mailbox_fetch_text"
	HostMailboxStoreInt  = "mailbox_store_int"
	HostMailboxStoreText = "mailbox_store_text"
	HostMailboxInvoke    = "mailbox_invoke"
)

// Functions a guest macro engine must export.
const (
	GuestAlloc       = "alloc"
	GuestFree        = "free"
	GuestEval        = "macro_eval"
	GuestExec        = "macro_exec"
	GuestIsExecuting = "macro_is_executing"
)

// GuestMessage is optional. It returns the exit message of the last
// macro_exec packed as ptr<<32 | len.
const GuestMessage = "macro_message"

// GuestExports lists every export a guest must provide.
var GuestExports = []string{GuestAlloc, GuestFree, GuestEval, GuestExec, GuestIsExecuting}

// SlotKind is the kind of value reported by mailbox_fetch_kind.
type SlotKind int32

const (
	SlotEmpty SlotKind = iota
	SlotInteger
	SlotText
	SlotOpaque
)

func (k SlotKind) String() string {
	switch k {
	case SlotEmpty:
		return "empty"
	case SlotInteger:
		return "integer"
	case SlotText:
		return "text"
	case SlotOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}
