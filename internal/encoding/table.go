// Package encoding maps editor encoding ids to Windows code pages and decodes
// file contents accordingly.
package encoding

// Editor encoding ids, as used by openfile/saveas.
const (
	Sjis       = 0x01
	Utf16      = 0x02
	Euc        = 0x03
	Jis        = 0x04
	Utf7       = 0x05
	Utf8       = 0x06
	Utf16BE    = 0x07
	Euro       = 0x08
	Gb2312     = 0x09
	Big5       = 0x0a
	Euckr      = 0x0b
	Johab      = 0x0c
	Easteuro   = 0x0d
	Baltic     = 0x0e
	Greek      = 0x0f
	Russian    = 0x10
	Symbol     = 0x11
	Turkish    = 0x12
	Hebrew     = 0x13
	Arabic     = 0x14
	Thai       = 0x15
	Vietnamese = 0x16
	Mac        = 0x17
	Oem        = 0x18
	Default    = 0x19
	Binary     = 0x1a
)

// Unmapped is the code page returned for ids without a mapping.
const Unmapped = 0

// codePages is indexed by editor encoding id.
var codePages = [...]int{
	0,     // unknown
	932,   // Shift-JIS
	1200,  // UTF-16 LE
	51932, // EUC-JP
	50221, // JIS
	65000, // UTF-7
	65001, // UTF-8
	1201,  // UTF-16 BE
	1252,  // Western European
	936,   // Simplified Chinese (GB2312)
	950,   // Traditional Chinese (Big5)
	949,   // Korean
	1361,  // Korean (Johab)
	1250,  // Central European
	1257,  // Baltic
	1253,  // Greek
	1251,  // Cyrillic
	42,    // Symbol
	1254,  // Turkish
	1255,  // Hebrew
	1256,  // Arabic
	874,   // Thai
	1258,  // Vietnamese
	10001, // x-mac-japanese
	850,   // OEM/DOS
	0,     // other
	12000, // UTF-32 LE
	12001, // UTF-32 BE
}

// Encoding pairs an editor encoding id with its code page.
type Encoding struct {
	ID       int
	CodePage int
}

// Mapped reports whether the id resolved to a code page.
func (e Encoding) Mapped() bool {
	return e.CodePage != Unmapped
}

// CodePage returns the code page for an editor encoding id, or Unmapped when
// the id is outside the table.
func CodePage(id int) int {
	if id < 0 || id >= len(codePages) {
		return Unmapped
	}
	return codePages[id]
}

// Lookup returns the Encoding for an editor encoding id.
func Lookup(id int) Encoding {
	return Encoding{ID: id, CodePage: CodePage(id)}
}

// Len returns the number of table entries.
func Len() int {
	return len(codePages)
}
