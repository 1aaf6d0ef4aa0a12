package encoding

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/spf13/afero"
	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

// decoders covers the code pages of the table that x/text can decode.
// UTF-7, Johab, Symbol and x-mac-japanese have no decoder.
var decoders = map[int]xencoding.Encoding{
	932:   japanese.ShiftJIS,
	1200:  unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	51932: japanese.EUCJP,
	50221: japanese.ISO2022JP,
	65001: unicode.UTF8BOM,
	1201:  unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	1252:  charmap.Windows1252,
	936:   simplifiedchinese.GBK,
	950:   traditionalchinese.Big5,
	949:   korean.EUCKR,
	1250:  charmap.Windows1250,
	1257:  charmap.Windows1257,
	1253:  charmap.Windows1253,
	1251:  charmap.Windows1251,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	874:   charmap.Windows874,
	1258:  charmap.Windows1258,
	850:   charmap.CodePage850,
	12000: utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	12001: utf32.UTF32(utf32.BigEndian, utf32.UseBOM),
}

// Decoder returns the text encoding for a code page.
func Decoder(codePage int) (xencoding.Encoding, bool) {
	enc, ok := decoders[codePage]
	return enc, ok
}

// Decode converts raw bytes in the given editor encoding to a string.
func Decode(data []byte, id int) (string, error) {
	e := Lookup(id)
	enc, ok := Decoder(e.CodePage)
	if !ok {
		return "", &macro.UnsupportedError{Feature: "decode encoding " + strconv.Itoa(id)}
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode as code page %d: %w", e.CodePage, err)
	}
	return string(out), nil
}

// ReadAllText reads a file and decodes it with the given editor encoding id.
func ReadAllText(fsys afero.Fs, path string, id int) (string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &macro.NotFoundError{Name: path, Err: err}
		}
		return "", fmt.Errorf("failed to read '%s': %w", path, err)
	}
	return Decode(data, id)
}
