package utils

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func B2S(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

func TrimBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, utf8BOM)
}

// Latin-1 to UTF-8
func Latin1ToUtf8(s []byte) (d []byte, e error) {
	reader := transform.NewReader(bytes.NewReader(s), charmap.ISO8859_1.NewDecoder())
	d, e = io.ReadAll(reader)
	return
}

// UTF-8 string to Latin-1
func Utf8StrToLatin1(s string) (d string, e error) {
	reader := transform.NewReader(strings.NewReader(s), charmap.ISO8859_1.NewEncoder())
	t, e := io.ReadAll(reader)
	if e != nil {
		return
	}
	d = B2S(t)
	return
}

// DecodeTable strips a UTF-8 BOM and, when the content is not valid UTF-8,
// re-decodes it as Latin-1 (the usual legacy encoding of Excel/ArcGIS exports).
func DecodeTable(b []byte) []byte {
	b = TrimBOM(b)
	if utf8.Valid(b) {
		return b
	}
	if d, e := Latin1ToUtf8(b); e == nil {
		return d
	}
	return b
}
