package escpos

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const replacementChar = "�"

// Text encodes a display string for transmission. Latin and Arabic share the
// same UTF-8 encoding and no code page is selected. No line terminator is appended.
func Text(s string) []byte {
	valid := strings.ToValidUTF8(s, replacementChar)

	// Encoders carry state, so each call gets its own.
	b, err := unicode.UTF8.NewEncoder().Bytes([]byte(valid))
	if err != nil {
		return []byte(valid)
	}
	return b
}

// Line encodes s followed by a line feed
func Line(s string) []byte {
	return append(Text(s), LF)
}
