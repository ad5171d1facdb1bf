// Package hexcodec converts SSIDs to and from the hex form used in WLAN
// profile documents.
package hexcodec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when decoded bytes are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8")

// ToHex encodes b as lowercase hex without separators.
func ToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// FromString encodes the UTF-8 bytes of s.
func FromString(s string) string {
	return ToHex([]byte(s))
}

// Decode decodes pairs of hex digits into raw bytes.
//
// Decoding stops at the first malformed pair and returns what was decoded
// so far; a trailing odd digit is ignored.
func Decode(h string) []byte {
	buf := make([]byte, 0, len(h)/2)
	var b [1]byte
	for i := 0; i+1 < len(h); i += 2 {
		if _, err := hex.Decode(b[:], []byte(h[i:i+2])); err != nil {
			break
		}
		buf = append(buf, b[0])
	}
	return buf
}

// ToUTF8 decodes h like Decode and requires the result to be valid UTF-8.
func ToUTF8(h string) (string, error) {
	buf := Decode(h)
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("decoding %q: %w", h, ErrInvalidUTF8)
	}
	return string(buf), nil
}
