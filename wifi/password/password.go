// Package password checks candidate keys against the rules of each cipher.
package password

import (
	"errors"
	"unicode/utf16"

	"github.com/shazow/wifirecover/wifi"
)

// ErrInvalidPassword is wrapped by every ValidationError.
var ErrInvalidPassword = errors.New("invalid password")

const (
	ReasonWEP         = "WEP key must be 10, 26, or 40 hex digits."
	ReasonAESTKIP     = "AES/TKIP password must be 8–63 characters."
	ReasonUnsupported = "Unsupported encryption type."
)

// ValidationError explains why a password cannot be used.
type ValidationError struct {
	Encryption wifi.Encryption
	Reason     string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrInvalidPassword }

// IsHex reports whether s is non-empty and made of hexadecimal digits only.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// utf16Len is the length of s in UTF-16 code units, which is how passphrase
// length is counted by the platform profile APIs.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Validate returns nil when password can be used with enc, or a
// *ValidationError.
func Validate(password string, enc wifi.Encryption) error {
	switch enc {
	case wifi.EncryptionNone:
		return nil
	case wifi.EncryptionWEP:
		switch len(password) {
		case 10, 26, 40:
			if IsHex(password) {
				return nil
			}
		}
		return &ValidationError{Encryption: enc, Reason: ReasonWEP}
	case wifi.EncryptionAES, wifi.EncryptionTKIP:
		if n := utf16Len(password); n >= 8 && n <= 63 {
			return nil
		}
		return &ValidationError{Encryption: enc, Reason: ReasonAESTKIP}
	}
	return &ValidationError{Encryption: enc, Reason: ReasonUnsupported}
}
