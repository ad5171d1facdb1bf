package wifi

import (
	"fmt"
	"strings"
)

// BssType is the network topology.
type BssType int

const (
	BssInvalid BssType = iota
	BssInfrastructure
	BssIndependent
	BssAny
)

func (b BssType) String() string {
	switch b {
	case BssInfrastructure:
		return "infrastructure"
	case BssIndependent:
		return "independent"
	case BssAny:
		return "any"
	}
	return "invalid"
}

// MarshalText implements encoding.TextMarshaler.
func (b BssType) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Authentication is the 802.11 authentication method.
type Authentication int

const (
	AuthInvalid Authentication = iota
	AuthOpen
	AuthShared
	AuthWPAEnterprise
	AuthWPAPersonal
	AuthWPA2Enterprise
	AuthWPA2Personal
)

var authenticationNames = []string{
	AuthInvalid:        "invalid",
	AuthOpen:           "open",
	AuthShared:         "shared",
	AuthWPAEnterprise:  "wpa-enterprise",
	AuthWPAPersonal:    "wpa-personal",
	AuthWPA2Enterprise: "wpa2-enterprise",
	AuthWPA2Personal:   "wpa2-personal",
}

func (a Authentication) String() string {
	if a < 0 || int(a) >= len(authenticationNames) {
		return "invalid"
	}
	return authenticationNames[a]
}

// MarshalText implements encoding.TextMarshaler.
func (a Authentication) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAuthentication parses the names produced by Authentication.String.
func ParseAuthentication(s string) (Authentication, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range authenticationNames {
		if i != int(AuthInvalid) && name == s {
			return Authentication(i), nil
		}
	}
	return AuthInvalid, fmt.Errorf("unknown authentication %q: %w", s, ErrNotSupported)
}

// Encryption is the data encryption cipher.
type Encryption int

const (
	EncryptionInvalid Encryption = iota
	EncryptionNone
	EncryptionWEP
	EncryptionTKIP
	EncryptionAES
)

var encryptionNames = []string{
	EncryptionInvalid: "invalid",
	EncryptionNone:    "none",
	EncryptionWEP:     "wep",
	EncryptionTKIP:    "tkip",
	EncryptionAES:     "aes",
}

func (e Encryption) String() string {
	if e < 0 || int(e) >= len(encryptionNames) {
		return "invalid"
	}
	return encryptionNames[e]
}

// MarshalText implements encoding.TextMarshaler.
func (e Encryption) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// ParseEncryption parses the names produced by Encryption.String.
func ParseEncryption(s string) (Encryption, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range encryptionNames {
		if i != int(EncryptionInvalid) && name == s {
			return Encryption(i), nil
		}
	}
	return EncryptionInvalid, fmt.Errorf("unknown encryption %q: %w", s, ErrNotSupported)
}

// KeyType is how the shared key of a profile is expressed.
type KeyType int

const (
	KeyNone KeyType = iota
	KeyNetworkKey
	KeyPassPhrase
)

func (k KeyType) String() string {
	switch k {
	case KeyNetworkKey:
		return "network-key"
	case KeyPassPhrase:
		return "passphrase"
	}
	return "none"
}

// MarshalText implements encoding.TextMarshaler.
func (k KeyType) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
