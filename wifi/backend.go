package wifi

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InterfaceState is the connection state reported for a wireless interface.
type InterfaceState int

const (
	InterfaceNotReady InterfaceState = iota
	InterfaceConnected
	InterfaceDisconnected
	InterfaceAssociating
	InterfaceAuthenticating
	InterfaceDisconnecting
)

var interfaceStateNames = map[InterfaceState]string{
	InterfaceNotReady:       "not ready",
	InterfaceConnected:      "connected",
	InterfaceDisconnected:   "disconnected",
	InterfaceAssociating:    "associating",
	InterfaceAuthenticating: "authenticating",
	InterfaceDisconnecting:  "disconnecting",
}

func (s InterfaceState) String() string {
	if name, ok := interfaceStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s InterfaceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Interface is a wireless network adapter.
type Interface struct {
	ID          uuid.UUID      `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	State       InterfaceState `json:"state" yaml:"state"`
	RadioOn     bool           `json:"radio_on" yaml:"radio_on"`
}

// AccessPoint is a network visible to one interface.
type AccessPoint struct {
	InterfaceID     uuid.UUID      `json:"interface_id" yaml:"interface_id"`
	SSID            string         `json:"ssid" yaml:"ssid"`
	BssType         BssType        `json:"bss_type" yaml:"bss_type"`
	SecurityEnabled bool           `json:"security_enabled" yaml:"security_enabled"`
	Authentication  Authentication `json:"authentication" yaml:"authentication"`
	Encryption      Encryption     `json:"encryption" yaml:"encryption"`
	ProfileName     string         `json:"profile_name,omitempty" yaml:"profile_name,omitempty"`
	Connectable     bool           `json:"connectable" yaml:"connectable"`
	IsConnected     bool           `json:"is_connected" yaml:"is_connected"`
	LinkQuality     int            `json:"link_quality" yaml:"link_quality"` // 0-100
	Frequency       int            `json:"frequency" yaml:"frequency"`       // kHz
	Band            float32        `json:"band" yaml:"band"`                 // GHz
	Channel         int            `json:"channel" yaml:"channel"`
}

// PasswordRequired reports whether connecting needs a key.
func (ap AccessPoint) PasswordRequired() bool {
	return ap.SecurityEnabled && ap.Encryption != EncryptionNone
}

// HasProfile reports whether a stored profile exists for the network.
func (ap AccessPoint) HasProfile() bool {
	return ap.ProfileName != ""
}

// ProfileType is the scope a stored profile applies to.
type ProfileType int

const (
	ProfileAllUser ProfileType = iota
	ProfileGroupPolicy
	ProfilePerUser
)

func (t ProfileType) String() string {
	switch t {
	case ProfileAllUser:
		return "all-user"
	case ProfileGroupPolicy:
		return "group-policy"
	case ProfilePerUser:
		return "per-user"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t ProfileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Profile is a stored connection profile.
type Profile struct {
	InterfaceID    uuid.UUID      `json:"interface_id" yaml:"interface_id"`
	Name           string         `json:"name" yaml:"name"`
	SSID           string         `json:"ssid" yaml:"ssid"`
	Type           ProfileType    `json:"type" yaml:"type"`
	BssType        BssType        `json:"bss_type" yaml:"bss_type"`
	Authentication Authentication `json:"authentication" yaml:"authentication"`
	Encryption     Encryption     `json:"encryption" yaml:"encryption"`
	KeyType        KeyType        `json:"key_type" yaml:"key_type"`
	KeyEncrypted   bool           `json:"key_encrypted" yaml:"key_encrypted"`
	Key            string         `json:"key,omitempty" yaml:"key,omitempty"`
	AutoConnect    bool           `json:"auto_connect" yaml:"auto_connect"`
	AutoSwitch     bool           `json:"auto_switch" yaml:"auto_switch"`
	Document       string         `json:"-" yaml:"-"`
	Position       int            `json:"position" yaml:"position"`
	IsConnected    bool           `json:"is_connected" yaml:"is_connected"`
}

// ConnectRequest describes a single connection attempt.
type ConnectRequest struct {
	InterfaceID uuid.UUID
	// Document is a WLAN profile document.
	Document string
	SSID     string
	BssType  BssType
	Timeout  time.Duration
}

// Driver is the platform wireless stack.
//
// Connect reports false with a nil error when the network rejected the
// attempt. The context is the cancellation token for blocking calls.
type Driver interface {
	// Interfaces lists the wireless adapters.
	Interfaces(ctx context.Context) ([]Interface, error)
	// Scan requests a fresh scan on every interface and waits up to timeout.
	Scan(ctx context.Context, timeout time.Duration) error
	// AccessPoints returns the networks from the last scan.
	AccessPoints(ctx context.Context) ([]AccessPoint, error)
	// Profiles returns stored profiles of every interface.
	Profiles(ctx context.Context) ([]Profile, error)

	Connect(ctx context.Context, req ConnectRequest) (bool, error)
	Disconnect(ctx context.Context, interfaceID uuid.UUID, timeout time.Duration) (bool, error)

	// SetProfile stores a profile document, replacing one of the same name.
	SetProfile(ctx context.Context, interfaceID uuid.UUID, document string) error
	SetProfilePosition(ctx context.Context, p Profile, position int) error
	DeleteProfile(ctx context.Context, p Profile) error

	// SetRadio switches the radio of an interface.
	SetRadio(ctx context.Context, interfaceID uuid.UUID, on bool) error
}

// InterfaceIDFromName derives a stable interface ID from a kernel or system
// interface name, for platforms that do not assign GUIDs.
func InterfaceIDFromName(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("wifirecover:"+name))
}
