package profile

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/hexcodec"
)

// document mirrors the parts of the WLAN profile schema that are read back.
// Optional elements are pointers so absence can be told from empty values.
type document struct {
	XMLName xml.Name
	Name    *string `xml:"name"`
	SSIDs   []struct {
		Hex  *string `xml:"hex"`
		Name *string `xml:"name"`
	} `xml:"SSIDConfig>SSID"`
	NonBroadcast   *string `xml:"SSIDConfig>nonBroadcast"`
	ConnectionType *string `xml:"connectionType"`
	ConnectionMode *string `xml:"connectionMode"`
	AutoSwitch     *string `xml:"autoSwitch"`
	Authentication *string `xml:"MSM>security>authEncryption>authentication"`
	Encryption     *string `xml:"MSM>security>authEncryption>encryption"`
	KeyType        *string `xml:"MSM>security>sharedKey>keyType"`
	Protected      *string `xml:"MSM>security>sharedKey>protected"`
	KeyMaterial    *string `xml:"MSM>security>sharedKey>keyMaterial"`
}

// parseBool accepts the XML Schema boolean forms.
func parseBool(field, s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%s: %q is not a boolean: %w", field, s, ErrMalformedDocument)
}

func required(field string, v *string) (string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", fmt.Errorf("missing %s: %w", field, ErrInvalidProfile)
	}
	return strings.TrimSpace(*v), nil
}

func lookup[T any](field string, table map[string]T, token string) (T, error) {
	v, ok := table[token]
	if !ok {
		return v, fmt.Errorf("unrecognized %s %q: %w", field, token, ErrInvalidProfile)
	}
	return v, nil
}

// Parse reads a profile document. The returned profile carries the original
// document text; InterfaceID and Position are left for the caller.
func Parse(doc string) (wifi.Profile, error) {
	var p wifi.Profile
	if strings.TrimSpace(doc) == "" {
		return p, fmt.Errorf("empty document: %w", ErrMalformedDocument)
	}

	var d document
	dec := xml.NewDecoder(strings.NewReader(doc))
	// The text is already decoded; a declared encoding is informational.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	if err := dec.Decode(&d); err != nil {
		return p, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if d.XMLName.Space != Namespace {
		return p, fmt.Errorf("namespace %q: %w", d.XMLName.Space, ErrUnknownNamespace)
	}
	if d.XMLName.Local != "WLANProfile" {
		return p, fmt.Errorf("root element %q: %w", d.XMLName.Local, ErrMalformedDocument)
	}

	var err error
	if p.Name, err = required("name", d.Name); err != nil {
		return p, err
	}
	if p.SSID, err = parseSSID(d); err != nil {
		return p, err
	}

	connectionType, err := required("connectionType", d.ConnectionType)
	if err != nil {
		return p, err
	}
	if p.BssType, err = lookup("connectionType", connectionTypes, strings.ToUpper(connectionType)); err != nil {
		return p, err
	}
	authentication, err := required("authentication", d.Authentication)
	if err != nil {
		return p, err
	}
	if p.Authentication, err = lookup("authentication", authenticationTokens, authentication); err != nil {
		return p, err
	}
	encryption, err := required("encryption", d.Encryption)
	if err != nil {
		return p, err
	}
	if p.Encryption, err = lookup("encryption", encryptionTokens, encryption); err != nil {
		return p, err
	}

	if d.KeyType != nil {
		// Unknown key types are read as KeyNone.
		p.KeyType = keyTypeTokens[strings.TrimSpace(*d.KeyType)]
	}
	if d.Protected != nil {
		if p.KeyEncrypted, err = parseBool("protected", *d.Protected); err != nil {
			return p, err
		}
	}
	if d.KeyMaterial != nil {
		p.Key = *d.KeyMaterial
	}
	if d.ConnectionMode != nil {
		p.AutoConnect = strings.TrimSpace(*d.ConnectionMode) == "auto"
	}
	if d.AutoSwitch != nil {
		if p.AutoSwitch, err = parseBool("autoSwitch", *d.AutoSwitch); err != nil {
			return p, err
		}
	}

	p.Document = doc
	return p, nil
}

// parseSSID prefers the hex form of the first SSID element. Hex that does
// not decode to UTF-8 is kept as raw bytes, which is how drivers report
// such SSIDs.
func parseSSID(d document) (string, error) {
	if len(d.SSIDs) == 0 {
		return "", fmt.Errorf("missing SSID: %w", ErrInvalidProfile)
	}
	ssid := d.SSIDs[0]
	if ssid.Hex != nil && strings.TrimSpace(*ssid.Hex) != "" {
		if b := hexcodec.Decode(strings.TrimSpace(*ssid.Hex)); len(b) > 0 {
			return string(b), nil
		}
	}
	if ssid.Name != nil && *ssid.Name != "" {
		return *ssid.Name, nil
	}
	return "", fmt.Errorf("missing SSID: %w", ErrInvalidProfile)
}

// Valid reports whether doc parses as a profile.
func Valid(doc string) bool {
	_, err := Parse(doc)
	return err == nil
}
