package main

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/shazow/wifirecover/wifi"
)

// EscapeWifiString handles the special character escaping for SSID and Password.
func EscapeWifiString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`;`, `\;`,
		`,`, `\,`,
		`:`, `\:`,
		`"`, `\"`,
	)
	return r.Replace(s)
}

// WifiQRContent builds the Wi-Fi connection string understood by phone
// cameras.
func WifiQRContent(ssid, password string, enc wifi.Encryption, isHidden bool) string {
	var b strings.Builder

	b.WriteString("WIFI:S:")
	b.WriteString(EscapeWifiString(ssid))
	b.WriteString(";")

	switch enc {
	case wifi.EncryptionTKIP, wifi.EncryptionAES:
		b.WriteString("T:WPA;P:")
		b.WriteString(EscapeWifiString(password))
		b.WriteString(";")
	case wifi.EncryptionWEP:
		b.WriteString("T:WEP;P:")
		b.WriteString(EscapeWifiString(password))
		b.WriteString(";")
	case wifi.EncryptionNone:
		b.WriteString("T:nopass;")
	default:
		// Don't set T if security is unknown, most readers will assume WPA.
	}

	if isHidden {
		b.WriteString("H:true;")
	}
	b.WriteString(";")
	return b.String()
}

// GenerateWifiQRCode returns the connection string as a QR code drawn with
// block characters.
func GenerateWifiQRCode(ssid, password string, enc wifi.Encryption, isHidden bool) (string, error) {
	q, err := qrcode.New(WifiQRContent(ssid, password, enc, isHidden), qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
