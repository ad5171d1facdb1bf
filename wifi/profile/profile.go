// Package profile creates, parses and formats WLAN profile documents.
package profile

import (
	"fmt"
	"strings"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/hexcodec"
)

// templateFor picks the template for an authentication and encryption pair.
// Every encryption value is listed so an unhandled one fails closed.
func templateFor(auth wifi.Authentication, enc wifi.Encryption) (TemplateName, error) {
	switch enc {
	case wifi.EncryptionNone:
		if auth == wifi.AuthOpen {
			return TemplateOpen, nil
		}
	case wifi.EncryptionWEP:
		if auth == wifi.AuthOpen {
			return TemplateWEP, nil
		}
	case wifi.EncryptionAES, wifi.EncryptionTKIP:
		switch auth {
		case wifi.AuthWPA2Personal:
			return TemplateWPA2PSK, nil
		case wifi.AuthWPAPersonal:
			return TemplateWPAPSK, nil
		case wifi.AuthInvalid, wifi.AuthOpen, wifi.AuthShared, wifi.AuthWPAEnterprise, wifi.AuthWPA2Enterprise:
		}
	case wifi.EncryptionInvalid:
	default:
		return "", fmt.Errorf("unhandled encryption %d: %w", enc, ErrUnsupportedCombination)
	}
	return "", fmt.Errorf("%s with %s: %w", auth, enc, ErrUnsupportedCombination)
}

func encryptionToken(enc wifi.Encryption) string {
	for token, e := range encryptionTokens {
		if e == enc {
			return token
		}
	}
	return ""
}

// Create renders a profile document that connects to ap with password.
// The profile is named after the SSID.
func Create(ap wifi.AccessPoint, password string) (string, error) {
	if ap.BssType != wifi.BssInfrastructure {
		return "", fmt.Errorf("%s network %q: %w", ap.BssType, ap.SSID, ErrUnsupportedBssType)
	}
	name, err := templateFor(ap.Authentication, ap.Encryption)
	if err != nil {
		return "", err
	}

	data := templateData{
		Name:       ap.SSID,
		Hex:        hexcodec.FromString(ap.SSID),
		Password:   password,
		Encryption: encryptionToken(ap.Encryption),
	}
	var b strings.Builder
	if err := parsedTemplate(name).Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", name, err)
	}
	return b.String(), nil
}
