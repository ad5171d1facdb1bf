package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/shazow/wifirecover/wifi"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		password string
		enc      wifi.Encryption
		valid    bool
		reason   string
	}{
		{"", wifi.EncryptionNone, true, ""},
		{"anything at all", wifi.EncryptionNone, true, ""},
		{"", wifi.EncryptionWEP, false, ReasonWEP},
		{"", wifi.EncryptionAES, false, ReasonAESTKIP},
		{"", wifi.EncryptionTKIP, false, ReasonAESTKIP},
		{"506173737", wifi.EncryptionWEP, false, ReasonWEP},
		{"5061737377", wifi.EncryptionWEP, true, ""},
		{"50617373774", wifi.EncryptionWEP, false, ReasonWEP},
		{"3132333435363738393061626", wifi.EncryptionWEP, false, ReasonWEP},
		{"31323334353637383930616263", wifi.EncryptionWEP, true, ""},
		{"313233343536373839306162636", wifi.EncryptionWEP, false, ReasonWEP},
		{"313233343536373839306162636465666768696", wifi.EncryptionWEP, false, ReasonWEP},
		{"313233343536373839306162636465666768696a", wifi.EncryptionWEP, true, ""},
		{"313233343536373839306162636465666768696A", wifi.EncryptionWEP, true, ""},
		{"313233343536373839306162636465666768696a6", wifi.EncryptionWEP, false, ReasonWEP},
		{"313233343536373839306162636465666768696g", wifi.EncryptionWEP, false, ReasonWEP},
		{"313233343536373839306162636465666768696-", wifi.EncryptionWEP, false, ReasonWEP},
		{"ABcd01#", wifi.EncryptionAES, false, ReasonAESTKIP},
		{"ABcd01#@", wifi.EncryptionAES, true, ""},
		{"ABcd01#@Z", wifi.EncryptionAES, true, ""},
		{"tgjrbYlMtSVgHrXJZuVPDRO6iL5zJ9MNh8L14uZg7f0slHFrrO2wnYFiiVyMkBF", wifi.EncryptionAES, true, ""},
		{"tgjrbYlMtSVgHrXJZuVPDRO6iL5zJ9MNh8L14uZg7f0slHFrrO2wnYFiiVyMkBFk", wifi.EncryptionAES, false, ReasonAESTKIP},
		{strings.Repeat("x", 64), wifi.EncryptionAES, false, ReasonAESTKIP},
		{"ABcd01#", wifi.EncryptionTKIP, false, ReasonAESTKIP},
		{"ABcd01#@", wifi.EncryptionTKIP, true, ""},
		{"tgjrbYlMtSVgHrXJZuVPDRO6iL5zJ9MNh8L14uZg7f0slHFrrO2wnYFiiVyMkBF", wifi.EncryptionTKIP, true, ""},
		{"tgjrbYlMtSVgHrXJZuVPDRO6iL5zJ9MNh8L14uZg7f0slHFrrO2wnYFiiVyMkBFk", wifi.EncryptionTKIP, false, ReasonAESTKIP},
		{"Password123", wifi.EncryptionInvalid, false, ReasonUnsupported},
		{"密码密码密码密码", wifi.EncryptionAES, true, ""},
		{"密码密码密码密", wifi.EncryptionAES, false, ReasonAESTKIP},
		{strings.Repeat("🔑", 4), wifi.EncryptionAES, true, ""},
		{strings.Repeat("🔑", 3) + "x", wifi.EncryptionAES, false, ReasonAESTKIP},
		{strings.Repeat("🔑", 31) + "x", wifi.EncryptionTKIP, true, ""},
		{strings.Repeat("🔑", 32), wifi.EncryptionTKIP, false, ReasonAESTKIP},
	}
	for _, tt := range tests {
		err := Validate(tt.password, tt.enc)
		if tt.valid {
			if err != nil {
				t.Errorf("Validate(%q, %s) = %v, want nil", tt.password, tt.enc, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("Validate(%q, %s) = nil, want %q", tt.password, tt.enc, tt.reason)
			continue
		}
		if !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("Validate(%q, %s) = %v, want ErrInvalidPassword", tt.password, tt.enc, err)
		}
		if err.Error() != tt.reason {
			t.Errorf("Validate(%q, %s) reason = %q, want %q", tt.password, tt.enc, err.Error(), tt.reason)
		}
	}
}

func TestValidationErrorAs(t *testing.T) {
	var verr *ValidationError
	if !errors.As(Validate("short", wifi.EncryptionAES), &verr) {
		t.Fatal("Validate should return a *ValidationError")
	}
	if verr.Encryption != wifi.EncryptionAES {
		t.Errorf("Encryption = %s, want aes", verr.Encryption)
	}
}
