package darwin

import (
	"errors"
	"testing"

	"github.com/shazow/wifirecover/wifi"
)

func TestFindWifiDevice(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"wi-fi", "Hardware Port: Ethernet\nDevice: en1\n\nHardware Port: Wi-Fi\nDevice: en0\n", "en0"},
		{"airport", "Hardware Port: AirPort\nDevice: en2\n", "en2"},
	}
	for _, tt := range tests {
		got, err := findWifiDevice(tt.output)
		if err != nil {
			t.Fatalf("%s: findWifiDevice failed: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: findWifiDevice = %q, want %q", tt.name, got, tt.want)
		}
	}

	if _, err := findWifiDevice("Hardware Port: Ethernet\nDevice: en1\n"); !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("findWifiDevice without Wi-Fi = %v, want ErrNotFound", err)
	}
}

// profilerOutput holds only the lines the scanner reads: section headers,
// network names at a 12-space indent and their attributes.
const profilerOutput = `Wi-Fi:
      Interfaces:
        en0:
          Current Network Information:
            OfficeNet:
              Channel: 36 (5GHz, 80MHz)
              Network Type: Infrastructure
              Security: WPA2 Personal
              Signal / Noise: -55 dBm / -95 dBm
          Other Local Wi-Fi Networks:
            OfficeNet:
              Channel: 36 (5GHz, 80MHz)
              Security: WPA2 Personal
            Guest:
              Channel: 11 (2GHz, 20MHz)
              Security: Open
              Signal / Noise: -80 dBm / -90 dBm
            Printer:
              Channel: 1 (2GHz, 20MHz)
              Network Type: IBSS
              Security: WEP
        awdl0:
            Ignored:
              Security: Open`

func TestParseSystemProfilerOutput(t *testing.T) {
	want := []scannedNetwork{
		{ssid: "OfficeNet", secure: true, auth: wifi.AuthWPA2Personal, enc: wifi.EncryptionAES, bssType: wifi.BssInfrastructure, rssi: -55, channel: 36, band: 5, isActive: true},
		{ssid: "Guest", auth: wifi.AuthOpen, enc: wifi.EncryptionNone, bssType: wifi.BssInfrastructure, rssi: -80, channel: 11, band: 2.4},
		{ssid: "Printer", secure: true, auth: wifi.AuthOpen, enc: wifi.EncryptionWEP, bssType: wifi.BssIndependent, channel: 1, band: 2.4},
	}

	got := parseSystemProfilerOutput(profilerOutput)
	if len(got) != len(want) {
		t.Fatalf("parsed %d networks, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("network %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRssiToQuality(t *testing.T) {
	tests := []struct {
		rssi int
		want int
	}{
		{-40, 100},
		{-50, 100},
		{-75, 50},
		{-99, 2},
		{-100, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := rssiToQuality(tt.rssi); got != tt.want {
			t.Errorf("rssiToQuality(%d) = %d, want %d", tt.rssi, got, tt.want)
		}
	}
}

func TestParseSecurity(t *testing.T) {
	tests := []struct {
		in   string
		auth wifi.Authentication
		enc  wifi.Encryption
	}{
		{"WPA2 Personal", wifi.AuthWPA2Personal, wifi.EncryptionAES},
		{"WPA3 Personal", wifi.AuthWPA2Personal, wifi.EncryptionAES},
		{"WPA Personal", wifi.AuthWPAPersonal, wifi.EncryptionTKIP},
		{"WPA2 Enterprise", wifi.AuthWPA2Enterprise, wifi.EncryptionAES},
		{"WEP", wifi.AuthOpen, wifi.EncryptionWEP},
		{"Open", wifi.AuthOpen, wifi.EncryptionNone},
		{"None", wifi.AuthOpen, wifi.EncryptionNone},
	}
	for _, tt := range tests {
		_, auth, enc := parseSecurity(tt.in)
		if auth != tt.auth || enc != tt.enc {
			t.Errorf("parseSecurity(%q) = %s/%s, want %s/%s", tt.in, auth, enc, tt.auth, tt.enc)
		}
		if got := securityToken(auth, enc); got == "" {
			t.Errorf("no networksetup token for %q", tt.in)
		}
	}
}

func TestParsePreferred(t *testing.T) {
	out := "Preferred networks on en0:\n\tHome\n\tOffice WiFi\n\n"
	got := parsePreferred(out)
	if len(got) != 2 || got[0] != "Home" || got[1] != "Office WiFi" {
		t.Errorf("unexpected preferred networks: %q", got)
	}
}

func TestParseCurrentNetwork(t *testing.T) {
	if got := parseCurrentNetwork("Current Wi-Fi Network: Home\n"); got != "Home" {
		t.Errorf("got %q", got)
	}
	if got := parseCurrentNetwork("You are not associated with an AirPort network.\n"); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestJoinFailed(t *testing.T) {
	tests := []struct {
		out      string
		failed   bool
		notFound bool
	}{
		{"", false, false},
		{"Could not find network Nope.\n", true, true},
		{"Failed to join network Home.\nError: -3900  The operation couldn't be completed.\n", true, false},
	}
	for _, tt := range tests {
		failed, notFound := joinFailed(tt.out)
		if failed != tt.failed || notFound != tt.notFound {
			t.Errorf("joinFailed(%q) = %v, %v", tt.out, failed, notFound)
		}
	}
}
