package darwin

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shazow/wifirecover/wifi"
)

type scannedNetwork struct {
	ssid     string
	secure   bool
	auth     wifi.Authentication
	enc      wifi.Encryption
	bssType  wifi.BssType
	rssi     int
	channel  int
	band     float32
	isActive bool
}

var (
	signalRe      = regexp.MustCompile(`Signal / Noise:\s*(-?\d+)\s*dBm`)
	securityRe    = regexp.MustCompile(`Security:\s*(.+)`)
	channelRe     = regexp.MustCompile(`Channel:\s*(\d+)\s*\((\d+)GHz`)
	networkTypeRe = regexp.MustCompile(`Network Type:\s*(\S+)`)
	currentRe     = regexp.MustCompile(`Current Wi-Fi Network: (.+)`)
)

// parseSystemProfilerOutput parses the output of `system_profiler SPAirPortDataType`
// to extract visible Wi-Fi networks with their signal strength and security.
func parseSystemProfilerOutput(output string) []scannedNetwork {
	var networks []scannedNetwork
	index := make(map[string]int)

	scanner := bufio.NewScanner(strings.NewReader(output))

	inCurrentNetwork := false
	inOtherNetworks := false
	var current *scannedNetwork

	flush := func() {
		if current == nil || current.ssid == "" {
			return
		}
		i, seen := index[current.ssid]
		if !seen {
			index[current.ssid] = len(networks)
			networks = append(networks, *current)
			return
		}
		// Keep one entry per SSID, filling in a missing signal reading.
		if networks[i].rssi == 0 && current.rssi != 0 {
			networks[i].rssi = current.rssi
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "Current Network Information:") {
			inCurrentNetwork, inOtherNetworks = true, false
			continue
		}
		if strings.Contains(line, "Other Local Wi-Fi Networks:") {
			inCurrentNetwork, inOtherNetworks = false, true
			continue
		}

		// Stop at the next interface (like awdl0).
		if strings.HasPrefix(strings.TrimSpace(line), "awdl") {
			break
		}
		if !inCurrentNetwork && !inOtherNetworks {
			continue
		}

		trimmed := strings.TrimSpace(line)
		leadingSpaces := len(line) - len(strings.TrimLeft(line, " "))

		// Network names sit at a 12-space indent under the section headers.
		if leadingSpaces == 12 && strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, ": ") {
			flush()
			current = &scannedNetwork{
				ssid:     strings.TrimSuffix(trimmed, ":"),
				isActive: inCurrentNetwork,
				auth:     wifi.AuthOpen,
				enc:      wifi.EncryptionNone,
				bssType:  wifi.BssInfrastructure,
			}
			continue
		}
		if current == nil {
			continue
		}

		if m := signalRe.FindStringSubmatch(line); m != nil {
			current.rssi, _ = strconv.Atoi(m[1])
		}
		if m := securityRe.FindStringSubmatch(line); m != nil {
			current.secure, current.auth, current.enc = parseSecurity(m[1])
		}
		if m := channelRe.FindStringSubmatch(line); m != nil {
			current.channel, _ = strconv.Atoi(m[1])
			current.band = parseBand(m[2])
		}
		if m := networkTypeRe.FindStringSubmatch(line); m != nil && strings.EqualFold(m[1], "IBSS") {
			current.bssType = wifi.BssIndependent
		}
	}
	flush()

	return networks
}

func parseBand(ghz string) float32 {
	switch ghz {
	case "2":
		return 2.4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

// parseSecurity maps the Security field of system_profiler.
func parseSecurity(s string) (bool, wifi.Authentication, wifi.Encryption) {
	s = strings.ToLower(strings.TrimSpace(s))
	enterprise := strings.Contains(s, "enterprise")
	switch {
	case strings.Contains(s, "wpa2") || strings.Contains(s, "wpa3"):
		if enterprise {
			return true, wifi.AuthWPA2Enterprise, wifi.EncryptionAES
		}
		return true, wifi.AuthWPA2Personal, wifi.EncryptionAES
	case strings.Contains(s, "wpa"):
		if enterprise {
			return true, wifi.AuthWPAEnterprise, wifi.EncryptionTKIP
		}
		return true, wifi.AuthWPAPersonal, wifi.EncryptionTKIP
	case strings.Contains(s, "wep"):
		return true, wifi.AuthOpen, wifi.EncryptionWEP
	}
	return false, wifi.AuthOpen, wifi.EncryptionNone
}

// securityToken is the security argument of networksetup
// -addpreferredwirelessnetworkatindex.
func securityToken(auth wifi.Authentication, enc wifi.Encryption) string {
	switch auth {
	case wifi.AuthWPAPersonal:
		return "WPA"
	case wifi.AuthWPA2Personal:
		return "WPA2"
	case wifi.AuthWPAEnterprise:
		return "WPAE"
	case wifi.AuthWPA2Enterprise:
		return "WPA2E"
	}
	if enc == wifi.EncryptionWEP {
		return "WEP"
	}
	return "OPEN"
}

func rssiToQuality(rssi int) int {
	if rssi >= 0 || rssi <= -100 {
		return 0
	}
	return min(100, 2*(rssi+100))
}

// parsePreferred parses `networksetup -listpreferredwirelessnetworks`, in
// priority order.
func parsePreferred(output string) []string {
	var r []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "Preferred") {
			r = append(r, line)
		}
	}
	return r
}

// parseCurrentNetwork parses `networksetup -getairportnetwork`.
func parseCurrentNetwork(output string) string {
	if m := currentRe.FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// joinFailed reports whether `networksetup -setairportnetwork` printed an
// error. It exits with status 0 either way.
func joinFailed(output string) (failed, notFound bool) {
	s := strings.ToLower(output)
	if strings.Contains(s, "could not find network") {
		return true, true
	}
	return strings.Contains(s, "failed") || strings.Contains(s, "error"), false
}

// findWifiDevice parses the output of `networksetup -listallhardwareports` to find the Wi-Fi device.
func findWifiDevice(output string) (string, error) {
	// The output is a series of stanzas, separated by blank lines.
	for _, stanza := range strings.Split(output, "\n\n") {
		var device string
		isWifiPort := false
		for _, line := range strings.Split(stanza, "\n") {
			if port, ok := strings.CutPrefix(line, "Hardware Port: "); ok {
				isWifiPort = strings.Contains(port, "Wi-Fi") || strings.Contains(port, "AirPort")
			}
			if d, ok := strings.CutPrefix(line, "Device: "); ok {
				device = d
			}
		}
		if isWifiPort && device != "" {
			return device, nil
		}
	}
	return "", fmt.Errorf("no Wi-Fi interface found: %w", wifi.ErrNotFound)
}
