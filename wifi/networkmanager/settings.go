package networkmanager

import (
	"fmt"

	"github.com/shazow/wifirecover/wifi"
)

// Setting names used in NetworkManager connection maps.
const (
	wirelessType    = "802-11-wireless"
	securitySetting = "802-11-wireless-security"
)

// Access point security flags, see NM80211ApSecurityFlags.
const (
	secPairTKIP    = 0x4
	secPairCCMP    = 0x8
	secKeyMgmtPSK  = 0x100
	secKeyMgmt8021 = 0x200
	secKeyMgmtSAE  = 0x400
)

// connectionMap is a NetworkManager connection settings map.
type connectionMap = map[string]map[string]interface{}

// securityFromFlags maps the privacy bit and the WPA and RSN flags of an
// access point to an authentication and cipher pair.
func securityFromFlags(privacy bool, wpa, rsn uint32) (bool, wifi.Authentication, wifi.Encryption) {
	switch {
	case rsn != 0:
		return true, authFor(rsn, wifi.AuthWPA2Personal, wifi.AuthWPA2Enterprise), cipherFor(rsn)
	case wpa != 0:
		return true, authFor(wpa, wifi.AuthWPAPersonal, wifi.AuthWPAEnterprise), cipherFor(wpa)
	case privacy:
		return true, wifi.AuthOpen, wifi.EncryptionWEP
	}
	return false, wifi.AuthOpen, wifi.EncryptionNone
}

func authFor(flags uint32, personal, enterprise wifi.Authentication) wifi.Authentication {
	if flags&secKeyMgmt8021 != 0 && flags&(secKeyMgmtPSK|secKeyMgmtSAE) == 0 {
		return enterprise
	}
	return personal
}

func cipherFor(flags uint32) wifi.Encryption {
	if flags&secPairCCMP == 0 && flags&secPairTKIP != 0 {
		return wifi.EncryptionTKIP
	}
	return wifi.EncryptionAES
}

// channelOf converts a centre frequency in MHz to a channel number and band.
func channelOf(mhz uint32) (int, float32) {
	f := int(mhz)
	switch {
	case f == 2484:
		return 14, 2.4
	case f >= 2412 && f <= 2472:
		return (f - 2407) / 5, 2.4
	case f >= 5955 && f <= 7115:
		return (f - 5950) / 5, 6
	case f >= 5000 && f <= 5900:
		return (f - 5000) / 5, 5
	}
	return 0, 0
}

// settingsFor translates a parsed profile into a connection map bound to
// ifname.
func settingsFor(p wifi.Profile, ifname, connUUID string) (connectionMap, error) {
	if p.KeyEncrypted {
		return nil, fmt.Errorf("profile %q holds an encrypted key: %w", p.Name, wifi.ErrNotSupported)
	}
	mode := "infrastructure"
	if p.BssType == wifi.BssIndependent {
		mode = "adhoc"
	}

	s := connectionMap{
		"connection": {
			"id":             p.Name,
			"uuid":           connUUID,
			"type":           wirelessType,
			"interface-name": ifname,
			"autoconnect":    p.AutoConnect,
		},
		wirelessType: {
			"mode": mode,
			"ssid": []byte(p.SSID),
		},
		"ipv4": {"method": "auto"},
		"ipv6": {"method": "auto"},
	}

	var sec map[string]interface{}
	switch p.Authentication {
	case wifi.AuthOpen, wifi.AuthShared:
		if p.Encryption != wifi.EncryptionWEP {
			break
		}
		sec = map[string]interface{}{
			"key-mgmt":     "none",
			"wep-key0":     p.Key,
			"wep-key-type": uint32(1),
		}
		if p.Authentication == wifi.AuthShared {
			sec["auth-alg"] = "shared"
		}
	case wifi.AuthWPAPersonal, wifi.AuthWPA2Personal:
		proto, cipher := "rsn", "ccmp"
		if p.Authentication == wifi.AuthWPAPersonal {
			proto = "wpa"
		}
		if p.Encryption == wifi.EncryptionTKIP {
			cipher = "tkip"
		}
		sec = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"psk":      p.Key,
			"proto":    []string{proto},
			"pairwise": []string{cipher},
		}
	default:
		return nil, fmt.Errorf("%s authentication: %w", p.Authentication, wifi.ErrNotSupported)
	}
	if sec != nil {
		s[wirelessType]["security"] = securitySetting
		s[securitySetting] = sec
	}
	return s, nil
}

// storedProfile is a wireless connection read back from NetworkManager.
type storedProfile struct {
	wifi.Profile
	UUID      string
	Interface string
	Priority  int32
}

// profileFromSettings reads a wireless connection map. It reports false for
// connections of other types.
func profileFromSettings(s connectionMap) (storedProfile, bool) {
	conn, wireless := s["connection"], s[wirelessType]
	if typ, _ := conn["type"].(string); typ != wirelessType || wireless == nil {
		return storedProfile{}, false
	}
	ssid, _ := wireless["ssid"].([]byte)
	if len(ssid) == 0 {
		return storedProfile{}, false
	}

	var sp storedProfile
	sp.Name, _ = conn["id"].(string)
	sp.UUID, _ = conn["uuid"].(string)
	sp.Interface, _ = conn["interface-name"].(string)
	sp.Priority, _ = conn["autoconnect-priority"].(int32)
	sp.SSID = string(ssid)
	sp.Type = wifi.ProfileAllUser
	sp.AutoConnect = true
	if ac, ok := conn["autoconnect"].(bool); ok {
		sp.AutoConnect = ac
	}
	sp.BssType = wifi.BssInfrastructure
	if mode, _ := wireless["mode"].(string); mode == "adhoc" {
		sp.BssType = wifi.BssIndependent
	}

	sp.Authentication, sp.Encryption, sp.KeyType = wifi.AuthOpen, wifi.EncryptionNone, wifi.KeyNone
	sec := s[securitySetting]
	switch mgmt, _ := sec["key-mgmt"].(string); mgmt {
	case "none":
		sp.Encryption, sp.KeyType = wifi.EncryptionWEP, wifi.KeyNetworkKey
		if alg, _ := sec["auth-alg"].(string); alg == "shared" {
			sp.Authentication = wifi.AuthShared
		}
		sp.Key, _ = sec["wep-key0"].(string)
	case "wpa-psk", "sae":
		sp.Authentication, sp.Encryption, sp.KeyType = wifi.AuthWPA2Personal, wifi.EncryptionAES, wifi.KeyPassPhrase
		if protos, _ := sec["proto"].([]string); len(protos) == 1 && protos[0] == "wpa" {
			sp.Authentication = wifi.AuthWPAPersonal
		}
		if ciphers, _ := sec["pairwise"].([]string); len(ciphers) == 1 && ciphers[0] == "tkip" {
			sp.Encryption = wifi.EncryptionTKIP
		}
		sp.Key, _ = sec["psk"].(string)
	case "wpa-eap":
		sp.Authentication, sp.Encryption = wifi.AuthWPA2Enterprise, wifi.EncryptionAES
	}
	return sp, true
}

// secretKey extracts the key from a GetSecrets reply.
func secretKey(secrets connectionMap) string {
	sec := secrets[securitySetting]
	if psk, ok := sec["psk"].(string); ok {
		return psk
	}
	key, _ := sec["wep-key0"].(string)
	return key
}

// applyUpdateWorkaround modifies the settings map to workaround D-Bus type errors.
//
// NetworkManager's D-Bus API can return ipv6.addresses and ipv6.routes as an
// array of array of variants ('aav'), but expects them as an array of structs
// on update ('a(ayuay)' for addresses and 'a(ayuayu)' for routes).
//
// See: https://github.com/Wifx/gonetworkmanager/issues/13 and https://github.com/godbus/dbus/issues/400
func applyUpdateWorkaround(settings connectionMap) {
	if ipv6Settings, ok := settings["ipv6"]; ok {
		delete(ipv6Settings, "addresses")
		delete(ipv6Settings, "routes")
	}
}
