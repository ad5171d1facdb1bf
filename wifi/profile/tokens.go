package profile

import "github.com/shazow/wifirecover/wifi"

// Namespace is the XML namespace of WLAN profile documents.
const Namespace = "http://www.microsoft.com/networking/WLAN/profile/v1"

var connectionTypes = map[string]wifi.BssType{
	"ESS":  wifi.BssInfrastructure,
	"IBSS": wifi.BssIndependent,
}

var authenticationTokens = map[string]wifi.Authentication{
	"open":    wifi.AuthOpen,
	"shared":  wifi.AuthShared,
	"WPA":     wifi.AuthWPAEnterprise,
	"WPAPSK":  wifi.AuthWPAPersonal,
	"WPA2":    wifi.AuthWPA2Enterprise,
	"WPA2PSK": wifi.AuthWPA2Personal,
}

var encryptionTokens = map[string]wifi.Encryption{
	"none": wifi.EncryptionNone,
	"WEP":  wifi.EncryptionWEP,
	"TKIP": wifi.EncryptionTKIP,
	"AES":  wifi.EncryptionAES,
}

var keyTypeTokens = map[string]wifi.KeyType{
	"networkKey": wifi.KeyNetworkKey,
	"passPhrase": wifi.KeyPassPhrase,
}
