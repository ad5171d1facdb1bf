package wifi

import "sort"

// SortAccessPoints sorts a slice of AccessPoint structs in place.
// The sorting order is:
// 1. Connected network first.
// 2. Link quality, strongest first.
// 3. Networks with a stored profile before those without.
// 4. Fallback to SSID alphabetically.
func SortAccessPoints(aps []AccessPoint) {
	sort.SliceStable(aps, func(i, j int) bool {
		a := aps[i]
		b := aps[j]

		if a.IsConnected != b.IsConnected {
			return a.IsConnected
		}
		if a.LinkQuality != b.LinkQuality {
			return a.LinkQuality > b.LinkQuality
		}
		if a.HasProfile() != b.HasProfile() {
			return a.HasProfile()
		}
		return a.SSID < b.SSID
	})
}

// FilterByLinkQuality returns the access points whose link quality is above
// threshold. A threshold of zero or less keeps everything.
func FilterByLinkQuality(aps []AccessPoint, threshold int) []AccessPoint {
	if threshold <= 0 {
		return aps
	}
	var r []AccessPoint
	for _, ap := range aps {
		if ap.LinkQuality > threshold {
			r = append(r, ap)
		}
	}
	return r
}

// SortProfiles orders profiles by interface, then by position.
func SortProfiles(profiles []Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		a := profiles[i]
		b := profiles[j]
		if a.InterfaceID != b.InterfaceID {
			return a.InterfaceID.String() < b.InterfaceID.String()
		}
		return a.Position < b.Position
	})
}
