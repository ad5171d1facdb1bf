package iwd

import (
	"cmp"
	"slices"

	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifirecover/wifi"
)

// iwd D-Bus names.
const (
	iwdDest              = "net.connman.iwd"
	iwdPath              = "/"
	iwdDeviceIface       = "net.connman.iwd.Device"
	iwdNetworkIface      = "net.connman.iwd.Network"
	iwdStationIface      = "net.connman.iwd.Station"
	iwdKnownNetworkIface = "net.connman.iwd.KnownNetwork"
	iwdAgentManagerIface = "net.connman.iwd.AgentManager"
	iwdAgentIface        = "net.connman.iwd.Agent"
	objectManagerIface   = "org.freedesktop.DBus.ObjectManager"
	propertiesIface      = "org.freedesktop.DBus.Properties"
)

// managedObjects is the reply of ObjectManager.GetManagedObjects.
type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func prop[T any](props map[string]dbus.Variant, name string) T {
	v, _ := props[name].Value().(T)
	return v
}

type station struct {
	path      dbus.ObjectPath
	name      string
	powered   bool
	state     string
	connected dbus.ObjectPath
}

// stations returns the devices in station mode, ordered by name.
func stations(objs managedObjects) []station {
	var r []station
	for path, ifaces := range objs {
		dev, ok := ifaces[iwdDeviceIface]
		if !ok || prop[string](dev, "Mode") != "station" {
			continue
		}
		st := station{
			path:    path,
			name:    prop[string](dev, "Name"),
			powered: prop[bool](dev, "Powered"),
		}
		if s, ok := ifaces[iwdStationIface]; ok {
			st.state = prop[string](s, "State")
			st.connected = prop[dbus.ObjectPath](s, "ConnectedNetwork")
		}
		r = append(r, st)
	}
	slices.SortFunc(r, func(a, b station) int { return cmp.Compare(a.name, b.name) })
	return r
}

func interfaceState(st station) wifi.InterfaceState {
	if !st.powered {
		return wifi.InterfaceNotReady
	}
	switch st.state {
	case "connected", "roaming":
		return wifi.InterfaceConnected
	case "connecting":
		return wifi.InterfaceAssociating
	case "disconnecting":
		return wifi.InterfaceDisconnecting
	case "disconnected":
		return wifi.InterfaceDisconnected
	}
	return wifi.InterfaceNotReady
}

type network struct {
	path      dbus.ObjectPath
	name      string
	kind      string
	device    dbus.ObjectPath
	connected bool
	known     dbus.ObjectPath
}

func networkAt(objs managedObjects, path dbus.ObjectPath) (network, bool) {
	props, ok := objs[path][iwdNetworkIface]
	if !ok {
		return network{}, false
	}
	return network{
		path:      path,
		name:      prop[string](props, "Name"),
		kind:      prop[string](props, "Type"),
		device:    prop[dbus.ObjectPath](props, "Device"),
		connected: prop[bool](props, "Connected"),
		known:     prop[dbus.ObjectPath](props, "KnownNetwork"),
	}, true
}

// findNetwork returns the network named ssid seen by the station at dev.
func findNetwork(objs managedObjects, dev dbus.ObjectPath, ssid string) (network, bool) {
	for path := range objs {
		n, ok := networkAt(objs, path)
		if ok && n.device == dev && n.name == ssid {
			return n, true
		}
	}
	return network{}, false
}

type knownNetwork struct {
	path        dbus.ObjectPath
	name        string
	kind        string
	autoConnect bool
	lastUsed    string
}

// knownNetworks returns the stored networks, most recently used first, which
// is the order iwd tries them in.
func knownNetworks(objs managedObjects) []knownNetwork {
	var r []knownNetwork
	for path, ifaces := range objs {
		props, ok := ifaces[iwdKnownNetworkIface]
		if !ok {
			continue
		}
		r = append(r, knownNetwork{
			path:        path,
			name:        prop[string](props, "Name"),
			kind:        prop[string](props, "Type"),
			autoConnect: prop[bool](props, "AutoConnect"),
			lastUsed:    prop[string](props, "LastConnectedTime"),
		})
	}
	slices.SortFunc(r, func(a, b knownNetwork) int {
		if c := cmp.Compare(b.lastUsed, a.lastUsed); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	return r
}

// securityFromType maps an iwd network type. iwd does not report the
// pairwise cipher so protected networks are assumed to use AES.
func securityFromType(kind string) (bool, wifi.Authentication, wifi.Encryption) {
	switch kind {
	case "wep":
		return true, wifi.AuthOpen, wifi.EncryptionWEP
	case "psk":
		return true, wifi.AuthWPA2Personal, wifi.EncryptionAES
	case "8021x":
		return true, wifi.AuthWPA2Enterprise, wifi.EncryptionAES
	}
	return false, wifi.AuthOpen, wifi.EncryptionNone
}

// qualityFromSignal converts a signal strength in 100 * dBm to a 0-100
// link quality.
func qualityFromSignal(signal int16) int {
	dbm := int(signal) / 100
	return max(0, min(100, 2*(dbm+100)))
}

// poweredChanged reports whether signal announces the device Powered
// property taking the value on.
func poweredChanged(signal *dbus.Signal, on bool) bool {
	if signal.Name != propertiesIface+".PropertiesChanged" || len(signal.Body) < 2 {
		return false
	}
	if iface, ok := signal.Body[0].(string); !ok || iface != iwdDeviceIface {
		return false
	}
	props, ok := signal.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false
	}
	val, ok := props["Powered"]
	if !ok {
		return false
	}
	powered, _ := val.Value().(bool)
	return powered == on
}
