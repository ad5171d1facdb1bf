//go:build linux

package networkmanager

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"

	"github.com/shazow/wifirecover/wifi"
)

type mockNM struct {
	gonetworkmanager.NetworkManager
	getDevicesFunc                 func() ([]gonetworkmanager.Device, error)
	getPropertyWirelessEnabledFunc func() (bool, error)
	radio                          *bool
}

func (m *mockNM) GetDevices() ([]gonetworkmanager.Device, error) {
	if m.getDevicesFunc != nil {
		return m.getDevicesFunc()
	}
	return nil, nil
}

func (m *mockNM) GetPropertyWirelessEnabled() (bool, error) {
	if m.getPropertyWirelessEnabledFunc != nil {
		return m.getPropertyWirelessEnabledFunc()
	}
	return true, nil
}

func (m *mockNM) SetPropertyWirelessEnabled(on bool) error {
	m.radio = &on
	return nil
}

type mockDeviceWireless struct {
	gonetworkmanager.DeviceWireless
	name  string
	state gonetworkmanager.NmDeviceState
}

func (m *mockDeviceWireless) GetPropertyInterface() (string, error) { return m.name, nil }

func (m *mockDeviceWireless) GetPropertyDriver() (string, error) { return "iwlwifi", nil }

func (m *mockDeviceWireless) GetPropertyState() (gonetworkmanager.NmDeviceState, error) {
	return m.state, nil
}

// mockDevice is a wired device and must be skipped.
type mockDevice struct {
	gonetworkmanager.Device
}

func newDriver(nm gonetworkmanager.NetworkManager) *Driver {
	return &Driver{NM: nm, logger: slog.Default()}
}

func TestInterfaces(t *testing.T) {
	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			return []gonetworkmanager.Device{
				&mockDevice{},
				&mockDeviceWireless{name: "wlan0", state: gonetworkmanager.NmDeviceStateActivated},
				&mockDeviceWireless{name: "wlan1", state: gonetworkmanager.NmDeviceStateUnavailable},
			}, nil
		},
	}
	d := newDriver(nm)

	ifaces, err := d.Interfaces(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ifaces) != 2 {
		t.Fatalf("expected 2 interfaces, got %d", len(ifaces))
	}
	if ifaces[0].Name != "wlan0" || ifaces[0].State != wifi.InterfaceConnected {
		t.Errorf("unexpected first interface: %+v", ifaces[0])
	}
	if ifaces[0].ID != wifi.InterfaceIDFromName("wlan0") {
		t.Errorf("interface ID is not derived from the name")
	}
	if ifaces[1].State != wifi.InterfaceNotReady {
		t.Errorf("expected not ready, got %s", ifaces[1].State)
	}
	if ifaces[0].Description != "iwlwifi" || !ifaces[0].RadioOn {
		t.Errorf("unexpected details: %+v", ifaces[0])
	}
}

func TestInterfacesError(t *testing.T) {
	expectedErr := errors.New("bus error")
	d := newDriver(&mockNM{
		getPropertyWirelessEnabledFunc: func() (bool, error) {
			return false, expectedErr
		},
	})
	if _, err := d.Interfaces(context.Background()); !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestAccessPointsRadioOff(t *testing.T) {
	d := newDriver(&mockNM{
		getPropertyWirelessEnabledFunc: func() (bool, error) { return false, nil },
	})
	aps, err := d.AccessPoints(context.Background())
	if err != nil || len(aps) != 0 {
		t.Errorf("expected no access points, got %v, %v", aps, err)
	}
}

func TestSetRadio(t *testing.T) {
	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			return []gonetworkmanager.Device{&mockDeviceWireless{name: "wlan0"}}, nil
		},
	}
	d := newDriver(nm)

	if err := d.SetRadio(context.Background(), wifi.InterfaceIDFromName("wlan0"), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nm.radio == nil || *nm.radio {
		t.Errorf("radio was not switched off")
	}
	err := d.SetRadio(context.Background(), wifi.InterfaceIDFromName("wlan9"), true)
	if !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
