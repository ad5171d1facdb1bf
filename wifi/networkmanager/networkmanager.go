//go:build linux

package networkmanager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Wifx/gonetworkmanager/v3"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/profile"
)

// scanSettle is how long a scan is given to populate results.
const scanSettle = 3 * time.Second

// Driver implements wifi.Driver using D-Bus to communicate with NetworkManager.
type Driver struct {
	NM       gonetworkmanager.NetworkManager
	Settings gonetworkmanager.Settings
	logger   *slog.Logger
}

// New connects to NetworkManager on the system bus.
func New(logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create network manager client: %w", wifi.ErrNotAvailable)
	}

	settings, err := gonetworkmanager.NewSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", wifi.ErrOperationFailed)
	}

	return &Driver{
		NM:       nm,
		Settings: settings,
		logger:   logger.With("driver", "networkmanager"),
	}, nil
}

type device struct {
	gonetworkmanager.DeviceWireless
	name string
	id   uuid.UUID
}

func (d *Driver) devices() ([]device, error) {
	all, err := d.NM.GetDevices()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	var r []device
	for _, dev := range all {
		w, ok := dev.(gonetworkmanager.DeviceWireless)
		if !ok {
			continue
		}
		name, err := w.GetPropertyInterface()
		if err != nil {
			d.logger.Debug("skipping device", "error", err)
			continue
		}
		r = append(r, device{DeviceWireless: w, name: name, id: wifi.InterfaceIDFromName(name)})
	}
	return r, nil
}

func (d *Driver) device(id uuid.UUID) (device, error) {
	devs, err := d.devices()
	if err != nil {
		return device{}, err
	}
	for _, dev := range devs {
		if dev.id == id {
			return dev, nil
		}
	}
	return device{}, fmt.Errorf("interface %s: %w", id, wifi.ErrNotFound)
}

func interfaceState(s gonetworkmanager.NmDeviceState) wifi.InterfaceState {
	switch s {
	case gonetworkmanager.NmDeviceStateActivated:
		return wifi.InterfaceConnected
	case gonetworkmanager.NmDeviceStateDisconnected, gonetworkmanager.NmDeviceStateFailed:
		return wifi.InterfaceDisconnected
	case gonetworkmanager.NmDeviceStatePrepare, gonetworkmanager.NmDeviceStateConfig:
		return wifi.InterfaceAssociating
	case gonetworkmanager.NmDeviceStateNeedAuth, gonetworkmanager.NmDeviceStateIpConfig, gonetworkmanager.NmDeviceStateIpCheck:
		return wifi.InterfaceAuthenticating
	case gonetworkmanager.NmDeviceStateDeactivating:
		return wifi.InterfaceDisconnecting
	}
	return wifi.InterfaceNotReady
}

func (d *Driver) Interfaces(ctx context.Context) ([]wifi.Interface, error) {
	enabled, err := d.NM.GetPropertyWirelessEnabled()
	if err != nil {
		return nil, fmt.Errorf("reading radio state: %w", err)
	}
	devs, err := d.devices()
	if err != nil {
		return nil, err
	}
	r := make([]wifi.Interface, 0, len(devs))
	for _, dev := range devs {
		iface := wifi.Interface{ID: dev.id, Name: dev.name, RadioOn: enabled}
		if driver, err := dev.GetPropertyDriver(); err == nil {
			iface.Description = driver
		}
		if state, err := dev.GetPropertyState(); err == nil {
			iface.State = interfaceState(state)
		}
		r = append(r, iface)
	}
	return r, nil
}

// Scan asks every device to scan. NetworkManager refuses scans that follow
// one another closely so the request is retried until timeout.
func (d *Driver) Scan(ctx context.Context, timeout time.Duration) error {
	devs, err := d.devices()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, dev := range devs {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = 0
		err := backoff.Retry(dev.RequestScan, backoff.WithContext(b, ctx))
		if err != nil {
			return fmt.Errorf("scanning on %s: %w", dev.name, err)
		}
	}

	t := time.NewTimer(scanSettle)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return nil
}

// known is a stored wireless connection.
type known struct {
	conn gonetworkmanager.Connection
	storedProfile
}

func (d *Driver) connections() ([]known, error) {
	conns, err := d.Settings.ListConnections()
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	var r []known
	for _, c := range conns {
		s, err := c.GetSettings()
		if err != nil {
			continue
		}
		sp, ok := profileFromSettings(s)
		if !ok {
			continue
		}
		r = append(r, known{conn: c, storedProfile: sp})
	}
	return r, nil
}

// activeIDs returns the IDs of the active wireless connections.
func (d *Driver) activeIDs() map[string]bool {
	ids := map[string]bool{}
	active, err := d.NM.GetPropertyActiveConnections()
	if err != nil {
		return ids
	}
	for _, ac := range active {
		typ, err := ac.GetPropertyType()
		if err != nil || typ != wirelessType {
			continue
		}
		if id, err := ac.GetPropertyID(); err == nil {
			ids[id] = true
		}
	}
	return ids
}

func (d *Driver) AccessPoints(ctx context.Context) ([]wifi.AccessPoint, error) {
	enabled, err := d.NM.GetPropertyWirelessEnabled()
	if err != nil {
		return nil, fmt.Errorf("reading radio state: %w", err)
	}
	if !enabled {
		return nil, nil
	}
	devs, err := d.devices()
	if err != nil {
		return nil, err
	}
	conns, err := d.connections()
	if err != nil {
		return nil, err
	}
	active := d.activeIDs()

	var r []wifi.AccessPoint
	for _, dev := range devs {
		aps, err := dev.GetAccessPoints()
		if err != nil {
			d.logger.Warn("listing access points", "interface", dev.name, "error", err)
			continue
		}
		strongest := map[string]int{}
		for _, ap := range aps {
			info, ok := d.accessPoint(dev, ap)
			if !ok {
				continue
			}
			for _, k := range conns {
				if k.SSID == info.SSID && (k.Interface == "" || k.Interface == dev.name) {
					info.ProfileName = k.Name
					info.IsConnected = active[k.Name]
					break
				}
			}
			if i, seen := strongest[info.SSID]; seen {
				if r[i].LinkQuality < info.LinkQuality {
					r[i] = info
				}
				continue
			}
			strongest[info.SSID] = len(r)
			r = append(r, info)
		}
	}
	return r, nil
}

func (d *Driver) accessPoint(dev device, ap gonetworkmanager.AccessPoint) (wifi.AccessPoint, bool) {
	ssid, err := ap.GetPropertySSID()
	if err != nil || ssid == "" {
		return wifi.AccessPoint{}, false
	}
	strength, _ := ap.GetPropertyStrength()
	flags, _ := ap.GetPropertyFlags()
	wpaFlags, _ := ap.GetPropertyWPAFlags()
	rsnFlags, _ := ap.GetPropertyRSNFlags()
	freq, _ := ap.GetPropertyFrequency()
	mode, _ := ap.GetPropertyMode()

	privacy := uint32(flags)&uint32(gonetworkmanager.Nm80211APFlagsPrivacy) != 0
	secure, auth, enc := securityFromFlags(privacy, uint32(wpaFlags), uint32(rsnFlags))
	channel, band := channelOf(uint32(freq))
	bss := wifi.BssInfrastructure
	if mode == gonetworkmanager.Nm80211ModeAdhoc {
		bss = wifi.BssIndependent
	}
	return wifi.AccessPoint{
		InterfaceID:     dev.id,
		SSID:            ssid,
		BssType:         bss,
		SecurityEnabled: secure,
		Authentication:  auth,
		Encryption:      enc,
		Connectable:     auth != wifi.AuthWPAEnterprise && auth != wifi.AuthWPA2Enterprise,
		LinkQuality:     int(strength),
		Frequency:       int(freq) * 1000,
		Band:            band,
		Channel:         channel,
	}, true
}

// profilesOf returns the connections usable on dev, highest priority first.
func (d *Driver) profilesOf(dev device, conns []known) []known {
	var r []known
	for _, k := range conns {
		if k.Interface == "" || k.Interface == dev.name {
			k.InterfaceID = dev.id
			r = append(r, k)
		}
	}
	slices.SortStableFunc(r, func(a, b known) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	for i := range r {
		r[i].Position = i
	}
	return r
}

func (d *Driver) Profiles(ctx context.Context) ([]wifi.Profile, error) {
	devs, err := d.devices()
	if err != nil {
		return nil, err
	}
	conns, err := d.connections()
	if err != nil {
		return nil, err
	}
	active := d.activeIDs()

	var r []wifi.Profile
	for _, dev := range devs {
		for _, k := range d.profilesOf(dev, conns) {
			p := k.Profile
			p.IsConnected = active[p.Name]
			if p.Encryption != wifi.EncryptionNone {
				if secrets, err := k.conn.GetSecrets(securitySetting); err == nil {
					p.Key = secretKey(secrets)
				} else {
					d.logger.Debug("reading secrets", "profile", p.Name, "error", err)
				}
			}
			doc, err := profile.Create(wifi.AccessPoint{
				SSID:            p.SSID,
				BssType:         p.BssType,
				SecurityEnabled: p.Encryption != wifi.EncryptionNone,
				Authentication:  p.Authentication,
				Encryption:      p.Encryption,
			}, p.Key)
			if err == nil {
				p.Document = doc
			}
			r = append(r, p)
		}
	}
	return r, nil
}

func (d *Driver) findConnection(conns []known, name, ifname string) (known, bool) {
	for _, k := range conns {
		if k.Name == name && (k.Interface == "" || k.Interface == ifname) {
			return k, true
		}
	}
	return known{}, false
}

// store writes p as a connection on dev, replacing one of the same name.
func (d *Driver) store(dev device, p wifi.Profile) (gonetworkmanager.Connection, error) {
	conns, err := d.connections()
	if err != nil {
		return nil, err
	}
	existing, ok := d.findConnection(conns, p.Name, dev.name)
	connUUID := uuid.NewString()
	if ok {
		connUUID = existing.UUID
		p.AutoConnect = existing.AutoConnect
	}
	settings, err := settingsFor(p, dev.name, connUUID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return d.Settings.AddConnection(settings)
	}
	settings["connection"]["autoconnect-priority"] = existing.Priority
	applyUpdateWorkaround(settings)
	return existing.conn, existing.conn.Update(settings)
}

func (d *Driver) Connect(ctx context.Context, req wifi.ConnectRequest) (bool, error) {
	p, err := profile.Parse(req.Document)
	if err != nil {
		return false, err
	}
	enabled, err := d.NM.GetPropertyWirelessEnabled()
	if err != nil {
		return false, fmt.Errorf("reading radio state: %w", err)
	}
	if !enabled {
		return false, wifi.ErrWirelessDisabled
	}
	dev, err := d.device(req.InterfaceID)
	if err != nil {
		return false, err
	}

	aps, err := dev.GetAccessPoints()
	if err != nil {
		return false, fmt.Errorf("listing access points: %w", err)
	}
	var target gonetworkmanager.AccessPoint
	for _, ap := range aps {
		if ssid, err := ap.GetPropertySSID(); err == nil && ssid == req.SSID {
			target = ap
			break
		}
	}
	if target == nil {
		return false, fmt.Errorf("network %q: %w", req.SSID, wifi.ErrNotFound)
	}

	conn, err := d.store(dev, p)
	if err != nil {
		return false, fmt.Errorf("storing profile %q: %w", p.Name, err)
	}
	ac, err := d.NM.ActivateWirelessConnection(conn, dev, target)
	if err != nil {
		d.logger.Debug("activation refused", "ssid", req.SSID, "error", err)
		return false, nil
	}
	return d.waitActivated(ctx, ac, req.Timeout)
}

// waitActivated follows the activation of ac. State signals are used when the
// bus delivers them and the state is polled with backoff regardless. Reaching
// the timeout counts as a rejected attempt.
func (d *Driver) waitActivated(ctx context.Context, ac gonetworkmanager.ActiveConnection, timeout time.Duration) (bool, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	changes := make(chan gonetworkmanager.StateChange, 1)
	done := make(chan struct{})
	defer close(done)
	if err := ac.SubscribeState(changes, done); err != nil {
		d.logger.Debug("state signals unavailable", "error", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	ticker := backoff.NewTicker(backoff.WithContext(b, tctx))
	defer ticker.Stop()
	ticks := ticker.C

	check := func(s gonetworkmanager.NmActiveConnectionState) (bool, bool) {
		switch s {
		case gonetworkmanager.NmActiveConnectionStateActivated:
			return true, true
		case gonetworkmanager.NmActiveConnectionStateDeactivated, gonetworkmanager.NmActiveConnectionStateDeactivating:
			return false, true
		}
		return false, false
	}

	for {
		select {
		case change := <-changes:
			if ok, final := check(change.State); final {
				return ok, nil
			}
		case _, open := <-ticks:
			if !open {
				ticks = nil
				continue
			}
			state, err := ac.GetPropertyState()
			if err != nil {
				// The active connection object goes away once activation fails.
				d.logger.Debug("reading activation state", "error", err)
				return false, nil
			}
			if ok, final := check(state); final {
				return ok, nil
			}
		case <-tctx.Done():
			if err := ctx.Err(); err != nil {
				return false, err
			}
			d.logger.Debug("activation timed out", "timeout", timeout)
			return false, nil
		}
	}
}

var errStillConnected = errors.New("still connected")

func (d *Driver) Disconnect(ctx context.Context, interfaceID uuid.UUID, timeout time.Duration) (bool, error) {
	dev, err := d.device(interfaceID)
	if err != nil {
		return false, err
	}
	ac, err := dev.GetPropertyActiveConnection()
	if err != nil || ac == nil {
		return false, nil
	}
	if err := d.NM.DeactivateConnection(ac); err != nil {
		return false, fmt.Errorf("deactivating: %w", err)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0
	err = backoff.Retry(func() error {
		state, err := dev.GetPropertyState()
		if err != nil {
			return backoff.Permanent(err)
		}
		if interfaceState(state) != wifi.InterfaceDisconnected {
			return errStillConnected
		}
		return nil
	}, backoff.WithContext(b, tctx))
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err == nil, nil
}

func (d *Driver) SetProfile(ctx context.Context, interfaceID uuid.UUID, document string) error {
	p, err := profile.Parse(document)
	if err != nil {
		return err
	}
	dev, err := d.device(interfaceID)
	if err != nil {
		return err
	}
	_, err = d.store(dev, p)
	return err
}

// SetProfilePosition rewrites autoconnect priorities so that the profiles of
// the interface keep their order with p moved to position.
func (d *Driver) SetProfilePosition(ctx context.Context, p wifi.Profile, position int) error {
	dev, err := d.device(p.InterfaceID)
	if err != nil {
		return err
	}
	conns, err := d.connections()
	if err != nil {
		return err
	}
	ordered := d.profilesOf(dev, conns)
	profiles := make([]wifi.Profile, len(ordered))
	for i, k := range ordered {
		profiles[i] = k.Profile
	}
	moved, err := wifi.MoveProfile(profiles, p.Name, position)
	if err != nil {
		return err
	}

	byName := map[string]known{}
	for _, k := range ordered {
		byName[k.Name] = k
	}
	for _, mp := range moved {
		k := byName[mp.Name]
		priority := int32(len(moved) - mp.Position)
		if k.Priority == priority {
			continue
		}
		settings, err := k.conn.GetSettings()
		if err != nil {
			return fmt.Errorf("reading %q: %w", k.Name, err)
		}
		settings["connection"]["autoconnect-priority"] = priority
		applyUpdateWorkaround(settings)
		if err := k.conn.Update(settings); err != nil {
			return fmt.Errorf("updating %q: %w", k.Name, err)
		}
	}
	return nil
}

func (d *Driver) DeleteProfile(ctx context.Context, p wifi.Profile) error {
	dev, err := d.device(p.InterfaceID)
	if err != nil {
		return err
	}
	conns, err := d.connections()
	if err != nil {
		return err
	}
	k, ok := d.findConnection(conns, p.Name, dev.name)
	if !ok {
		return fmt.Errorf("profile %q: %w", p.Name, wifi.ErrNotFound)
	}
	return k.conn.Delete()
}

// SetRadio switches the wireless radio. NetworkManager has one switch for
// every device.
func (d *Driver) SetRadio(ctx context.Context, interfaceID uuid.UUID, on bool) error {
	if _, err := d.device(interfaceID); err != nil {
		return err
	}
	// Not all versions of NetworkManager support subscribing to signals, so we
	// can't rely on it. We'll just have to assume the change was successful.
	// See: https://github.com/Wifx/gonetworkmanager/pull/14
	return d.NM.SetPropertyWirelessEnabled(on)
}
