//go:build linux

// Package iwd drives the iNet wireless daemon over D-Bus.
package iwd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/profile"
)

const propertyChangeTimeout = 5 * time.Second

// Driver implements wifi.Driver using iwd.
type Driver struct {
	conn   *dbus.Conn
	agent  *agent
	logger *slog.Logger
}

// New connects to iwd on the system bus and registers a passphrase agent.
func New(logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", wifi.ErrNotAvailable)
	}
	d := &Driver{conn: conn, agent: &agent{}, logger: logger.With("driver", "iwd")}
	if _, err := d.objects(context.Background()); err != nil {
		return nil, fmt.Errorf("iwd is not available: %w", wifi.ErrNotAvailable)
	}

	if err := conn.Export(d.agent, agentPath, iwdAgentIface); err != nil {
		return nil, fmt.Errorf("exporting agent: %w", err)
	}
	call := conn.Object(iwdDest, iwdPath).Call(iwdAgentManagerIface+".RegisterAgent", 0, agentPath)
	if call.Err != nil {
		return nil, fmt.Errorf("registering agent: %w", call.Err)
	}
	return d, nil
}

func (d *Driver) objects(ctx context.Context) (managedObjects, error) {
	var objs managedObjects
	err := d.conn.Object(iwdDest, iwdPath).
		CallWithContext(ctx, objectManagerIface+".GetManagedObjects", 0).
		Store(&objs)
	return objs, err
}

func (d *Driver) station(ctx context.Context, id uuid.UUID) (station, managedObjects, error) {
	objs, err := d.objects(ctx)
	if err != nil {
		return station{}, nil, err
	}
	for _, st := range stations(objs) {
		if wifi.InterfaceIDFromName(st.name) == id {
			return st, objs, nil
		}
	}
	return station{}, nil, fmt.Errorf("interface %s: %w", id, wifi.ErrNotFound)
}

func (d *Driver) Interfaces(ctx context.Context) ([]wifi.Interface, error) {
	objs, err := d.objects(ctx)
	if err != nil {
		return nil, err
	}
	var r []wifi.Interface
	for _, st := range stations(objs) {
		r = append(r, wifi.Interface{
			ID:          wifi.InterfaceIDFromName(st.name),
			Name:        st.name,
			Description: "iwd station",
			State:       interfaceState(st),
			RadioOn:     st.powered,
		})
	}
	return r, nil
}

var errScanning = errors.New("scan in progress")

// Scan starts a scan on every powered station and waits for the Scanning
// property to clear.
func (d *Driver) Scan(ctx context.Context, timeout time.Duration) error {
	objs, err := d.objects(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, st := range stations(objs) {
		if !st.powered {
			continue
		}
		obj := d.conn.Object(iwdDest, st.path)
		if call := obj.CallWithContext(ctx, iwdStationIface+".Scan", 0); call.Err != nil {
			// A scan that is already running is fine.
			d.logger.Debug("scan request", "interface", st.name, "error", call.Err)
		}
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 200 * time.Millisecond
		b.MaxElapsedTime = 0
		_ = backoff.Retry(func() error {
			v, err := obj.GetProperty(iwdStationIface + ".Scanning")
			if err != nil {
				return backoff.Permanent(err)
			}
			if scanning, _ := v.Value().(bool); scanning {
				return errScanning
			}
			return nil
		}, backoff.WithContext(b, ctx))
	}
	return nil
}

type orderedNetwork struct {
	Path   dbus.ObjectPath
	Signal int16
}

func (d *Driver) AccessPoints(ctx context.Context) ([]wifi.AccessPoint, error) {
	objs, err := d.objects(ctx)
	if err != nil {
		return nil, err
	}
	known := map[dbus.ObjectPath]string{}
	for _, k := range knownNetworks(objs) {
		known[k.path] = k.name
	}

	var r []wifi.AccessPoint
	for _, st := range stations(objs) {
		if !st.powered {
			continue
		}
		var ordered []orderedNetwork
		err := d.conn.Object(iwdDest, st.path).
			CallWithContext(ctx, iwdStationIface+".GetOrderedNetworks", 0).
			Store(&ordered)
		if err != nil {
			d.logger.Warn("listing networks", "interface", st.name, "error", err)
			continue
		}
		for _, on := range ordered {
			n, ok := networkAt(objs, on.Path)
			if !ok || n.name == "" {
				continue
			}
			secure, auth, enc := securityFromType(n.kind)
			r = append(r, wifi.AccessPoint{
				InterfaceID:     wifi.InterfaceIDFromName(st.name),
				SSID:            n.name,
				BssType:         wifi.BssInfrastructure,
				SecurityEnabled: secure,
				Authentication:  auth,
				Encryption:      enc,
				ProfileName:     known[n.known],
				Connectable:     n.kind != "8021x",
				IsConnected:     n.connected,
				LinkQuality:     qualityFromSignal(on.Signal),
			})
		}
	}
	return r, nil
}

// Profiles lists known networks under every station. iwd does not expose
// stored keys.
func (d *Driver) Profiles(ctx context.Context) ([]wifi.Profile, error) {
	objs, err := d.objects(ctx)
	if err != nil {
		return nil, err
	}
	connected := map[string]bool{}
	for path := range objs {
		if n, ok := networkAt(objs, path); ok && n.connected {
			connected[n.name] = true
		}
	}

	var r []wifi.Profile
	for _, st := range stations(objs) {
		for i, k := range knownNetworks(objs) {
			_, auth, enc := securityFromType(k.kind)
			p := wifi.Profile{
				InterfaceID:    wifi.InterfaceIDFromName(st.name),
				Name:           k.name,
				SSID:           k.name,
				Type:           wifi.ProfileAllUser,
				BssType:        wifi.BssInfrastructure,
				Authentication: auth,
				Encryption:     enc,
				AutoConnect:    k.autoConnect,
				Position:       i,
				IsConnected:    connected[k.name],
			}
			doc, err := profile.Create(wifi.AccessPoint{
				SSID:            p.SSID,
				BssType:         p.BssType,
				SecurityEnabled: enc != wifi.EncryptionNone,
				Authentication:  auth,
				Encryption:      enc,
			}, "")
			if err == nil {
				p.Document = doc
			}
			r = append(r, p)
		}
	}
	return r, nil
}

// Connect forgets any stored network of the same name so that iwd asks the
// agent for the key, then connects. A failed handshake is a rejection.
func (d *Driver) Connect(ctx context.Context, req wifi.ConnectRequest) (bool, error) {
	p, err := profile.Parse(req.Document)
	if err != nil {
		return false, err
	}
	st, objs, err := d.station(ctx, req.InterfaceID)
	if err != nil {
		return false, err
	}
	if !st.powered {
		return false, wifi.ErrWirelessDisabled
	}
	n, ok := findNetwork(objs, st.path, req.SSID)
	if !ok {
		return false, fmt.Errorf("network %q: %w", req.SSID, wifi.ErrNotFound)
	}
	if n.known != "" {
		if err := d.forget(ctx, n.known); err != nil {
			return false, err
		}
	}

	d.agent.expect(n.path, p.Key)
	defer d.agent.reset()

	tctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()
	call := d.conn.Object(iwdDest, n.path).CallWithContext(tctx, iwdNetworkIface+".Connect", 0)
	if call.Err == nil {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var derr dbus.Error
	if errors.As(call.Err, &derr) {
		d.logger.Debug("connect rejected", "ssid", req.SSID, "error", derr.Name)
		return false, nil
	}
	if tctx.Err() != nil {
		return false, nil
	}
	return false, fmt.Errorf("connecting to %q: %w", req.SSID, call.Err)
}

func (d *Driver) Disconnect(ctx context.Context, interfaceID uuid.UUID, timeout time.Duration) (bool, error) {
	st, _, err := d.station(ctx, interfaceID)
	if err != nil {
		return false, err
	}
	if st.connected == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	call := d.conn.Object(iwdDest, st.path).CallWithContext(ctx, iwdStationIface+".Disconnect", 0)
	if call.Err != nil {
		return false, fmt.Errorf("disconnecting: %w", call.Err)
	}
	return true, nil
}

// SetProfile is not supported: iwd only stores a network after connecting
// to it.
func (d *Driver) SetProfile(ctx context.Context, interfaceID uuid.UUID, document string) error {
	if _, err := profile.Parse(document); err != nil {
		return err
	}
	return fmt.Errorf("storing profiles without connecting: %w", wifi.ErrNotSupported)
}

// SetProfilePosition is not supported: iwd orders known networks by last use.
func (d *Driver) SetProfilePosition(ctx context.Context, p wifi.Profile, position int) error {
	return fmt.Errorf("profile priority: %w", wifi.ErrNotSupported)
}

func (d *Driver) DeleteProfile(ctx context.Context, p wifi.Profile) error {
	objs, err := d.objects(ctx)
	if err != nil {
		return err
	}
	for _, k := range knownNetworks(objs) {
		if k.name == p.Name {
			return d.forget(ctx, k.path)
		}
	}
	return fmt.Errorf("profile %q: %w", p.Name, wifi.ErrNotFound)
}

func (d *Driver) forget(ctx context.Context, path dbus.ObjectPath) error {
	call := d.conn.Object(iwdDest, path).CallWithContext(ctx, iwdKnownNetworkIface+".Forget", 0)
	if call.Err != nil {
		return fmt.Errorf("forgetting network: %w", call.Err)
	}
	return nil
}

// SetRadio powers the device and waits for iwd to report the change.
func (d *Driver) SetRadio(ctx context.Context, interfaceID uuid.UUID, on bool) error {
	st, _, err := d.station(ctx, interfaceID)
	if err != nil {
		return err
	}
	if st.powered == on {
		return nil
	}

	signals := make(chan *dbus.Signal, 10)
	matchPath := dbus.WithMatchObjectPath(st.path)
	matchInterface := dbus.WithMatchInterface(propertiesIface)
	if err := d.conn.AddMatchSignal(matchInterface, matchPath); err != nil {
		return err
	}
	defer d.conn.RemoveMatchSignal(matchInterface, matchPath)
	d.conn.Signal(signals)
	defer d.conn.RemoveSignal(signals)

	obj := d.conn.Object(iwdDest, st.path)
	if err := obj.SetProperty(iwdDeviceIface+".Powered", dbus.MakeVariant(on)); err != nil {
		return fmt.Errorf("setting power: %w", err)
	}

	timeout := time.NewTimer(propertyChangeTimeout)
	defer timeout.Stop()
	for {
		select {
		case signal := <-signals:
			if poweredChanged(signal, on) {
				return nil
			}
		case <-timeout.C:
			return fmt.Errorf("timed out waiting for radio state change: %w", wifi.ErrOperationFailed)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
