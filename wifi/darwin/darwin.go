//go:build darwin

package darwin

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/profile"
)

// runWithOutput wraps exec.Cmd to capture stderr and wrap errors.
func runWithOutput(c *exec.Cmd) ([]byte, error) {
	var stderr strings.Builder
	c.Stderr = &stderr
	out, err := c.Output()
	if err != nil {
		return out, fmt.Errorf("failed to run command: %s: %w: %s", c.String(), err, stderr.String())
	}
	return out, nil
}

// runOnly wraps exec.Cmd for commands where we don't care about stdout.
func runOnly(c *exec.Cmd) error {
	_, err := runWithOutput(c)
	return err
}

// Driver implements wifi.Driver for macOS with networksetup and
// system_profiler.
type Driver struct {
	WifiInterface string
	logger        *slog.Logger

	mu   sync.Mutex
	last []scannedNetwork
}

// New finds the Wi-Fi hardware port.
func New(logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out, err := runWithOutput(exec.Command("networksetup", "-listallhardwareports"))
	if err != nil {
		return nil, fmt.Errorf("failed to list hardware ports: %w", wifi.ErrOperationFailed)
	}
	device, err := findWifiDevice(string(out))
	if err != nil {
		return nil, err
	}
	return &Driver{WifiInterface: device, logger: logger.With("driver", "darwin")}, nil
}

func (d *Driver) id() uuid.UUID { return wifi.InterfaceIDFromName(d.WifiInterface) }

func (d *Driver) check(id uuid.UUID) error {
	if id != d.id() {
		return fmt.Errorf("interface %s: %w", id, wifi.ErrNotFound)
	}
	return nil
}

func (d *Driver) radioOn(ctx context.Context) (bool, error) {
	out, err := runWithOutput(exec.CommandContext(ctx, "networksetup", "-getairportpower", d.WifiInterface))
	if err != nil {
		return false, err
	}
	return strings.Contains(string(out), ": On"), nil
}

func (d *Driver) currentNetwork(ctx context.Context) string {
	out, err := runWithOutput(exec.CommandContext(ctx, "networksetup", "-getairportnetwork", d.WifiInterface))
	if err != nil {
		return ""
	}
	return parseCurrentNetwork(string(out))
}

func (d *Driver) preferred(ctx context.Context) ([]string, error) {
	out, err := runWithOutput(exec.CommandContext(ctx, "networksetup", "-listpreferredwirelessnetworks", d.WifiInterface))
	if err != nil {
		return nil, fmt.Errorf("failed to list preferred networks: %w: %s", wifi.ErrOperationFailed, err)
	}
	return parsePreferred(string(out)), nil
}

func (d *Driver) Interfaces(ctx context.Context) ([]wifi.Interface, error) {
	on, err := d.radioOn(ctx)
	if err != nil {
		return nil, err
	}
	iface := wifi.Interface{
		ID:          d.id(),
		Name:        d.WifiInterface,
		Description: "Wi-Fi",
		State:       wifi.InterfaceNotReady,
		RadioOn:     on,
	}
	if on {
		iface.State = wifi.InterfaceDisconnected
		if d.currentNetwork(ctx) != "" {
			iface.State = wifi.InterfaceConnected
		}
	}
	return []wifi.Interface{iface}, nil
}

// Scan runs system_profiler, which scans as a side effect, and keeps the
// result for AccessPoints.
func (d *Driver) Scan(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := runWithOutput(exec.CommandContext(ctx, "system_profiler", "SPAirPortDataType"))
	if err != nil {
		return fmt.Errorf("failed to scan for networks: %w", wifi.ErrOperationFailed)
	}
	networks := parseSystemProfilerOutput(string(out))
	d.mu.Lock()
	d.last = networks
	d.mu.Unlock()
	return nil
}

func (d *Driver) AccessPoints(ctx context.Context) ([]wifi.AccessPoint, error) {
	on, err := d.radioOn(ctx)
	if err != nil || !on {
		return nil, err
	}
	d.mu.Lock()
	networks := d.last
	d.mu.Unlock()

	known, err := d.preferred(ctx)
	if err != nil {
		return nil, err
	}
	current := d.currentNetwork(ctx)

	r := make([]wifi.AccessPoint, 0, len(networks))
	for _, n := range networks {
		ap := wifi.AccessPoint{
			InterfaceID:     d.id(),
			SSID:            n.ssid,
			BssType:         n.bssType,
			SecurityEnabled: n.secure,
			Authentication:  n.auth,
			Encryption:      n.enc,
			Connectable:     n.auth != wifi.AuthWPAEnterprise && n.auth != wifi.AuthWPA2Enterprise,
			IsConnected:     n.isActive || n.ssid == current,
			LinkQuality:     rssiToQuality(n.rssi),
			Band:            n.band,
			Channel:         n.channel,
		}
		if slices.Contains(known, n.ssid) {
			ap.ProfileName = n.ssid
		}
		r = append(r, ap)
	}
	return r, nil
}

// Profiles lists the preferred networks. Their security comes from the last
// scan when the network was seen; keys stay in the keychain.
func (d *Driver) Profiles(ctx context.Context) ([]wifi.Profile, error) {
	known, err := d.preferred(ctx)
	if err != nil {
		return nil, err
	}
	current := d.currentNetwork(ctx)
	d.mu.Lock()
	seen := map[string]scannedNetwork{}
	for _, n := range d.last {
		seen[n.ssid] = n
	}
	d.mu.Unlock()

	r := make([]wifi.Profile, 0, len(known))
	for i, ssid := range known {
		p := wifi.Profile{
			InterfaceID:    d.id(),
			Name:           ssid,
			SSID:           ssid,
			Type:           wifi.ProfileAllUser,
			BssType:        wifi.BssInfrastructure,
			Authentication: wifi.AuthOpen,
			Encryption:     wifi.EncryptionNone,
			AutoConnect:    true,
			Position:       i,
			IsConnected:    ssid == current,
		}
		if n, ok := seen[ssid]; ok {
			p.Authentication, p.Encryption = n.auth, n.enc
		}
		doc, err := profile.Create(wifi.AccessPoint{
			SSID:            ssid,
			BssType:         wifi.BssInfrastructure,
			SecurityEnabled: p.Encryption != wifi.EncryptionNone,
			Authentication:  p.Authentication,
			Encryption:      p.Encryption,
		}, "")
		if err == nil {
			p.Document = doc
		}
		r = append(r, p)
	}
	return r, nil
}

// Connect joins the network with the key from the profile document.
func (d *Driver) Connect(ctx context.Context, req wifi.ConnectRequest) (bool, error) {
	p, err := profile.Parse(req.Document)
	if err != nil {
		return false, err
	}
	if err := d.check(req.InterfaceID); err != nil {
		return false, err
	}
	on, err := d.radioOn(ctx)
	if err != nil {
		return false, err
	}
	if !on {
		return false, wifi.ErrWirelessDisabled
	}

	tctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()
	args := []string{"-setairportnetwork", d.WifiInterface, req.SSID}
	if p.Key != "" {
		args = append(args, p.Key)
	}
	out, err := runWithOutput(exec.CommandContext(tctx, "networksetup", args...))
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		d.logger.Debug("join failed", "ssid", req.SSID, "error", err)
		return false, nil
	}
	failed, notFound := joinFailed(string(out))
	if notFound {
		return false, fmt.Errorf("network %q: %w", req.SSID, wifi.ErrNotFound)
	}
	if failed {
		return false, nil
	}
	return d.currentNetwork(ctx) == req.SSID, nil
}

// Disconnect is not supported: networksetup cannot leave a network without
// switching the radio off.
func (d *Driver) Disconnect(ctx context.Context, interfaceID uuid.UUID, timeout time.Duration) (bool, error) {
	if err := d.check(interfaceID); err != nil {
		return false, err
	}
	return false, fmt.Errorf("disconnect: %w", wifi.ErrNotSupported)
}

// SetProfile adds the network to the top of the preferred list.
func (d *Driver) SetProfile(ctx context.Context, interfaceID uuid.UUID, document string) error {
	p, err := profile.Parse(document)
	if err != nil {
		return err
	}
	if err := d.check(interfaceID); err != nil {
		return err
	}
	return d.addPreferred(ctx, p, 0)
}

func (d *Driver) addPreferred(ctx context.Context, p wifi.Profile, index int) error {
	args := []string{
		"-addpreferredwirelessnetworkatindex", d.WifiInterface, p.SSID,
		fmt.Sprint(index), securityToken(p.Authentication, p.Encryption),
	}
	if p.Key != "" {
		args = append(args, p.Key)
	}
	return runOnly(exec.CommandContext(ctx, "networksetup", args...))
}

// SetProfilePosition re-adds the network at position. The keychain entry is
// kept by macOS.
func (d *Driver) SetProfilePosition(ctx context.Context, p wifi.Profile, position int) error {
	if err := d.check(p.InterfaceID); err != nil {
		return err
	}
	known, err := d.preferred(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(known, p.Name) {
		return fmt.Errorf("profile %q: %w", p.Name, wifi.ErrNotFound)
	}
	if position < 0 || position >= len(known) {
		return fmt.Errorf("position %d of %d: %w", position, len(known), wifi.ErrInvalidPosition)
	}
	if err := d.DeleteProfile(ctx, p); err != nil {
		return err
	}
	return d.addPreferred(ctx, p, position)
}

func (d *Driver) DeleteProfile(ctx context.Context, p wifi.Profile) error {
	if err := d.check(p.InterfaceID); err != nil {
		return err
	}
	return runOnly(exec.CommandContext(ctx, "networksetup", "-removepreferredwirelessnetwork", d.WifiInterface, p.Name))
}

func (d *Driver) SetRadio(ctx context.Context, interfaceID uuid.UUID, on bool) error {
	if err := d.check(interfaceID); err != nil {
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	return runOnly(exec.CommandContext(ctx, "networksetup", "-setairportpower", d.WifiInterface, state))
}
