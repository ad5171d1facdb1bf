package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/shazow/wifirecover/internal/controller"
	"github.com/shazow/wifirecover/internal/storage"
	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/password"
	"github.com/shazow/wifirecover/wifi/profile"
)

var errUsage = errors.New("invalid usage")

// encode writes v as json or yaml. It reports false for the text format so
// the caller can print its own layout.
func encode(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "", "text":
		return false, nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("failed to encode YAML: %w", err)
		}
		return true, nil
	}
	return false, fmt.Errorf("unknown output format %q: %w", format, errUsage)
}

// resolveInterface accepts an interface ID or name. An empty string resolves
// to uuid.Nil, which matches any interface.
func resolveInterface(ctx context.Context, c *controller.Controller, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	if id, err := uuid.Parse(s); err == nil {
		return id, nil
	}
	ifaces, err := c.Interfaces(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, i := range ifaces {
		if i.Name == s {
			return i.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("interface %q: %w", s, wifi.ErrNotFound)
}

// requireInterface is resolveInterface that falls back to the first
// interface with its radio on.
func requireInterface(ctx context.Context, c *controller.Controller, s string) (uuid.UUID, error) {
	id, err := resolveInterface(ctx, c, s)
	if err != nil || id != uuid.Nil {
		return id, err
	}
	ifaces, err := c.Interfaces(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, i := range ifaces {
		if i.RadioOn {
			return i.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no interface with the radio on: %w", wifi.ErrWirelessDisabled)
}

func formatAccessPoint(ap wifi.AccessPoint) string {
	parts := []string{fmt.Sprintf("%d%%", ap.LinkQuality)}
	if ap.SecurityEnabled {
		parts = append(parts, fmt.Sprintf("%s/%s", ap.Authentication, ap.Encryption))
	} else {
		parts = append(parts, "open")
	}
	if ap.Channel > 0 {
		parts = append(parts, fmt.Sprintf("ch %d", ap.Channel))
	}
	if ap.HasProfile() {
		parts = append(parts, "known")
	}
	if ap.IsConnected {
		parts = append(parts, "active")
	}
	if !ap.Connectable {
		parts = append(parts, "unsupported")
	}
	return strings.Join(parts, ", ")
}

func runInterfaces(ctx context.Context, w io.Writer, format string, c *controller.Controller) error {
	ifaces, err := c.Interfaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list interfaces: %w", err)
	}
	if done, err := encode(w, format, ifaces); done || err != nil {
		return err
	}
	for _, i := range ifaces {
		radio := "off"
		if i.RadioOn {
			radio = "on"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\tradio %s\t%s\n", i.ID, i.Name, i.State, radio, i.Description)
	}
	return nil
}

func runList(ctx context.Context, w io.Writer, format string, scan bool, c *controller.Controller) error {
	if scan {
		if err := c.Scan(ctx); err != nil {
			return fmt.Errorf("failed to scan: %w", err)
		}
	}
	aps, err := c.AccessPoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}
	if done, err := encode(w, format, aps); done || err != nil {
		return err
	}
	for _, ap := range aps {
		fmt.Fprintf(w, "%s\t%s\n", ap.SSID, formatAccessPoint(ap))
	}
	return nil
}

func runProfiles(ctx context.Context, w io.Writer, format, iface string, c *controller.Controller) error {
	id, err := resolveInterface(ctx, c, iface)
	if err != nil {
		return err
	}
	all, err := c.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	var ps []wifi.Profile
	for _, p := range all {
		if id == uuid.Nil || p.InterfaceID == id {
			p.Key = ""
			p.Document = ""
			ps = append(ps, p)
		}
	}
	if done, err := encode(w, format, ps); done || err != nil {
		return err
	}
	for _, p := range ps {
		flags := []string{fmt.Sprintf("%s/%s", p.Authentication, p.Encryption)}
		if p.AutoConnect {
			flags = append(flags, "auto")
		}
		if p.IsConnected {
			flags = append(flags, "active")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", p.Position, p.Name, strings.Join(flags, ", "))
	}
	return nil
}

func runConnect(ctx context.Context, w io.Writer, ssid, pw, iface string, c *controller.Controller) error {
	id, err := resolveInterface(ctx, c, iface)
	if err != nil {
		return err
	}
	ap, err := c.FindAccessPoint(ctx, id, ssid)
	if err != nil {
		return err
	}
	ok, err := c.Connect(ctx, ap, pw)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if !ok {
		return fmt.Errorf("connection to %q was rejected: %w", ssid, wifi.ErrOperationFailed)
	}
	fmt.Fprintf(w, "Connected to %s\n", ssid)
	return nil
}

func runDisconnect(ctx context.Context, w io.Writer, iface string, c *controller.Controller) error {
	id, err := requireInterface(ctx, c, iface)
	if err != nil {
		return err
	}
	ok, err := c.Disconnect(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	if !ok {
		fmt.Fprintln(w, "Not connected")
		return nil
	}
	fmt.Fprintln(w, "Disconnected")
	return nil
}

func runImport(ctx context.Context, w io.Writer, path, iface string, c *controller.Controller) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	id, err := requireInterface(ctx, c, iface)
	if err != nil {
		return err
	}
	p, err := c.ImportProfile(ctx, id, string(data))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Imported profile %s\n", p.Name)
	return nil
}

func runExport(ctx context.Context, w io.Writer, name, out, iface string, c *controller.Controller) error {
	id, err := resolveInterface(ctx, c, iface)
	if err != nil {
		return err
	}
	p, err := c.FindProfile(ctx, id, name)
	if err != nil {
		return err
	}
	doc, err := c.ExportProfile(p)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = w.Write(doc)
		return err
	}
	return os.WriteFile(out, doc, 0o600)
}

func runForget(ctx context.Context, w io.Writer, name, iface string, c *controller.Controller) error {
	id, err := resolveInterface(ctx, c, iface)
	if err != nil {
		return err
	}
	p, err := c.FindProfile(ctx, id, name)
	if err != nil {
		return err
	}
	if err := c.DeleteProfile(ctx, p); err != nil {
		return fmt.Errorf("failed to forget profile: %w", err)
	}
	fmt.Fprintf(w, "Forgot profile %s\n", name)
	return nil
}

func runPriority(ctx context.Context, w io.Writer, name, direction, iface string, c *controller.Controller) error {
	id, err := resolveInterface(ctx, c, iface)
	if err != nil {
		return err
	}
	p, err := c.FindProfile(ctx, id, name)
	if err != nil {
		return err
	}
	switch direction {
	case "up":
		err = c.MoveProfileUp(ctx, p)
	case "down":
		err = c.MoveProfileDown(ctx, p)
	case "default":
		err = c.SetProfileDefault(ctx, p)
	default:
		return fmt.Errorf("direction must be up, down or default, got %q: %w", direction, errUsage)
	}
	if err != nil {
		return fmt.Errorf("failed to move profile: %w", err)
	}
	p, err = c.FindProfile(ctx, p.InterfaceID, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s is now at position %d\n", name, p.Position)
	return nil
}

func runRadio(ctx context.Context, w io.Writer, state, iface string, c *controller.Controller) error {
	var on bool
	switch state {
	case "on":
		on = true
	case "off":
	default:
		return fmt.Errorf("radio state must be on or off, got %q: %w", state, errUsage)
	}
	id, err := resolveInterface(ctx, c, iface)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		ifaces, err := c.Interfaces(ctx)
		if err != nil {
			return err
		}
		if len(ifaces) == 0 {
			return fmt.Errorf("no wireless interface: %w", wifi.ErrNotFound)
		}
		id = ifaces[0].ID
	}
	if err := c.SetRadio(ctx, id, on); err != nil {
		return fmt.Errorf("failed to switch radio: %w", err)
	}
	fmt.Fprintf(w, "Radio %s\n", state)
	return nil
}

func runValidate(w io.Writer, encryption, pw string) error {
	enc, err := wifi.ParseEncryption(encryption)
	if err != nil {
		return err
	}
	if err := password.Validate(pw, enc); err != nil {
		return err
	}
	fmt.Fprintf(w, "valid %s key\n", enc)
	return nil
}

func runFormat(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := profile.Format(data, profile.DefaultFormatOptions())
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func runResults(w io.Writer, format, path string) error {
	results, err := storage.ReadResults(path)
	if err != nil {
		return err
	}
	if done, err := encode(w, format, results); done || err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\n", r.SSID, r.Password)
	}
	return nil
}

func runShowQR(w io.Writer, ssid, pw, encryption string, hidden bool) error {
	enc, err := wifi.ParseEncryption(encryption)
	if err != nil {
		return err
	}
	if enc != wifi.EncryptionNone {
		if err := password.Validate(pw, enc); err != nil {
			return err
		}
	}
	qr, err := GenerateWifiQRCode(ssid, pw, enc, hidden)
	if err != nil {
		return err
	}
	fmt.Fprint(w, qr)
	return nil
}
