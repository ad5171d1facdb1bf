// Package controller serializes the interactive driver operations: only one
// runs at a time and callers that arrive while one is in flight are turned
// away with ErrBusy.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shazow/wifirecover/internal/gate"
	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/password"
	"github.com/shazow/wifirecover/wifi/profile"
)

// ErrBusy is returned when another operation is in flight.
var ErrBusy = fmt.Errorf("another operation is in progress: %w", wifi.ErrBusy)

// DefaultTimeout bounds scans, connects and disconnects.
const DefaultTimeout = 10 * time.Second

// Controller wraps a driver with a single-flight gate.
type Controller struct {
	driver    wifi.Driver
	gate      *gate.Gate
	timeout   time.Duration
	threshold int
	logger    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout sets the timeout passed to the driver.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithThreshold hides access points whose link quality is not above n.
func WithThreshold(n int) Option {
	return func(c *Controller) { c.threshold = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Controller for driver.
func New(driver wifi.Driver, opts ...Option) *Controller {
	c := &Controller{
		driver:  driver,
		gate:    gate.New(),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Driver returns the wrapped driver.
func (c *Controller) Driver() wifi.Driver { return c.driver }

// Busy reports whether an operation is in flight.
func (c *Controller) Busy() bool { return c.gate.Busy() }

func run[T any](c *Controller, op string, fn func() (T, error)) (T, error) {
	v, ran, err := gate.Try(c.gate, fn)
	if !ran {
		c.logger.Debug("operation dropped", "op", op)
		return v, ErrBusy
	}
	if err != nil {
		c.logger.Debug("operation failed", "op", op, "error", err)
	}
	return v, err
}

func do(c *Controller, op string, fn func() error) error {
	_, err := run(c, op, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (c *Controller) Interfaces(ctx context.Context) ([]wifi.Interface, error) {
	return run(c, "interfaces", func() ([]wifi.Interface, error) {
		return c.driver.Interfaces(ctx)
	})
}

func (c *Controller) Scan(ctx context.Context) error {
	return do(c, "scan", func() error {
		return c.driver.Scan(ctx, c.timeout)
	})
}

// AccessPoints returns the visible networks above the link quality threshold,
// best first.
func (c *Controller) AccessPoints(ctx context.Context) ([]wifi.AccessPoint, error) {
	return run(c, "access points", func() ([]wifi.AccessPoint, error) {
		aps, err := c.driver.AccessPoints(ctx)
		if err != nil {
			return nil, err
		}
		aps = wifi.FilterByLinkQuality(aps, c.threshold)
		wifi.SortAccessPoints(aps)
		return aps, nil
	})
}

// Profiles returns stored profiles ordered by interface and position.
func (c *Controller) Profiles(ctx context.Context) ([]wifi.Profile, error) {
	return run(c, "profiles", func() ([]wifi.Profile, error) {
		ps, err := c.driver.Profiles(ctx)
		if err != nil {
			return nil, err
		}
		wifi.SortProfiles(ps)
		return ps, nil
	})
}

// FindAccessPoint returns the best access point named ssid. A nil interface
// ID matches any interface.
func (c *Controller) FindAccessPoint(ctx context.Context, interfaceID uuid.UUID, ssid string) (wifi.AccessPoint, error) {
	aps, err := c.AccessPoints(ctx)
	if err != nil {
		return wifi.AccessPoint{}, err
	}
	for _, ap := range aps {
		if ap.SSID == ssid && (interfaceID == uuid.Nil || ap.InterfaceID == interfaceID) {
			return ap, nil
		}
	}
	return wifi.AccessPoint{}, fmt.Errorf("access point %q: %w", ssid, wifi.ErrNotFound)
}

// FindProfile returns the profile named name. A nil interface ID matches the
// first interface holding one.
func (c *Controller) FindProfile(ctx context.Context, interfaceID uuid.UUID, name string) (wifi.Profile, error) {
	ps, err := c.Profiles(ctx)
	if err != nil {
		return wifi.Profile{}, err
	}
	for _, p := range ps {
		if p.Name == name && (interfaceID == uuid.Nil || p.InterfaceID == interfaceID) {
			return p, nil
		}
	}
	return wifi.Profile{}, fmt.Errorf("profile %q: %w", name, wifi.ErrNotFound)
}

// Connect checks the password against the network's cipher, builds a profile
// and connects with it.
func (c *Controller) Connect(ctx context.Context, ap wifi.AccessPoint, pw string) (bool, error) {
	if ap.PasswordRequired() {
		if err := password.Validate(pw, ap.Encryption); err != nil {
			return false, err
		}
	}
	doc, err := profile.Create(ap, pw)
	if err != nil {
		return false, err
	}
	return run(c, "connect", func() (bool, error) {
		return c.driver.Connect(ctx, wifi.ConnectRequest{
			InterfaceID: ap.InterfaceID,
			Document:    doc,
			SSID:        ap.SSID,
			BssType:     ap.BssType,
			Timeout:     c.timeout,
		})
	})
}

func (c *Controller) Disconnect(ctx context.Context, interfaceID uuid.UUID) (bool, error) {
	return run(c, "disconnect", func() (bool, error) {
		return c.driver.Disconnect(ctx, interfaceID, c.timeout)
	})
}

// ImportProfile stores doc on the interface after checking that it parses.
func (c *Controller) ImportProfile(ctx context.Context, interfaceID uuid.UUID, doc string) (wifi.Profile, error) {
	p, err := profile.Parse(doc)
	if err != nil {
		return p, fmt.Errorf("importing profile: %w", err)
	}
	p.InterfaceID = interfaceID
	return p, do(c, "import", func() error {
		return c.driver.SetProfile(ctx, interfaceID, doc)
	})
}

// ExportProfile returns the profile document re-indented.
func (c *Controller) ExportProfile(p wifi.Profile) ([]byte, error) {
	if p.Document == "" {
		return nil, fmt.Errorf("profile %q has no document: %w", p.Name, wifi.ErrNotSupported)
	}
	return profile.Format([]byte(p.Document), profile.DefaultFormatOptions())
}

func (c *Controller) DeleteProfile(ctx context.Context, p wifi.Profile) error {
	return do(c, "delete profile", func() error {
		return c.driver.DeleteProfile(ctx, p)
	})
}

// MoveProfileUp raises the priority of p by one.
func (c *Controller) MoveProfileUp(ctx context.Context, p wifi.Profile) error {
	if p.Position <= 0 {
		return fmt.Errorf("profile %q is already first: %w", p.Name, wifi.ErrInvalidPosition)
	}
	return c.setPosition(ctx, p, p.Position-1)
}

// MoveProfileDown lowers the priority of p by one.
func (c *Controller) MoveProfileDown(ctx context.Context, p wifi.Profile) error {
	return c.setPosition(ctx, p, p.Position+1)
}

// SetProfileDefault gives p the highest priority.
func (c *Controller) SetProfileDefault(ctx context.Context, p wifi.Profile) error {
	return c.setPosition(ctx, p, 0)
}

func (c *Controller) setPosition(ctx context.Context, p wifi.Profile, position int) error {
	return do(c, "move profile", func() error {
		return c.driver.SetProfilePosition(ctx, p, position)
	})
}

func (c *Controller) SetRadio(ctx context.Context, interfaceID uuid.UUID, on bool) error {
	return do(c, "radio", func() error {
		return c.driver.SetRadio(ctx, interfaceID, on)
	})
}
