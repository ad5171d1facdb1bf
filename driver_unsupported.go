//go:build !linux && !darwin && !mock

package main

import (
	"fmt"
	"log/slog"

	"github.com/shazow/wifirecover/wifi"
)

// GetDriver returns an error for unsupported operating systems.
func GetDriver(logger *slog.Logger) (wifi.Driver, error) {
	return nil, fmt.Errorf("unsupported operating system: %w", wifi.ErrNotAvailable)
}
