//go:build linux && !mock

package main

import (
	"log/slog"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/iwd"
	"github.com/shazow/wifirecover/wifi/networkmanager"
)

func GetDriver(logger *slog.Logger) (wifi.Driver, error) {
	d, err := networkmanager.New(logger)
	if err == nil {
		return d, nil
	}
	logger.Warn("failed to initialize networkmanager driver, falling back to iwd", "error", err)
	// If the networkmanager dbus driver failed to initialize, try iwd
	return iwd.New(logger)
}
