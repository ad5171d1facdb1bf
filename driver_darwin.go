//go:build darwin && !mock

package main

import (
	"log/slog"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/darwin"
)

func GetDriver(logger *slog.Logger) (wifi.Driver, error) {
	return darwin.New(logger)
}
