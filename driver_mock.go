//go:build mock

package main

import (
	"log/slog"

	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/mock"
)

func GetDriver(logger *slog.Logger) (wifi.Driver, error) {
	logger.Info("using the mock driver")
	return mock.New()
}
