package wifi

import "errors"

var (
	// ErrNotSupported is returned when an operation is not supported by the driver.
	ErrNotSupported = errors.New("not supported")
	// ErrNotFound is returned when an interface, network or profile is not found.
	ErrNotFound = errors.New("not found")
	// ErrNotAvailable is returned when the platform wireless service is unreachable.
	ErrNotAvailable = errors.New("not available")
	// ErrOperationFailed is returned when a generic driver operation fails.
	ErrOperationFailed = errors.New("operation failed")
	// ErrWirelessDisabled is returned when the radio is off.
	ErrWirelessDisabled = errors.New("wireless is disabled")
	// ErrBusy is returned when another driver operation is already in flight.
	ErrBusy = errors.New("busy")
	// ErrInvalidPosition is returned when a profile position is out of range.
	ErrInvalidPosition = errors.New("invalid profile position")
)
