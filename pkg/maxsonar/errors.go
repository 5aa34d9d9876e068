package maxsonar

import (
	"errors"
	"fmt"
)

var (
	// ErrPortUnavailable indicates the serial device can't be opened.
	ErrPortUnavailable = errors.New("port not available")
	// ErrInvalidEncoding indicates the frame payload is not valid text.
	ErrInvalidEncoding = errors.New("invalid UTF-8 sequence")
	// ErrInvalidNumber indicates the frame digits don't form an integer.
	ErrInvalidNumber = errors.New("invalid numeric payload")
	// ErrMalformedFrame indicates a frame terminated early or overflowed
	// the payload size without a terminator.
	ErrMalformedFrame = errors.New("malformed frame")
)

// DeviceError is a fatal error from a serial device.
type DeviceError struct {
	Device string
	Op     string
	Err    error
}

// Error implements error.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Device, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// TriggerError is a failure to drive the trigger pin.
type TriggerError struct {
	Pin int
	Op  string
	Err error
}

// Error implements error.
func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger GPIO%d %s: %v", e.Pin, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TriggerError) Unwrap() error {
	return e.Err
}
