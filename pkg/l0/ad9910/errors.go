package ad9910

import (
	"errors"
	"fmt"
)

var (
	// ErrShortData indicates less data than the register length.
	ErrShortData = errors.New("data shorter than register")
	// ErrNoBus indicates the device has no SPI connection.
	ErrNoBus = errors.New("bus not connected")
)

// SlotError indicates a slot without a chip select line.
type SlotError struct {
	Slot  int
	Slots int
}

// Error implements error.
func (e *SlotError) Error() string {
	return fmt.Sprintf("no device slot I%d (%d configured)", e.Slot+1, e.Slots)
}

// RegisterError indicates a register which can't be transferred.
type RegisterError struct {
	Addr byte
}

// Error implements error.
func (e *RegisterError) Error() string {
	return fmt.Sprintf("register 0x%02x not transferable", e.Addr)
}

// BusError wraps a pin or bus failure with the step it happened in.
type BusError struct {
	Step string
	Err  error
}

// Error implements error.
func (e *BusError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *BusError) Unwrap() error {
	return e.Err
}
