package mqtt

import "errors"

var (
	// ErrTimeout indicates the broker didn't acknowledge in time.
	ErrTimeout = errors.New("MQTT timeout")
	// ErrClosed indicates the link is closed.
	ErrClosed = errors.New("MQTT link closed")
)
