package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrMailboxFull indicates a command is posted before the previous one
	// is released.
	ErrMailboxFull = errors.New("command pending")
	// ErrNoReply indicates the link closed before a command finished.
	ErrNoReply = errors.New("no reply")
)

// CommandError is reported by the box in an ">Error:" line.
type CommandError struct {
	Message string
}

// Error implements error.
func (e *CommandError) Error() string {
	return e.Message
}

// ReplyError indicates a reply which can't be decoded.
type ReplyError struct {
	Line string
}

// Error implements error.
func (e *ReplyError) Error() string {
	return fmt.Sprintf("unexpected reply %q", e.Line)
}
