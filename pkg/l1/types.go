package l1

import (
	"context"

	"github.com/robotalks/ddsbox/pkg/l1/msgs"
)

// DefaultBoxType is the type of boxes registered by ddsboxd.
const DefaultBoxType = "ddsbox"

// Registrar registers a box to a registry and publishes what it does.
type Registrar interface {
	// PublishEvent publishes a finished command.
	PublishEvent(context.Context, *msgs.CommandEvent) error
}

// BoxRef is a reference to a DDS box.
type BoxRef struct {
	// Type is the box type.
	Type string
	// ID is unique ID of the box.
	ID string
}

// Name retrieves the name from ref.
func (r BoxRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates BoxRef is valid.
func (r BoxRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// BoxMeta provides metadata for a box.
type BoxMeta struct {
	Description string            `json:"description,omitempty"`
	Identity    string            `json:"identity,omitempty"`
	Slots       int               `json:"slots,omitempty"`
	Link        string            `json:"link,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// BoxInfo provides information of a box.
type BoxInfo struct {
	Ref  BoxRef
	Meta BoxMeta
}

// Connector is used by host tools to find and connect to boxes.
type Connector interface {
	// Discover enumerates registered boxes.
	Discover(context.Context) ([]BoxInfo, error)
	// Connect opens the command link of a box.
	Connect(context.Context, BoxRef) (Link, error)
}

// Link is the byte stream carrying commands to a box and its replies back.
type Link interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
}
