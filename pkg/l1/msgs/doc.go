// Package msgs provides the events published by DDS boxes.
package msgs

// Events are published by ddsboxd to the registry and consumed by
// monitors (ddsmon). Each event is wrapped in Typed so a single topic
// can carry all kinds.
//
// Producer: ddsboxd
// Consumer: ddsmon
