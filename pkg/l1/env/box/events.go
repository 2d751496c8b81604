package box

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
	"github.com/robotalks/ddsbox/pkg/l0/dispatch"
	"github.com/robotalks/ddsbox/pkg/l1"
	"github.com/robotalks/ddsbox/pkg/l1/msgs"
)

// NewCommandEvent converts a dispatched command into the published event.
func NewCommandEvent(boxID string, ev *dispatch.Event) *msgs.CommandEvent {
	cmd := &ev.Command
	msg := &msgs.CommandEvent{
		BoxID:       boxID,
		Kind:        cmd.Kind.String(),
		Data:        ev.Data,
		Transcript:  ev.Transcript,
		TimestampNs: ev.Finished.UnixNano(),
		DurationNs:  int64(ev.Finished.Sub(ev.Started)),
	}
	if cmd.Kind.HasSlot() {
		msg.Slot = uint32(cmd.Slot)
	}
	switch cmd.Kind {
	case comm.KindReadRegister, comm.KindWriteRegister:
		msg.Address = uint32(cmd.RegisterAddress())
	}
	for _, slot := range ev.Present {
		msg.Present = append(msg.Present, int32(slot))
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

// EventPublisher publishes every finished command.
type EventPublisher struct {
	BoxID     string
	Registrar l1.Registrar
}

// CommandDone implements dispatch.Notifier.
func (p *EventPublisher) CommandDone(ctx context.Context, ev *dispatch.Event) {
	if err := p.Registrar.PublishEvent(ctx, NewCommandEvent(p.BoxID, ev)); err != nil {
		glog.Warningf("publish %s event error: %v", ev.Command.Kind, err)
	}
}

// Stats counts finished commands.
type Stats struct {
	commands uint64
	errors   uint64
}

// CommandDone implements dispatch.Notifier.
func (s *Stats) CommandDone(ctx context.Context, ev *dispatch.Event) {
	atomic.AddUint64(&s.commands, 1)
	if ev.Err != nil {
		atomic.AddUint64(&s.errors, 1)
	}
}

// Commands returns the number of finished commands.
func (s *Stats) Commands() uint64 {
	return atomic.LoadUint64(&s.commands)
}

// Errors returns the number of commands finished with an error.
func (s *Stats) Errors() uint64 {
	return atomic.LoadUint64(&s.errors)
}

// StatusPublisher publishes box status.
type StatusPublisher interface {
	PublishStatus(context.Context, *msgs.BoxStatus) error
}

// StatusReporter publishes the box status periodically from the loop.
type StatusReporter struct {
	Interval time.Duration
	BoxID    string
	Stats    *Stats
	Receiver interface {
		Dropped() uint64
		State() comm.ParseState
	}
	Modes interface {
		Mode() comm.Kind
	}
	Publisher StatusPublisher

	next time.Time
}

// AddToLoop implements LoopAdder.
func (r *StatusReporter) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvReport, r)
}

// Control implements Controller.
func (r *StatusReporter) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if now.Before(r.next) {
		return nil
	}
	r.next = now.Add(r.Interval)
	return r.Publisher.PublishStatus(cc.Context(), r.Status(now))
}

// Status collects the current status.
func (r *StatusReporter) Status(now time.Time) *msgs.BoxStatus {
	return &msgs.BoxStatus{
		BoxID:       r.BoxID,
		Mode:        r.Modes.Mode().String(),
		ParseState:  r.Receiver.State().String(),
		Commands:    r.Stats.Commands(),
		Errors:      r.Stats.Errors(),
		Dropped:     r.Receiver.Dropped(),
		TimestampNs: now.UnixNano(),
	}
}
