package box

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
	"github.com/robotalks/ddsbox/pkg/l0/dispatch"
	"github.com/robotalks/ddsbox/pkg/l1/msgs"
)

func TestNewCommandEvent(t *testing.T) {
	started := time.Unix(100, 0)
	cmd := comm.Command{Kind: comm.KindWriteRegister, Slot: 2, Address: [2]byte{'0', 'e'}, DataLen: 1}
	msg := NewCommandEvent("box1", &dispatch.Event{
		Command:    cmd,
		Data:       []byte{0x1a, 0, 0, 0, 0, 0, 0, 0},
		Transcript: ">Write Mode\n>Done\n",
		Started:    started,
		Finished:   started.Add(3 * time.Millisecond),
	})
	require.Equal(t, "box1", msg.BoxID)
	require.Equal(t, "WriteRegister", msg.Kind)
	require.Equal(t, uint32(2), msg.Slot)
	require.Equal(t, uint32(0x0e), msg.Address)
	require.Equal(t, int64(3*time.Millisecond), msg.DurationNs)
	require.Equal(t, started.Add(3*time.Millisecond).UnixNano(), msg.TimestampNs)
	require.Empty(t, msg.Error)

	msg = NewCommandEvent("box1", &dispatch.Event{
		Command: comm.Command{Kind: comm.KindCheckPresence},
		Present: []int{0, 3},
		Err:     errors.New("bus down"),
	})
	require.Equal(t, []int32{0, 3}, msg.Present)
	require.Equal(t, uint32(0), msg.Address)
	require.Equal(t, "bus down", msg.Error)
}

type fakeRegistrar struct {
	events []*msgs.CommandEvent
	status []*msgs.BoxStatus
}

func (r *fakeRegistrar) PublishEvent(ctx context.Context, ev *msgs.CommandEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *fakeRegistrar) PublishStatus(ctx context.Context, st *msgs.BoxStatus) error {
	r.status = append(r.status, st)
	return nil
}

func TestEventPublisherAndStats(t *testing.T) {
	reg := &fakeRegistrar{}
	stats := &Stats{}
	n := dispatch.Notifiers{stats, &EventPublisher{BoxID: "box1", Registrar: reg}}
	n.CommandDone(context.Background(), &dispatch.Event{Command: comm.Command{Kind: comm.KindReset}})
	n.CommandDone(context.Background(), &dispatch.Event{Command: comm.Command{Kind: comm.KindTest}, Err: errors.New("x")})
	require.Len(t, reg.events, 2)
	require.Equal(t, "Reset", reg.events[0].Kind)
	require.Equal(t, uint64(2), stats.Commands())
	require.Equal(t, uint64(1), stats.Errors())
}

type fakeReceiver struct{}

func (fakeReceiver) Dropped() uint64        { return 7 }
func (fakeReceiver) State() comm.ParseState { return comm.StateReadingData }

type fakeModes struct{}

func (fakeModes) Mode() comm.Kind { return comm.KindSetFrequency }

type fakeControlContext struct {
	now time.Time
}

func (c *fakeControlContext) Time() time.Time          { return c.now }
func (c *fakeControlContext) Context() context.Context { return context.Background() }
func (c *fakeControlContext) PriorityLevel() int       { return fx.PrLvReport }
func (c *fakeControlContext) TriggerNext()             {}

func TestStatusReporter(t *testing.T) {
	reg := &fakeRegistrar{}
	r := &StatusReporter{
		Interval:  time.Second,
		BoxID:     "box1",
		Stats:     &Stats{commands: 3, errors: 1},
		Receiver:  fakeReceiver{},
		Modes:     fakeModes{},
		Publisher: reg,
	}
	cc := &fakeControlContext{now: time.Unix(1000, 0)}
	require.NoError(t, r.Control(cc))
	cc.now = cc.now.Add(500 * time.Millisecond)
	require.NoError(t, r.Control(cc))
	cc.now = cc.now.Add(500 * time.Millisecond)
	require.NoError(t, r.Control(cc))
	require.Len(t, reg.status, 2)
	require.Equal(t, &msgs.BoxStatus{
		BoxID:       "box1",
		Mode:        "SetFrequency",
		ParseState:  "ReadingData",
		Commands:    3,
		Errors:      1,
		Dropped:     7,
		TimestampNs: time.Unix(1000, 0).UnixNano(),
	}, reg.status[0])
}
