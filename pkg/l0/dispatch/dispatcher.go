// Package dispatch executes parsed commands against the DDS chips.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
)

// DefaultIdentity is replied to the identify command.
const DefaultIdentity = "CAMPBELLGROUP,AD9910_DDS_Box_Arduino,"

// Device is the register transfer protocol used by the Dispatcher.
// It's implemented by ad9910.Device.
type Device interface {
	Write(slot int, addr byte, data []byte) error
	Read(slot int, addr byte, announce bool) ([]byte, error)
	Reset() error
	Slots() int
	CanReadBack() bool
}

// Event reports a finished command.
type Event struct {
	Command    comm.Command
	Err        error
	Transcript string
	// Data is the register content written or read.
	Data []byte
	// Present lists the zero based slots found by CheckPresence.
	Present  []int
	Started  time.Time
	Finished time.Time
}

// Notifier is called after each command finishes.
type Notifier interface {
	CommandDone(context.Context, *Event)
}

// CommandDoneFunc is func type of Notifier.
type CommandDoneFunc func(context.Context, *Event)

// CommandDone implements Notifier.
func (f CommandDoneFunc) CommandDone(ctx context.Context, ev *Event) {
	f(ctx, ev)
}

// Notifiers notifies each Notifier in order.
type Notifiers []Notifier

// CommandDone implements Notifier.
func (n Notifiers) CommandDone(ctx context.Context, ev *Event) {
	for _, notifier := range n {
		notifier.CommandDone(ctx, ev)
	}
}

// Dispatcher takes commands from the mailbox and executes them one at a
// time from the loop. Replies are printed to Output.
type Dispatcher struct {
	Device   Device
	Output   io.Writer
	Mailbox  *comm.Mailbox
	Identity string
	Notifier Notifier

	mode       int32
	syncClk    bool
	transcript bytes.Buffer
}

// New creates a Dispatcher.
func New(dev Device, out io.Writer, mailbox *comm.Mailbox) *Dispatcher {
	return &Dispatcher{
		Device:   dev,
		Output:   out,
		Mailbox:  mailbox,
		Identity: DefaultIdentity,
	}
}

// Mode returns the kind of command being executed, KindIdle if none.
func (d *Dispatcher) Mode() comm.Kind {
	return comm.Kind(atomic.LoadInt32(&d.mode))
}

// Write implements io.Writer. It's used as the echo writer of the device
// so read announcements are part of the transcript.
func (d *Dispatcher) Write(p []byte) (int, error) {
	d.transcript.Write(p)
	if d.Output == nil {
		return len(p), nil
	}
	return d.Output.Write(p)
}

// AddToLoop implements LoopAdder.
func (d *Dispatcher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvControl, d)
}

// Control implements Controller.
func (d *Dispatcher) Control(cc fx.ControlContext) error {
	d.Poll(cc.Context())
	return nil
}

// Poll executes the pending command if any. It returns false if the
// mailbox has nothing to execute.
func (d *Dispatcher) Poll(ctx context.Context) bool {
	cmd, ok := d.Mailbox.Take()
	if !ok {
		return false
	}
	ev := &Event{Command: cmd, Started: time.Now()}
	d.transcript.Reset()
	atomic.StoreInt32(&d.mode, int32(cmd.Kind))
	glog.V(2).Infof("execute %s slot=%d", cmd.Kind, cmd.Slot+1)

	if ev.Err = d.execute(&cmd, ev); ev.Err != nil {
		glog.V(2).Infof("%s failed: %v", cmd.Kind, ev.Err)
		d.printf("%s%v\n", comm.ErrorPrefix, ev.Err)
	}
	// the mailbox is empty before the host sees DoneLine and sends the
	// next command.
	atomic.StoreInt32(&d.mode, int32(comm.KindIdle))
	d.Mailbox.Release()
	d.println(comm.DoneLine)

	ev.Transcript, ev.Finished = d.transcript.String(), time.Now()
	if n := d.Notifier; n != nil {
		n.CommandDone(ctx, ev)
	}
	return true
}

func (d *Dispatcher) execute(cmd *comm.Command, ev *Event) error {
	switch cmd.Kind {
	case comm.KindTest:
		d.println(comm.TestModeLine)
		if err := d.checkSlot(cmd.Slot); err != nil {
			return err
		}
		data := ad9910.TestPattern(d.syncClk)
		d.syncClk = !d.syncClk
		ev.Data = data
		return d.Device.Write(cmd.Slot, ad9910.CFR2, data)
	case comm.KindIdentify:
		d.println(d.Identity)
		return nil
	case comm.KindReset:
		d.println(comm.ResetLine)
		return d.Device.Reset()
	case comm.KindCheckPresence:
		return d.checkPresence(ev)
	case comm.KindWriteRegister:
		d.println(comm.WriteModeLine)
		addr, size, err := d.checkRegister(cmd)
		if err != nil {
			return err
		}
		data := make([]byte, size)
		copy(data, cmd.DataBytes())
		ev.Data = data
		return d.Device.Write(cmd.Slot, addr, data)
	case comm.KindReadRegister:
		d.println(comm.ReadModeLine)
		addr, _, err := d.checkRegister(cmd)
		if err != nil {
			return err
		}
		data, err := d.Device.Read(cmd.Slot, addr, true)
		if err != nil {
			return err
		}
		ev.Data = append([]byte(nil), data...)
		return nil
	case comm.KindSetFrequency:
		d.println(comm.FrequencyModeLine)
		return d.updateProfile(cmd.Slot, 4, cmd.FrequencyWord(), ev)
	case comm.KindSetAmplitude:
		d.println(comm.AmplitudeModeLine)
		return d.updateProfile(cmd.Slot, 0, cmd.AmplitudeWord(), ev)
	case comm.KindSetPhase:
		d.println(comm.PhaseModeLine)
		d.println(comm.UnimplementedLine)
		return nil
	}
	return fmt.Errorf("unknown command %s", cmd.Kind)
}

func (d *Dispatcher) checkSlot(slot int) error {
	if slots := d.Device.Slots(); slot < 0 || slot >= slots {
		return &ad9910.SlotError{Slot: slot, Slots: slots}
	}
	return nil
}

func (d *Dispatcher) checkRegister(cmd *comm.Command) (byte, int, error) {
	if err := d.checkSlot(cmd.Slot); err != nil {
		return 0, 0, err
	}
	addr := cmd.RegisterAddress()
	size := ad9910.RegisterLen(addr)
	if size == 0 {
		return addr, 0, &ad9910.RegisterError{Addr: addr}
	}
	return addr, size, nil
}

func (d *Dispatcher) checkPresence(ev *Event) error {
	d.println(comm.BannerLine)
	d.printf("%s", comm.PresencePrefix)
	ev.Present = []int{}
	for slot := 0; slot < d.Device.Slots(); slot++ {
		data, err := d.Device.Read(slot, ad9910.PresenceProbe, false)
		if err != nil {
			d.println("")
			return err
		}
		if data[ad9910.PresenceByte] > 0 {
			ev.Present = append(ev.Present, slot)
			d.printf("I%d ", slot+1)
		}
	}
	d.println("")
	return nil
}

// updateProfile replaces part of profile 0 and keeps the rest.
func (d *Dispatcher) updateProfile(slot, offset int, word []byte, ev *Event) error {
	if err := d.checkSlot(slot); err != nil {
		return err
	}
	profile := make([]byte, ad9910.RegisterLen(ad9910.Profile0))
	if d.Device.CanReadBack() {
		data, err := d.Device.Read(slot, ad9910.Profile0, false)
		if err != nil {
			return err
		}
		copy(profile, data)
	} else {
		copy(profile, ad9910.DefaultProfile0)
	}
	copy(profile[offset:], word)
	ev.Data = profile
	return d.Device.Write(slot, ad9910.Profile0, profile)
}

func (d *Dispatcher) println(line string) {
	d.printf("%s\n", line)
}

func (d *Dispatcher) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(d, format, args...); err != nil {
		glog.Warningf("write reply error: %v", err)
	}
}
