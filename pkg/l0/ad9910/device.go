package ad9910

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
)

// Pin is a digital output line.
// It's satisfied by gpio.PinOut from periph.
type Pin interface {
	Out(l gpio.Level) error
}

// Conn shifts bytes over the serial bus.
// It's satisfied by spi.Conn from periph.
type Conn interface {
	Tx(w, r []byte) error
}

// Sleeper waits between line transitions.
// It's satisfied by clock.Clock.
type Sleeper interface {
	Sleep(d time.Duration)
}

// Bus groups the lines shared by all chips plus one chip select per slot.
type Bus struct {
	Conn        Conn
	IOReset     Pin
	IOUpdate    Pin
	MasterReset Pin // optional
	ChipSelects []Pin
}

// DefaultSettle is the default delay between line transitions.
const DefaultSettle = time.Millisecond

// Device talks to the chips on a Bus.
type Device struct {
	Bus      Bus
	Clock    Sleeper
	Settle   time.Duration
	ReadBack bool
	// Echo receives the read announcements.
	Echo io.Writer

	readBuf [MaxRegisterLen]byte
	zeros   [MaxRegisterLen]byte
}

// NewDevice creates a Device with default timing and read back enabled.
func NewDevice(bus Bus) *Device {
	return &Device{
		Bus:      bus,
		Clock:    clock.New(),
		Settle:   DefaultSettle,
		ReadBack: true,
	}
}

// Slots returns the number of chip select lines.
func (d *Device) Slots() int {
	return len(d.Bus.ChipSelects)
}

// CanReadBack indicates registers can be read from the chips.
func (d *Device) CanReadBack() bool {
	return d.ReadBack
}

// Write writes the first RegisterLen(addr) bytes of data to a register.
// The write is latched with an IO_UPDATE pulse.
func (d *Device) Write(slot int, addr byte, data []byte) error {
	cs, size, err := d.prepare(slot, addr)
	if err != nil {
		return err
	}
	if len(data) < size {
		return ErrShortData
	}
	s := d.begin()
	s.pulse("io reset", d.Bus.IOReset)
	s.out("select", cs, gpio.Low)
	s.tx("instruction", []byte{addr}, nil)
	s.tx("write", data[:size], nil)
	s.release(cs)
	s.pulse("io update", d.Bus.IOUpdate)
	return s.err
}

// Read reads a register into the read buffer.
// The returned slice is valid until the next Read.
// With announce set, the content is echoed to Echo.
func (d *Device) Read(slot int, addr byte, announce bool) ([]byte, error) {
	cs, size, err := d.prepare(slot, addr)
	if err != nil {
		return nil, err
	}
	buf := d.readBuf[:size]
	for i := range buf {
		buf[i] = 0
	}
	s := d.begin()
	s.pulse("io reset", d.Bus.IOReset)
	s.out("select", cs, gpio.Low)
	s.tx("instruction", []byte{addr | ReadFlag}, nil)
	s.tx("read", d.zeros[:size], buf)
	s.release(cs)
	if s.err != nil {
		return nil, s.err
	}
	if announce && d.Echo != nil {
		d.announce(slot, addr, buf)
	}
	return buf, nil
}

// Reset puts the bus into a known state, resets all chips and writes the
// initial configuration to every slot.
// It can be called repeatedly.
func (d *Device) Reset() error {
	s := d.begin()
	for _, cs := range d.Bus.ChipSelects {
		s.out("deselect", cs, gpio.High)
	}
	s.out("io update", d.Bus.IOUpdate, gpio.Low)
	s.pulse("io reset", d.Bus.IOReset)
	if d.Bus.MasterReset != nil {
		s.out("master reset", d.Bus.MasterReset, gpio.Low)
		s.pulse("master reset", d.Bus.MasterReset)
	}
	if s.err != nil {
		return s.err
	}
	for slot := range d.Bus.ChipSelects {
		if err := d.Write(slot, CFR3, CFR3NoRefDivider); err != nil {
			return err
		}
	}
	if !d.ReadBack {
		return nil
	}
	for slot := range d.Bus.ChipSelects {
		if err := d.Write(slot, CFR1, CFR1ThreeWire); err != nil {
			return err
		}
		if err := d.Write(slot, CFR2, CFR2AmplitudeFromProfile); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) prepare(slot int, addr byte) (Pin, int, error) {
	if slot < 0 || slot >= len(d.Bus.ChipSelects) {
		return nil, 0, &SlotError{Slot: slot, Slots: len(d.Bus.ChipSelects)}
	}
	size := RegisterLen(addr)
	if size == 0 {
		return nil, 0, &RegisterError{Addr: addr}
	}
	if d.Bus.Conn == nil {
		return nil, 0, ErrNoBus
	}
	return d.Bus.ChipSelects[slot], size, nil
}

func (d *Device) announce(slot int, addr byte, data []byte) {
	var w bytes.Buffer
	fmt.Fprintf(&w, ">>AD9910 Read: ID=%d, Addr=0x%02X, Data=0x", slot, addr)
	for _, b := range data {
		fmt.Fprintf(&w, "%02X ", b)
	}
	w.WriteByte('\n')
	if _, err := d.Echo.Write(w.Bytes()); err != nil {
		glog.Warningf("echo read of 0x%02x error: %v", addr, err)
	}
}

func (d *Device) delay() {
	if d.Settle <= 0 {
		return
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	d.Clock.Sleep(d.Settle)
}

func (d *Device) begin() *sequence {
	d.delay()
	return &sequence{dev: d}
}

// sequence runs line transitions separated by the settle delay and stops
// at the first failure.
type sequence struct {
	dev *Device
	err error
}

func (s *sequence) out(step string, pin Pin, l gpio.Level) {
	if s.err != nil || pin == nil {
		return
	}
	if err := pin.Out(l); err != nil {
		s.err = &BusError{Step: step, Err: err}
		return
	}
	s.dev.delay()
}

func (s *sequence) pulse(step string, pin Pin) {
	s.out(step, pin, gpio.High)
	s.out(step, pin, gpio.Low)
}

func (s *sequence) tx(step string, w, r []byte) {
	if s.err != nil {
		return
	}
	if err := s.dev.Bus.Conn.Tx(w, r); err != nil {
		s.err = &BusError{Step: step, Err: err}
		return
	}
	s.dev.delay()
}

// release deselects the chip, also after a failed step.
func (s *sequence) release(cs Pin) {
	if s.err != nil {
		if err := cs.Out(gpio.High); err != nil {
			glog.Warningf("deselect after %v error: %v", s.err, err)
		}
		return
	}
	s.out("deselect", cs, gpio.High)
}
