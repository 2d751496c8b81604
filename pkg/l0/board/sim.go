package board

import (
	"strconv"
	"sync"

	"periph.io/x/conn/v3/gpio"

	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
)

// power-up register contents.
var simDefaults = [ad9910.NumRegisters][]byte{
	ad9910.CFR1:          {0x00, 0x00, 0x00, 0x00},
	ad9910.CFR2:          {0x00, 0x40, 0x08, 0x20},
	ad9910.CFR3:          {0x17, 0x38, 0x40, 0x00},
	ad9910.AuxDAC:        {0x00, 0x00, 0x00, 0x7f},
	ad9910.IOUpdateRate:  {0xff, 0xff, 0xff, 0xff},
	ad9910.FTW:           {0x00, 0x00, 0x00, 0x00},
	ad9910.POW:           {0x00, 0x00},
	ad9910.ASF:           {0x00, 0x00, 0x00, 0x00},
	ad9910.MultiChipSync: {0x00, 0x00, 0x00, 0x00},
	ad9910.RampLimit:     {0, 0, 0, 0, 0, 0, 0, 0},
	ad9910.RampStep:      {0, 0, 0, 0, 0, 0, 0, 0},
	ad9910.RampRate:      {0x00, 0x00, 0x00, 0x00},
	ad9910.Profile0:      {0x08, 0xb5, 0, 0, 0, 0, 0, 0},
	ad9910.Profile1:      {0x08, 0xb5, 0, 0, 0, 0, 0, 0},
}

type simChip struct {
	present bool
	regs    [ad9910.NumRegisters][]byte
	staged  [ad9910.NumRegisters][]byte
	dirty   [ad9910.NumRegisters]bool
}

func (c *simChip) powerUp() {
	for addr, def := range simDefaults {
		c.regs[addr] = append([]byte(nil), def...)
		c.staged[addr] = make([]byte, len(def))
		c.dirty[addr] = false
	}
}

func (c *simChip) latch() {
	for addr := range c.regs {
		if c.dirty[addr] {
			copy(c.regs[addr], c.staged[addr])
			c.dirty[addr] = false
		}
	}
}

// Sim simulates AD9910 chips sharing a bus.
// Writes are staged and take effect on the IO_UPDATE rising edge.
// Empty slots never drive the data line, so they read zeros.
type Sim struct {
	// OnTx is called before each transfer, without holding locks.
	OnTx func(w []byte)

	lock     sync.Mutex
	chips    []*simChip
	selected int
	instr    int
	offset   int
	levels   map[string]gpio.Level
}

// NewSim creates a Sim with the zero based slots present. All slots are
// present if none is specified.
func NewSim(slots int, present ...int) *Sim {
	s := &Sim{
		chips:    make([]*simChip, slots),
		selected: -1,
		instr:    -1,
		levels:   make(map[string]gpio.Level),
	}
	for n := range s.chips {
		s.chips[n] = &simChip{present: len(present) == 0}
		s.chips[n].powerUp()
	}
	for _, n := range present {
		s.chips[n].present = true
	}
	return s
}

// Bus implements Board.
func (s *Sim) Bus() ad9910.Bus {
	bus := ad9910.Bus{
		Conn:        (*simConn)(s),
		IOReset:     &simPin{sim: s, name: "io_reset"},
		IOUpdate:    &simPin{sim: s, name: "io_update"},
		MasterReset: &simPin{sim: s, name: "master_reset"},
	}
	for n := range s.chips {
		bus.ChipSelects = append(bus.ChipSelects, &simPin{sim: s, name: "cs", slot: n})
	}
	return bus
}

// Close implements Board.
func (s *Sim) Close() error {
	return nil
}

// Register returns the active content of a register.
func (s *Sim) Register(slot int, addr byte) []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]byte(nil), s.chips[slot].regs[addr]...)
}

// SetRegister sets the active content of a register.
func (s *Sim) SetRegister(slot int, addr byte, data []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	copy(s.chips[slot].regs[addr], data)
}

// Selected returns the selected slot, -1 if none.
func (s *Sim) Selected() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.selected
}

type simPin struct {
	sim  *Sim
	name string
	slot int
}

func (p *simPin) Out(l gpio.Level) error {
	s := p.sim
	s.lock.Lock()
	defer s.lock.Unlock()
	key := p.name + strconv.Itoa(p.slot)
	rising := l == gpio.High && s.levels[key] == gpio.Low
	s.levels[key] = l
	switch p.name {
	case "cs":
		if l == gpio.Low {
			s.selected, s.instr = p.slot, -1
		} else if s.selected == p.slot {
			s.selected, s.instr = -1, -1
		}
	case "io_reset":
		if l == gpio.High {
			s.instr = -1
		}
	case "io_update":
		if rising {
			for _, chip := range s.chips {
				chip.latch()
			}
		}
	case "master_reset":
		if l == gpio.High {
			for _, chip := range s.chips {
				chip.powerUp()
			}
			s.instr = -1
		}
	}
	return nil
}

type simConn Sim

func (c *simConn) Tx(w, r []byte) error {
	s := (*Sim)(c)
	if fn := s.OnTx; fn != nil {
		fn(w)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.selected < 0 {
		return nil
	}
	chip := s.chips[s.selected]
	for i, b := range w {
		if s.instr < 0 {
			s.instr, s.offset = int(b), 0
			if addr := b &^ ad9910.ReadFlag; b&ad9910.ReadFlag == 0 && ad9910.Transferable(addr) && !chip.dirty[addr] {
				copy(chip.staged[addr], chip.regs[addr])
			}
			continue
		}
		addr := byte(s.instr) &^ ad9910.ReadFlag
		if s.offset < ad9910.RegisterLen(addr) && chip.present {
			if byte(s.instr)&ad9910.ReadFlag != 0 {
				if r != nil {
					r[i] = chip.regs[addr][s.offset]
				}
			} else {
				chip.staged[addr][s.offset] = b
				chip.dirty[addr] = true
			}
		}
		s.offset++
	}
	return nil
}
