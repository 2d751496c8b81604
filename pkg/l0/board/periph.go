package board

import (
	"fmt"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
)

// Periph is a Linux board accessed through periph drivers.
type Periph struct {
	bus  ad9910.Bus
	port spi.PortCloser
}

// OpenPeriph initializes host drivers, the SPI port and the GPIO lines.
func OpenPeriph(conf *Config) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers error: %v", err)
	}
	port, err := spireg.Open(conf.SPI)
	if err != nil {
		return nil, fmt.Errorf("open SPI %q error: %v", conf.SPI, err)
	}
	hz := conf.SPIHz
	if hz <= 0 {
		hz = DefaultSPIHz
	}
	conn, err := port.Connect(physic.Hertz*physic.Frequency(hz), spi.Mode(conf.SPIMode), 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect SPI %q error: %v", conf.SPI, err)
	}
	b := &Periph{port: port}
	b.bus.Conn = conn
	if err = b.wire(conf); err != nil {
		port.Close()
		return nil, err
	}
	glog.Infof("SPI %s at %dHz, %d chip selects", conf.SPI, hz, len(b.bus.ChipSelects))
	return b, nil
}

func (b *Periph) wire(conf *Config) (err error) {
	if b.bus.IOReset, err = outPin(conf.IOReset, gpio.Low); err != nil {
		return
	}
	if b.bus.IOUpdate, err = outPin(conf.IOUpdate, gpio.Low); err != nil {
		return
	}
	if conf.MasterReset != "" {
		if b.bus.MasterReset, err = outPin(conf.MasterReset, gpio.Low); err != nil {
			return
		}
	}
	for _, name := range conf.ChipSelects {
		cs, err := outPin(name, gpio.High)
		if err != nil {
			return err
		}
		b.bus.ChipSelects = append(b.bus.ChipSelects, cs)
	}
	return nil
}

func outPin(name string, initial gpio.Level) (ad9910.Pin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown GPIO %q", name)
	}
	if err := p.Out(initial); err != nil {
		return nil, fmt.Errorf("set GPIO %q error: %v", name, err)
	}
	return p, nil
}

// Bus implements Board.
func (b *Periph) Bus() ad9910.Bus {
	return b.bus
}

// Close implements Board.
func (b *Periph) Close() error {
	return b.port.Close()
}
