// Package board provides the buses the DDS chips are wired to.
package board

import (
	"fmt"

	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
)

// Board provides the bus to the chips.
type Board interface {
	Bus() ad9910.Bus
	Close() error
}

// Config describes the wiring of a board.
type Config struct {
	// SPI is the periph SPI port name, e.g. "SPI0.0" or "/dev/spidev0.0".
	SPI     string `yaml:"spi"`
	SPIHz   int64  `yaml:"spi_hz"`
	SPIMode int    `yaml:"spi_mode"`
	// GPIO pin names as known to periph, e.g. "GPIO17".
	IOReset     string   `yaml:"io_reset"`
	IOUpdate    string   `yaml:"io_update"`
	MasterReset string   `yaml:"master_reset"`
	ChipSelects []string `yaml:"chip_selects"`

	// Simulate replaces the hardware with simulated chips.
	Simulate bool `yaml:"simulate"`
	// SimPresent lists the slots (from 1) holding a simulated chip.
	// All slots are populated if empty.
	SimPresent []int `yaml:"sim_present"`
}

// DefaultSPIHz matches a 16MHz controller clock divided by 128.
const DefaultSPIHz = 125000

// Open opens the board described by the config.
func (c *Config) Open() (Board, error) {
	if c.Simulate {
		var present []int
		for _, n := range c.SimPresent {
			if n < 1 || n > len(c.ChipSelects) {
				return nil, fmt.Errorf("simulated slot %d out of range", n)
			}
			present = append(present, n-1)
		}
		return NewSim(len(c.ChipSelects), present...), nil
	}
	b, err := OpenPeriph(c)
	if err != nil {
		return nil, err
	}
	return b, nil
}
