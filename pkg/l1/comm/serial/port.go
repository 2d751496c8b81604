// Package serial opens the UART link of a box.
package serial

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/golang/glog"
	goserial "go.bug.st/serial"
)

// Line settings of the box UART.
const (
	DefaultBaudRate = 57600
	DefaultDataBits = 8
	DefaultStopBits = 2
)

// Config describes a serial port.
type Config struct {
	Port     string
	BaudRate int
	DataBits int
	// StopBits is 1 or 2.
	StopBits int
	// Parity is one of none, odd, even.
	Parity string
}

// DefaultConfig returns 57600 8N2 on port.
func DefaultConfig(port string) *Config {
	return &Config{
		Port:     port,
		BaudRate: DefaultBaudRate,
		DataBits: DefaultDataBits,
		StopBits: DefaultStopBits,
		Parity:   "none",
	}
}

// ConfigFromURL parses serial:///dev/ttyAMA0?baud=57600&databits=8&stopbits=2&parity=none.
// Missing settings take defaults.
func ConfigFromURL(u *url.URL) (*Config, error) {
	if u.Path == "" {
		return nil, fmt.Errorf("serial port not specified in %q", u.String())
	}
	conf := DefaultConfig(u.Path)
	query := u.Query()
	for key, dst := range map[string]*int{
		"baud":     &conf.BaudRate,
		"databits": &conf.DataBits,
		"stopbits": &conf.StopBits,
	} {
		val := query.Get(key)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", key, val)
		}
		*dst = n
	}
	if val := query.Get("parity"); val != "" {
		conf.Parity = val
	}
	return conf, nil
}

// Mode converts the config into port settings.
func (c *Config) Mode() (*goserial.Mode, error) {
	mode := &goserial.Mode{BaudRate: c.BaudRate, DataBits: c.DataBits}
	switch c.StopBits {
	case 1:
		mode.StopBits = goserial.OneStopBit
	case 2:
		mode.StopBits = goserial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %d", c.StopBits)
	}
	switch c.Parity {
	case "", "none":
		mode.Parity = goserial.NoParity
	case "odd":
		mode.Parity = goserial.OddParity
	case "even":
		mode.Parity = goserial.EvenParity
	default:
		return nil, fmt.Errorf("invalid parity %q", c.Parity)
	}
	if c.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return nil, fmt.Errorf("invalid data bits %d", c.DataBits)
	}
	return mode, nil
}

// Open opens the port and discards stale input.
func Open(conf *Config) (goserial.Port, error) {
	mode, err := conf.Mode()
	if err != nil {
		return nil, err
	}
	port, err := goserial.Open(conf.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s error: %v", conf.Port, err)
	}
	if err = port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, err
	}
	glog.Infof("serial %s at %d baud", conf.Port, conf.BaudRate)
	return port, nil
}
