package box

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
	"github.com/robotalks/ddsbox/pkg/l0/board"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
	"github.com/robotalks/ddsbox/pkg/l0/dispatch"
	"github.com/robotalks/ddsbox/pkg/l1"
	link "github.com/robotalks/ddsbox/pkg/l1/comm"
	"github.com/robotalks/ddsbox/pkg/l1/env"
)

// Config provides the options to run a box.
type Config struct {
	Type        string `yaml:"type"`
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Identity    string `yaml:"identity"`

	// LinkURL is where commands are received, see comm.Listen.
	LinkURL string `yaml:"link"`
	// MQTTBrokerURL enables the registration and events if not empty.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string `yaml:"mqtt"`

	Board    board.Config  `yaml:"board"`
	ReadBack bool          `yaml:"read_back"`
	Settle   time.Duration `yaml:"settle"`
	// Interval is the tick of the loop.
	Interval time.Duration `yaml:"interval"`
	// StatusInterval is the period of status reports, 0 disables them.
	StatusInterval time.Duration `yaml:"status_interval"`
}

// DefaultStatusInterval is the default period of status reports.
const DefaultStatusInterval = 10 * time.Second

var defaultConfig = Config{
	Type:     l1.DefaultBoxType,
	Identity: dispatch.DefaultIdentity,
	LinkURL:  link.DefaultLinkURL,
	Board: board.Config{
		SPI:         "SPI0.0",
		SPIHz:       board.DefaultSPIHz,
		IOReset:     "GPIO17",
		IOUpdate:    "GPIO27",
		MasterReset: "GPIO22",
		ChipSelects: []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"},
	},
	ReadBack:       true,
	Settle:         ad9910.DefaultSettle,
	Interval:       fx.DefaultInterval,
	StatusInterval: DefaultStatusInterval,
}

func init() {
	if val := os.Getenv("DDSBOX_LINK"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("DDSBOX_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("DDSBOX_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = env.MachineID()
	}
}

var configFile string

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", "", "YAML config file")
	flag.StringVar(&defaultConfig.Type, "type", defaultConfig.Type, "Box type")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Box ID")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Command link URL (serial://, mqtt://, ws://)")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for registration and events")
	flag.BoolVar(&defaultConfig.ReadBack, "read-back", defaultConfig.ReadBack, "Read registers back from the chips")
	flag.BoolVar(&defaultConfig.Board.Simulate, "board-sim", defaultConfig.Board.Simulate, "Use simulated chips")
	flag.DurationVar(&defaultConfig.Settle, "settle", defaultConfig.Settle, "Delay between bus line transitions")
	flag.DurationVar(&defaultConfig.StatusInterval, "status-interval", defaultConfig.StatusInterval, "Period of status reports, 0 to disable")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// LoadFile merges a YAML file into the default config.
// Flags given on the command line keep precedence.
func LoadFile(path string) error {
	set := make(map[string]string)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = f.Value.String()
	})
	if err := defaultConfig.Load(path); err != nil {
		return err
	}
	for name, val := range set {
		if err := flag.Set(name, val); err != nil {
			return err
		}
	}
	return nil
}

// Load merges a YAML file into the config. Unknown keys are rejected.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("parse %s error: %v", path, err)
	}
	return nil
}

// NewConfig creates a Config with default configurations.
// The file given by -config is merged first.
func NewConfig() (*Config, error) {
	if configFile != "" {
		if err := LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	conf := defaultConfig
	conf.Board.ChipSelects = append([]string(nil), defaultConfig.Board.ChipSelects...)
	return &conf, nil
}

// Validate checks the config without changing it.
func (c *Config) Validate() error {
	if c.Type == "" || c.ID == "" {
		return fmt.Errorf("box type and id must be specified")
	}
	if c.LinkURL == "" {
		return fmt.Errorf("link URL must be specified")
	}
	if _, err := url.Parse(c.LinkURL); err != nil {
		return fmt.Errorf("invalid link URL: %v", err)
	}
	if n := len(c.Board.ChipSelects); n == 0 || n > comm.MaxSlots {
		return fmt.Errorf("%d chip selects configured, expect 1-%d", n, comm.MaxSlots)
	}
	if c.Settle < 0 {
		return fmt.Errorf("negative settle delay %s", c.Settle)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("loop interval must be positive")
	}
	if c.StatusInterval < 0 {
		return fmt.Errorf("negative status interval %s", c.StatusInterval)
	}
	for _, n := range c.Board.SimPresent {
		if n < 1 || n > len(c.Board.ChipSelects) {
			return fmt.Errorf("simulated slot %d out of range", n)
		}
	}
	if c.Board.Simulate {
		return nil
	}
	if c.Board.SPI == "" {
		return fmt.Errorf("SPI port must be specified")
	}
	pins := map[string]string{}
	uses := []pinUse{
		{"io_reset", c.Board.IOReset},
		{"io_update", c.Board.IOUpdate},
		{"master_reset", c.Board.MasterReset},
	}
	for n, cs := range c.Board.ChipSelects {
		uses = append(uses, pinUse{fmt.Sprintf("chip select %d", n+1), cs})
	}
	for _, pin := range uses {
		if pin.name == "" {
			if pin.role == "master_reset" {
				continue
			}
			return fmt.Errorf("%s pin must be specified", pin.role)
		}
		if other, ok := pins[pin.name]; ok {
			return fmt.Errorf("pin %s used by both %s and %s", pin.name, other, pin.role)
		}
		pins[pin.name] = pin.role
	}
	return nil
}

type pinUse struct {
	role, name string
}

// Info returns the registered information of the box.
func (c *Config) Info() l1.BoxInfo {
	return l1.BoxInfo{
		Ref: l1.BoxRef{Type: c.Type, ID: c.ID},
		Meta: l1.BoxMeta{
			Description: c.Description,
			Identity:    c.Identity,
			Slots:       len(c.Board.ChipSelects),
			Link:        c.LinkURL,
		},
	}
}
