package connector

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/robotalks/ddsbox/pkg/l1"
	link "github.com/robotalks/ddsbox/pkg/l1/comm"
	"github.com/robotalks/ddsbox/pkg/l1/comm/mqtt"
)

// Config provides common options for host tools to reach boxes.
type Config struct {
	Ref l1.BoxRef

	// RegistryURL specifies the URL of box registry.
	// e.g. mqtt://host:port/topic-prefix/
	RegistryURL string

	// LinkURL connects to a box directly, bypassing the registry,
	// e.g. serial:///dev/ttyUSB0 or ws://host:8080/console.
	LinkURL string
}

// DefaultRegistryURL is the registry used when nothing is configured.
const DefaultRegistryURL = "mqtt://localhost:1883/dds/"

var defaultConfig = Config{
	Ref:         l1.BoxRef{Type: l1.DefaultBoxType},
	RegistryURL: DefaultRegistryURL,
}

func init() {
	if val := os.Getenv("DDSBOX_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("DDSBOX_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("DDSBOX_REGISTRY_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
	if val := os.Getenv("DDSBOX_LINK"); val != "" {
		defaultConfig.LinkURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "box-type", defaultConfig.Ref.Type, "Box type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "box-id", defaultConfig.Ref.ID, "Box ID to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "registry", defaultConfig.RegistryURL, "Box Registry URL.")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Connect the box link directly (serial://, ws://).")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (l1.Connector, error) {
	parsedURL, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %v", err)
	}
	switch parsedURL.Scheme {
	case "mqtt", "mqtts":
		return mqtt.NewConnector(c.RegistryURL)
	default:
		return nil, fmt.Errorf("unknown registry URL scheme: %q", parsedURL.Scheme)
	}
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() l1.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// CanConnect indicates there's enough to connect without discovery.
func (c *Config) CanConnect() bool {
	return c.LinkURL != "" || c.Ref.IsValid()
}

// Target names what Connect connects to.
func (c *Config) Target() string {
	if c.LinkURL != "" {
		return c.LinkURL
	}
	return c.Ref.Name()
}

// Connect opens the link of the configured box.
func (c *Config) Connect(ctx context.Context) (l1.Link, error) {
	if c.LinkURL != "" {
		return link.Dial(c.LinkURL, c.Ref)
	}
	if !c.Ref.IsValid() {
		return nil, fmt.Errorf("box type and id must be specified")
	}
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx, c.Ref)
}

// MustConnect connects to the box or fails.
func (c *Config) MustConnect(ctx context.Context) l1.Link {
	conn, err := c.Connect(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}
