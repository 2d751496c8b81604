// Package comm opens the byte stream links carrying commands to a box.
package comm

import (
	"fmt"
	"net/url"

	"github.com/robotalks/ddsbox/pkg/l1"
	"github.com/robotalks/ddsbox/pkg/l1/comm/mqtt"
	"github.com/robotalks/ddsbox/pkg/l1/comm/serial"
	"github.com/robotalks/ddsbox/pkg/l1/comm/websocket"
)

// DefaultLinkURL is the UART of a Raspberry Pi.
const DefaultLinkURL = "serial:///dev/ttyAMA0?baud=57600&stopbits=2"

// Listen opens the box side of a link:
//
//	serial:///dev/ttyAMA0?baud=57600&stopbits=2
//	mqtt://broker:1883/prefix/  (topics prefix/<type>/<id>/in and out)
//	ws://:8080/console          (serves a websocket console)
func Listen(linkURL string, ref l1.BoxRef) (l1.Link, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %v", err)
	}
	switch u.Scheme {
	case "serial":
		conf, err := serial.ConfigFromURL(u)
		if err != nil {
			return nil, err
		}
		return serial.Open(conf)
	case "mqtt", "mqtts":
		if !ref.IsValid() {
			return nil, fmt.Errorf("box type and id must be specified for %s", u.Scheme)
		}
		rw, err := mqtt.Listen(linkURL, ref)
		if err != nil {
			return nil, err
		}
		return rw, nil
	case "ws":
		l, err := websocket.Listen(u.Host, u.Path)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
}

// Dial opens the host side of a link. The URLs are the same as Listen
// except ws:// connects to the console.
func Dial(linkURL string, ref l1.BoxRef) (l1.Link, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %v", err)
	}
	switch u.Scheme {
	case "serial":
		conf, err := serial.ConfigFromURL(u)
		if err != nil {
			return nil, err
		}
		return serial.Open(conf)
	case "mqtt", "mqtts":
		if !ref.IsValid() {
			return nil, fmt.Errorf("box type and id must be specified for %s", u.Scheme)
		}
		rw, err := mqtt.Dial(linkURL, ref)
		if err != nil {
			return nil, err
		}
		return rw, nil
	case "ws", "wss":
		conn, err := websocket.Dial(linkURL)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
}
