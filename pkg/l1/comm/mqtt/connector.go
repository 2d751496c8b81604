package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ddsbox/pkg/l1"
)

// MetaTopic is the retained topic holding the meta of a box, relative to
// the box name. It's emptied when the box goes away.
const MetaTopic = "meta"

// Connector implements l1.Connector using MQTT.
type Connector struct {
	BrokerURL       string
	DiscoverTimeout time.Duration
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{BrokerURL: brokerURL, DiscoverTimeout: DefaultDiscoverTimeout}, nil
}

// Discover implements Connector. It collects the retained meta of boxes.
func (c *Connector) Discover(ctx context.Context) (res []l1.BoxInfo, err error) {
	q, err := NewQueueFromURL(c.BrokerURL)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	resCh := make(chan l1.BoxInfo, 16)
	q.Sub("+/+/"+MetaTopic, Handler(func(topic string, payload []byte) {
		info, ok := ParseMeta(topic, payload)
		if !ok {
			return
		}
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	}))
	if err = q.ConnectAndWait(); err != nil {
		return nil, err
	}

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// ParseMeta decodes a meta message. Empty payloads are removed boxes.
func ParseMeta(topic string, payload []byte) (info l1.BoxInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != MetaTopic || len(payload) == 0 {
		return
	}
	info.Ref = l1.BoxRef{Type: items[0], ID: items[1]}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("invalid meta of %s: %v", info.Ref.Name(), err)
		return info, false
	}
	return info, true
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.BoxRef) (l1.Link, error) {
	return Dial(c.BrokerURL, ref)
}

// Dial opens the host side of the byte stream of a box.
func Dial(brokerURL string, ref l1.BoxRef) (*ReadWriter, error) {
	return openReadWriter(brokerURL, ref, false)
}

// Listen opens the box side of the byte stream.
func Listen(brokerURL string, ref l1.BoxRef) (*ReadWriter, error) {
	return openReadWriter(brokerURL, ref, true)
}

func openReadWriter(brokerURL string, ref l1.BoxRef, box bool) (*ReadWriter, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	rw := NewReadWriter(q)
	rw.OwnQueue = true
	if box {
		rw.ForBox(ref)
	} else {
		rw.ForHost(ref)
	}
	if err = q.ConnectAndWait(); err != nil {
		q.Close()
		return nil, err
	}
	if err = rw.Open(); err != nil {
		rw.Close()
		return nil, err
	}
	return rw, nil
}
