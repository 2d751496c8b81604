// Package box wires a DDS box from its config: board, chips, command
// link, dispatcher and registration.
package box

import (
	"fmt"
	"log"

	"github.com/golang/glog"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
	"github.com/robotalks/ddsbox/pkg/l0/board"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
	"github.com/robotalks/ddsbox/pkg/l0/dispatch"
	"github.com/robotalks/ddsbox/pkg/l1"
	link "github.com/robotalks/ddsbox/pkg/l1/comm"
	"github.com/robotalks/ddsbox/pkg/l1/comm/mqtt"
)

// Env is the running box.
type Env struct {
	Config     *Config
	Info       l1.BoxInfo
	Board      board.Board
	Device     *ad9910.Device
	Link       l1.Link
	Mailbox    *comm.Mailbox
	Receiver   *comm.Receiver
	Dispatcher *dispatch.Dispatcher
	Stats      *Stats
	// Registrar is nil without an MQTT broker.
	Registrar *mqtt.Registrar
}

// NewEnv creates Env from config. The chips are reset before it returns.
func (c *Config) NewEnv() (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	b, err := c.Board.Open()
	if err != nil {
		return nil, fmt.Errorf("open board error: %v", err)
	}
	info := c.Info()
	e := &Env{Config: c, Info: info, Board: b, Mailbox: &comm.Mailbox{}}
	e.Device = ad9910.NewDevice(b.Bus())
	e.Device.Settle, e.Device.ReadBack = c.Settle, c.ReadBack
	if err = e.Device.Reset(); err != nil {
		b.Close()
		return nil, fmt.Errorf("reset chips error: %v", err)
	}
	glog.Infof("%d slots initialized", e.Device.Slots())

	if e.Link, err = link.Listen(c.LinkURL, info.Ref); err != nil {
		b.Close()
		return nil, fmt.Errorf("open link %s error: %v", c.LinkURL, err)
	}
	glog.Infof("listening on %s", c.LinkURL)

	e.Dispatcher = dispatch.New(e.Device, e.Link, e.Mailbox)
	e.Dispatcher.Identity = c.Identity
	e.Device.Echo = e.Dispatcher
	e.Receiver = comm.NewReceiver(e.Link, e.Mailbox)
	e.Stats = &Stats{}

	notifiers := dispatch.Notifiers{e.Stats}
	if c.MQTTBrokerURL != "" {
		if e.Registrar, err = mqtt.NewRegistrar(c.MQTTBrokerURL, info); err != nil {
			e.Close()
			return nil, fmt.Errorf("create MQTT registrar error: %v", err)
		}
		notifiers = append(notifiers, &EventPublisher{BoxID: info.Ref.ID, Registrar: e.Registrar})
	}
	e.Dispatcher.Notifier = notifiers
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// AddToLoop adds controllers/runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Interval = e.Config.Interval
	loop.Add(e.Dispatcher)
	loop.AddRunnable(fx.NamedRun("receiver", e.Receiver))
	if e.Registrar != nil {
		loop.Add(e.Registrar)
		if e.Config.StatusInterval > 0 {
			loop.Add(&StatusReporter{
				Interval:  e.Config.StatusInterval,
				BoxID:     e.Info.Ref.ID,
				Stats:     e.Stats,
				Receiver:  e.Receiver,
				Modes:     e.Dispatcher,
				Publisher: e.Registrar,
			})
		}
	}
}

// Close releases the link and the board.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	if e.Link != nil {
		errs.Add(e.Link.Close())
	}
	if e.Board != nil {
		errs.Add(e.Board.Close())
	}
	return errs.Aggregate()
}
