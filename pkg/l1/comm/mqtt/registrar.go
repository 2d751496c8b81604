package mqtt

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l1"
	"github.com/robotalks/ddsbox/pkg/l1/msgs"
)

// Topics relative to the box name.
const (
	EventsTopic = "events"
	StatusTopic = "status"
)

// ErrBacklogFull indicates events are produced faster than published.
var ErrBacklogFull = errors.New("event backlog full")

// Registrar implements l1.Registrar using MQTT.
// The meta is retained while the box is connected and cleared by the
// will when the connection is lost.
type Registrar struct {
	Queue *Queue
	Info  l1.BoxInfo

	metaJSON []byte
	pubCh    chan publication
}

type publication struct {
	topic   string
	payload []byte
}

// EventBacklog is the number of events queued for publishing.
const EventBacklog = 64

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.BoxInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Name()+"/"+MetaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("ddsbox:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
		pubCh:    make(chan publication, EventBacklog),
	}
	r.Queue.OnConnect = func(*Queue) { r.onConnected() }
	return r, nil
}

// PublishEvent implements l1.Registrar.
func (r *Registrar) PublishEvent(ctx context.Context, ev *msgs.CommandEvent) error {
	return r.publish(EventsTopic, ev)
}

// PublishStatus publishes the status of the box.
func (r *Registrar) PublishStatus(ctx context.Context, st *msgs.BoxStatus) error {
	return r.publish(StatusTopic, st)
}

func (r *Registrar) publish(topic string, msg proto.Message) error {
	payload, err := msgs.EncodeMessage(msg)
	if err != nil {
		return err
	}
	select {
	case r.pubCh <- publication{topic: r.Info.Ref.Name() + "/" + topic, payload: payload}:
		return nil
	default:
		return ErrBacklogFull
	}
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(r)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	r.Queue.Connect()
	defer r.Queue.Close()
	for {
		select {
		case pub := <-r.pubCh:
			if !r.Queue.Client.IsConnected() {
				glog.V(2).Infof("drop %s: not connected", pub.topic)
				continue
			}
			if err := Wait(r.Queue.Pub(pub.topic, pub.payload)); err != nil {
				glog.Warningf("publish %s error: %v", pub.topic, err)
			}
		case <-ctx.Done():
			if r.Queue.Client.IsConnected() {
				Wait(r.Queue.PubWith(r.metaTopic(), nil, 1, true))
			}
			return ctx.Err()
		}
	}
}

func (r *Registrar) metaTopic() string {
	return r.Info.Ref.Name() + "/" + MetaTopic
}

func (r *Registrar) onConnected() {
	r.Queue.PubWith(r.metaTopic(), r.metaJSON, 1, true)
}
