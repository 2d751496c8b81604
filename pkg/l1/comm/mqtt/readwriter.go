package mqtt

import (
	"io"
	"sync"

	"github.com/robotalks/ddsbox/pkg/l1"
)

// Topics of the byte stream of a box, relative to the box name.
const (
	InTopic  = "in"
	OutTopic = "out"
)

// ReadWriter carries a byte stream over a pair of topics.
// Each Write is published as one message, received messages are
// concatenated by Read.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string
	// OwnQueue closes the Queue on Close.
	OwnQueue bool

	packetCh  chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
	pending   []byte
	sub       *Subscription
}

// NewReadWriter creates the ReadWriter.
func NewReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 64),
		closeCh:  make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForBox sets topics used by the box:
// SubTopic = name/in
// PubTopic = name/out
func (p *ReadWriter) ForBox(ref l1.BoxRef) *ReadWriter {
	prefix := ref.Name() + "/"
	return p.WithTopics(prefix+InTopic, prefix+OutTopic)
}

// ForHost sets topics used to talk to the box:
// SubTopic = name/out
// PubTopic = name/in
func (p *ReadWriter) ForHost(ref l1.BoxRef) *ReadWriter {
	prefix := ref.Name() + "/"
	return p.WithTopics(prefix+OutTopic, prefix+InTopic)
}

// Open subscribes SubTopic.
func (p *ReadWriter) Open() error {
	p.sub = p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	return Wait(p.sub.Token)
}

// Read implements io.Reader.
func (p *ReadWriter) Read(b []byte) (int, error) {
	for len(p.pending) == 0 {
		select {
		case pkt := <-p.packetCh:
			p.pending = pkt
		case <-p.closeCh:
			return 0, io.EOF
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (p *ReadWriter) Write(b []byte) (int, error) {
	select {
	case <-p.closeCh:
		return 0, ErrClosed
	default:
	}
	pkt := append([]byte(nil), b...)
	if err := Wait(p.Queue.Pub(p.PubTopic, pkt)); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close implements io.Closer.
func (p *ReadWriter) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.closeCh)
		if p.sub != nil {
			err = p.sub.Close()
		}
		if p.OwnQueue {
			p.Queue.Close()
		}
	})
	return
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.closeCh:
	}
}
