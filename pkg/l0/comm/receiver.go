package comm

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/ddsbox/pkg/framework"
)

// PostNotifier is called after a command is posted to the mailbox.
type PostNotifier interface {
	CommandPosted(context.Context, Command)
}

// CommandPostedFunc is func type of PostNotifier.
type CommandPostedFunc func(context.Context, Command)

// CommandPosted implements PostNotifier.
func (f CommandPostedFunc) CommandPosted(ctx context.Context, cmd Command) {
	f(ctx, cmd)
}

// Receiver feeds received bytes to the parser and posts completed commands.
// While a command is pending in the mailbox, received bytes are dropped.
// It never touches the device.
type Receiver struct {
	Reader   io.Reader
	Mailbox  *Mailbox
	Notifier PostNotifier

	parser  Parser
	state   int32
	dropped uint64
}

// NewReceiver creates a Receiver.
func NewReceiver(r io.Reader, mailbox *Mailbox) *Receiver {
	return &Receiver{Reader: r, Mailbox: mailbox}
}

// Dropped returns the number of bytes dropped so far.
func (r *Receiver) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}

// State gets the parse state. It's safe to call from other goroutines.
func (r *Receiver) State() ParseState {
	return ParseState(atomic.LoadInt32(&r.state))
}

// Receive processes one byte. It returns false if the byte is dropped.
func (r *Receiver) Receive(ctx context.Context, b byte) bool {
	if !r.Mailbox.Accepting() {
		atomic.AddUint64(&r.dropped, 1)
		glog.V(2).Infof("drop %q: command pending", b)
		return false
	}
	cmd, ok := r.parser.Parse(b)
	atomic.StoreInt32(&r.state, int32(r.parser.State()))
	if !ok {
		return true
	}
	if err := r.Mailbox.Post(cmd); err != nil {
		atomic.AddUint64(&r.dropped, 1)
		return false
	}
	glog.V(2).Infof("posted %s slot=%d", cmd.Kind, cmd.Slot+1)
	if n := r.Notifier; n != nil {
		n.CommandPosted(ctx, cmd)
	}
	if ctl := fx.LoopCtlFrom(ctx); ctl != nil {
		ctl.TriggerNext()
	}
	return true
}

// Run implements Runnable.
func (r *Receiver) Run(ctx context.Context) error {
	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, byteCh, errCh)
	for {
		select {
		case b := <-byteCh:
			r.Receive(ctx, b)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Receiver) readLoop(ctx context.Context, byteCh chan byte, errCh chan error) {
	buf := make([]byte, 64)
	for {
		n, err := r.Reader.Read(buf)
		for _, b := range buf[:n] {
			select {
			case byteCh <- b:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}
