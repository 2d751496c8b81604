package comm

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/ddsbox/pkg/framework"
)

// DefaultTimeout is the default time to wait for a command to finish.
const DefaultTimeout = 2 * time.Second

// Client provides host side operations over a link to the box.
// Commands are sent one at a time, each collecting reply lines until
// DoneLine.
type Client struct {
	ReadWriter io.ReadWriter
	Timeout    time.Duration

	lineCh chan string
	lock   sync.Mutex
}

// NewClient creates client and wraps the link.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{
		ReadWriter: rw,
		Timeout:    DefaultTimeout,
		lineCh:     make(chan string, 64),
	}
}

// Run reads reply lines until the link is closed or ctx is canceled.
// On cancel, the link is closed if it's an io.Closer.
func (c *Client) Run(ctx context.Context) error {
	fn := func() error {
		defer close(c.lineCh)
		scanner := bufio.NewScanner(c.ReadWriter)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			glog.V(2).Infof("RCV %q", line)
			select {
			case c.lineCh <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return scanner.Err()
	}
	if closer, ok := c.ReadWriter.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, fn)
	}
	return fn()
}

// Do sends a command and waits until the box prints DoneLine.
// An ">Error:" line is returned as *CommandError along with the reply.
func (c *Client) Do(ctx context.Context, cmd string) (*Reply, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.drain()
	glog.V(2).Infof("SND %q", cmd)
	if _, err := io.WriteString(c.ReadWriter, cmd); err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var cmdErr error
	reply := &Reply{}
	for {
		select {
		case line, ok := <-c.lineCh:
			if !ok {
				return reply, ErrNoReply
			}
			switch {
			case line == DoneLine:
				return reply, cmdErr
			case strings.HasPrefix(line, ErrorPrefix):
				cmdErr = &CommandError{Message: line[len(ErrorPrefix):]}
			default:
				reply.Lines = append(reply.Lines, line)
			}
		case <-timer.C:
			return reply, context.DeadlineExceeded
		case <-ctx.Done():
			return reply, ctx.Err()
		}
	}
}

// Abort discards a partially sent command on the box.
func (c *Client) Abort() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, err := io.WriteString(c.ReadWriter, CmdAbort)
	return err
}

// drain discards lines not belonging to the next command.
func (c *Client) drain() {
	for {
		select {
		case line, ok := <-c.lineCh:
			if !ok {
				return
			}
			glog.V(2).Infof("discard %q", line)
		default:
			return
		}
	}
}
