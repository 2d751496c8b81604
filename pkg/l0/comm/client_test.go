package comm

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pipeLink struct {
	io.Reader
	io.Writer
}

type clientTestEnv struct {
	t      *testing.T
	client *Client
	boxR   *io.PipeReader
	boxW   *io.PipeWriter
	cancel func()
	doneCh chan error
}

func newClientTestEnv(t *testing.T) *clientTestEnv {
	env := &clientTestEnv{t: t, doneCh: make(chan error, 1)}
	var hostR *io.PipeReader
	var hostW *io.PipeWriter
	hostR, env.boxW = io.Pipe()
	env.boxR, hostW = io.Pipe()
	env.client = NewClient(&pipeLink{Reader: hostR, Writer: hostW})
	env.client.Timeout = 200 * time.Millisecond
	var ctx context.Context
	ctx, env.cancel = context.WithCancel(context.Background())
	go func() {
		env.doneCh <- env.client.Run(ctx)
	}()
	return env
}

// box reads n command bytes and prints the reply.
func (e *clientTestEnv) box(n int, reply string) <-chan string {
	cmdCh := make(chan string, 1)
	go func() {
		buf := make([]byte, n)
		if _, err := io.ReadFull(e.boxR, buf); err != nil {
			close(cmdCh)
			return
		}
		cmdCh <- string(buf)
		io.WriteString(e.boxW, reply)
	}()
	return cmdCh
}

func (e *clientTestEnv) close() {
	e.boxW.Close()
	e.boxR.Close()
	e.cancel()
}

func TestClientDo(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.close()

	cmdCh := env.box(1, ">>Present Devices: I1 I3 \r\n>Done\n")
	reply, err := env.client.Do(context.Background(), CmdCheckPresence)
	require.NoError(t, err)
	require.Equal(t, "?", <-cmdCh)
	slots, err := reply.ParsePresence()
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, slots)

	cmd := EncodeRead(2, 0x07)
	cmdCh = env.box(len(cmd), ">Read Mode\n>>AD9910 Read: ID=2, Addr=0x07, Data=0xDE AD BE EF \n>Done\n")
	reply, err = env.client.Do(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "I3R07\n", <-cmdCh)
	require.Equal(t, ReadModeLine, reply.Lines[0])
	res, err := reply.ParseRead()
	require.NoError(t, err)
	require.Equal(t, &ReadResult{Slot: 2, Addr: 0x07, Data: []byte{0xde, 0xad, 0xbe, 0xef}}, res)
}

func TestClientCommandError(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.close()

	cmd := EncodeRead(0, 0x05)
	env.box(len(cmd), ">Read Mode\n>Error: register 0x05 not transferable\n>Done\n")
	reply, err := env.client.Do(context.Background(), cmd)
	require.Equal(t, &CommandError{Message: "register 0x05 not transferable"}, err)
	require.Equal(t, []string{ReadModeLine}, reply.Lines)
}

func TestClientTimeout(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.close()

	env.box(1, ">Master Reset\n")
	_, err := env.client.Do(context.Background(), CmdReset)
	require.Equal(t, context.DeadlineExceeded, err)
}

func TestClientLinkClosed(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.cancel()

	go func() {
		buf := make([]byte, 1)
		env.boxR.Read(buf)
		env.boxW.Close()
	}()
	_, err := env.client.Do(context.Background(), CmdReset)
	require.Equal(t, ErrNoReply, err)
	require.NoError(t, <-env.doneCh)
}

func TestReplyParseErrors(t *testing.T) {
	_, err := (&Reply{Lines: []string{">Read Mode"}}).ParseRead()
	require.Error(t, err)
	_, err = (&Reply{Lines: []string{">>AD9910 Read: ID=x, Addr=0x07, Data=0x00 "}}).ParseRead()
	require.Error(t, err)
	_, err = (&Reply{Lines: []string{">>Present Devices: X1 "}}).ParsePresence()
	require.Error(t, err)
	slots, err := (&Reply{Lines: []string{">>Present Devices: "}}).ParsePresence()
	require.NoError(t, err)
	require.Empty(t, slots)
}

func TestEncode(t *testing.T) {
	require.Equal(t, "I1T", EncodeTest(0))
	require.Equal(t, "I4R0e\n", EncodeRead(3, 0x0e))
	cmd, err := EncodeWrite(2, 0x0e, []byte{0x1a, 0x2b})
	require.NoError(t, err)
	require.Equal(t, "I3R0eL2D1a2b", cmd)
	_, err = EncodeWrite(0, 0x0e, nil)
	require.Error(t, err)
	_, err = EncodeWrite(0, 0x0e, make([]byte, 10))
	require.Error(t, err)
	require.Equal(t, "I1F19999999", EncodeFrequency(0, 0x19999999))
	require.Equal(t, "I2A3fff", EncodeAmplitude(1, 0x3fff))
	require.Equal(t, "I1P0400", EncodePhase(0, 0x400))

	var p Parser
	var cmdOut Command
	for _, b := range []byte(cmd) {
		if c, ok := p.Parse(b); ok {
			cmdOut = c
		}
	}
	require.Equal(t, writeCmd(2, "0e", "1a2b"), cmdOut)
}
