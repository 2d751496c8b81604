package comm

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func feed(r *Receiver, in string) (accepted int) {
	for i := 0; i < len(in); i++ {
		if r.Receive(context.Background(), in[i]) {
			accepted++
		}
	}
	return
}

func TestMailbox(t *testing.T) {
	var m Mailbox
	require.True(t, m.Accepting())
	_, ok := m.Take()
	require.False(t, ok)
	require.False(t, m.Release())

	require.NoError(t, m.Post(Command{Kind: KindReset}))
	require.True(t, m.Pending())
	require.Equal(t, ErrMailboxFull, m.Post(Command{Kind: KindTest}))

	cmd, ok := m.Take()
	require.True(t, ok)
	require.Equal(t, KindReset, cmd.Kind)
	_, ok = m.Take()
	require.False(t, ok)
	require.True(t, m.Pending())
	require.Equal(t, ErrMailboxFull, m.Post(Command{Kind: KindTest}))

	require.True(t, m.Release())
	require.True(t, m.Accepting())
	require.False(t, m.Release())
}

func TestReceiverDropsWhilePending(t *testing.T) {
	var m Mailbox
	r := NewReceiver(nil, &m)
	require.Equal(t, 3, feed(r, "I1T"))
	require.True(t, m.Pending())

	require.Zero(t, feed(r, "X?I2T"))
	require.Equal(t, uint64(5), r.Dropped())
	require.Equal(t, StateIdle, r.State())

	cmd, ok := m.Take()
	require.True(t, ok)
	require.Equal(t, slotCmd(KindTest, 0), cmd)
	require.Zero(t, feed(r, "?"))
	m.Release()

	require.Equal(t, 1, feed(r, "?"))
	cmd, ok = m.Take()
	require.True(t, ok)
	require.Equal(t, KindCheckPresence, cmd.Kind)
	require.Equal(t, uint64(6), r.Dropped())
}

func TestReceiverKeepsPartialCommandAcrossReads(t *testing.T) {
	var m Mailbox
	r := NewReceiver(nil, &m)
	feed(r, "I3R0e")
	require.Equal(t, StateReadingRegisterAddress, r.State())
	feed(r, "L2D1a2b")
	cmd, ok := m.Take()
	require.True(t, ok)
	require.Equal(t, writeCmd(2, "0e", "1a2b"), cmd)
}

func TestReceiverRun(t *testing.T) {
	pr, pw := io.Pipe()
	var m Mailbox
	r := NewReceiver(pr, &m)
	postedCh := make(chan Command, 1)
	r.Notifier = CommandPostedFunc(func(_ context.Context, cmd Command) {
		postedCh <- cmd
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	go io.WriteString(pw, "noise I3R0eL2D1a2b")
	select {
	case cmd := <-postedCh:
		require.Equal(t, writeCmd(2, "0e", "1a2b"), cmd)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}

	pw.Close()
	select {
	case err := <-errCh:
		require.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestReceiverRunCanceled(t *testing.T) {
	pr, _ := io.Pipe()
	var m Mailbox
	r := NewReceiver(pr, &m)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}
