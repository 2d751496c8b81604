package dispatch

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
	"github.com/robotalks/ddsbox/pkg/l0/board"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
)

type simBox struct {
	sim  *board.Sim
	dev  *ad9910.Device
	mbox comm.Mailbox
	out  bytes.Buffer
	rcv  *comm.Receiver
	d    *Dispatcher
}

func newSimBox(slots int, present ...int) *simBox {
	b := &simBox{sim: board.NewSim(slots, present...)}
	b.dev = ad9910.NewDevice(b.sim.Bus())
	b.dev.Settle = 0
	b.d = New(b.dev, &b.out, &b.mbox)
	b.dev.Echo = b.d
	b.rcv = comm.NewReceiver(nil, &b.mbox)
	return b
}

func (b *simBox) feed(in string) int {
	accepted := 0
	for i := 0; i < len(in); i++ {
		if b.rcv.Receive(context.Background(), in[i]) {
			accepted++
		}
	}
	return accepted
}

func (b *simBox) exec(t *testing.T, in string) string {
	require.Equal(t, len(in), b.feed(in))
	b.out.Reset()
	require.True(t, b.d.Poll(context.Background()))
	return b.out.String()
}

func TestBoxWriteThenRead(t *testing.T) {
	b := newSimBox(4)
	require.Equal(t, lines(">Write Mode", ">Done"), b.exec(t, "I3R0eL2D1a2b"))
	require.Equal(t, []byte{0x1a, 0x2b, 0, 0, 0, 0, 0, 0}, b.sim.Register(2, ad9910.Profile0))
	require.Equal(t, lines(
		">Read Mode",
		">>AD9910 Read: ID=2, Addr=0x0E, Data=0x1A 2B 00 00 00 00 00 00 ",
		">Done",
	), b.exec(t, "I3R0e\n"))
	require.Equal(t, -1, b.sim.Selected())
}

func TestBoxWriteUppercaseAddress(t *testing.T) {
	b := newSimBox(4)
	var posted []comm.Command
	b.rcv.Notifier = comm.CommandPostedFunc(func(ctx context.Context, cmd comm.Command) {
		posted = append(posted, cmd)
	})
	require.Equal(t, lines(">Write Mode", ">Done"), b.exec(t, "I3R0EL2D1a2b"))
	require.Len(t, posted, 1)
	require.Equal(t, comm.KindWriteRegister, posted[0].Kind)
	require.Equal(t, 2, posted[0].Slot)
	require.Equal(t, ad9910.Profile0, posted[0].RegisterAddress())
	require.Equal(t, []byte{0x1a, 0x2b, 0, 0, 0, 0, 0, 0}, b.sim.Register(2, ad9910.Profile0))
	require.Equal(t, []byte{0x08, 0xb5, 0, 0, 0, 0, 0, 0}, b.sim.Register(0, ad9910.Profile0))
}

// doneFeeder sends the next command as soon as it sees DoneLine.
type doneFeeder struct {
	out      bytes.Buffer
	rcv      *comm.Receiver
	next     string
	accepted int
}

func (w *doneFeeder) Write(p []byte) (int, error) {
	w.out.Write(p)
	if w.next != "" && strings.Contains(w.out.String(), comm.DoneLine) {
		for i := 0; i < len(w.next); i++ {
			if w.rcv.Receive(context.Background(), w.next[i]) {
				w.accepted++
			}
		}
		w.next = ""
	}
	return len(p), nil
}

func TestBoxAcceptsCommandAfterDone(t *testing.T) {
	b := newSimBox(2)
	w := &doneFeeder{rcv: b.rcv, next: "I1T"}
	b.d.Output = w
	require.Equal(t, 1, b.feed("X"))
	require.True(t, b.d.Poll(context.Background()))
	require.Equal(t, 3, w.accepted)
	require.Equal(t, uint64(0), b.rcv.Dropped())
	require.True(t, b.d.Poll(context.Background()))
	require.Equal(t, lines(">Master Reset", ">Done", ">Test Mode", ">Done"), w.out.String())
	require.Equal(t, ad9910.TestPattern(false), b.sim.Register(0, ad9910.CFR2))
}

func TestBoxReadReplyParsed(t *testing.T) {
	b := newSimBox(2)
	b.sim.SetRegister(1, ad9910.FTW, []byte{0xde, 0xad, 0xbe, 0xef})
	out := b.exec(t, comm.EncodeRead(1, ad9910.FTW))
	reply := &comm.Reply{Lines: strings.Split(strings.TrimSuffix(out, "\n"), "\n")}
	res, err := reply.ParseRead()
	require.NoError(t, err)
	require.Equal(t, 1, res.Slot)
	require.Equal(t, ad9910.FTW, res.Addr)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, res.Data)
}

func TestBoxCheckPresence(t *testing.T) {
	b := newSimBox(4, 0, 2)
	require.Equal(t, lines(">AD9910 Controller", ">>Present Devices: I1 I3 ", ">Done"), b.exec(t, "?"))
}

func TestBoxResetAndTuning(t *testing.T) {
	b := newSimBox(2)
	require.Equal(t, lines(">Master Reset", ">Done"), b.exec(t, "X"))
	require.Equal(t, ad9910.CFR2AmplitudeFromProfile, b.sim.Register(0, ad9910.CFR2))

	ftw := ad9910.FrequencyToFTW(10e6, ad9910.DefaultSysClock)
	require.Equal(t, lines(">Frequency Mode", ">Done"), b.exec(t, comm.EncodeFrequency(1, ftw)))
	require.Equal(t, lines(">Amplitude Mode", ">Done"), b.exec(t, comm.EncodeAmplitude(1, 0x1fff)))
	p := ad9910.ParseProfile(b.sim.Register(1, ad9910.Profile0))
	require.Equal(t, ftw, p.FTW)
	require.Equal(t, uint16(0x1fff), p.ASF)
	require.Equal(t, uint16(0), p.POW)
	require.Equal(t, []byte{0x08, 0xb5, 0, 0, 0, 0, 0, 0}, b.sim.Register(0, ad9910.Profile0))
}

func TestBoxAbortDiscardsPartialCommand(t *testing.T) {
	b := newSimBox(2)
	require.Equal(t, 8, b.feed("I1R0eL2D"))
	require.Equal(t, lines(">Test Mode", ">Done"), b.exec(t, "/I2T"))
	require.Equal(t, ad9910.TestPattern(false), b.sim.Register(1, ad9910.CFR2))
	require.Equal(t, []byte{0x08, 0xb5, 0, 0, 0, 0, 0, 0}, b.sim.Register(0, ad9910.Profile0))
}

func TestBoxDropsBytesDuringTransfer(t *testing.T) {
	b := newSimBox(2)
	enteredCh, releaseCh := make(chan struct{}), make(chan struct{})
	var once sync.Once
	b.sim.OnTx = func([]byte) {
		once.Do(func() {
			close(enteredCh)
			<-releaseCh
		})
	}
	var ran []comm.Kind
	b.d.Notifier = CommandDoneFunc(func(ctx context.Context, ev *Event) {
		ran = append(ran, ev.Command.Kind)
	})

	require.Equal(t, 3, b.feed("I1T"))
	doneCh := make(chan bool)
	go func() {
		doneCh <- b.d.Poll(context.Background())
	}()
	<-enteredCh
	require.Equal(t, comm.KindTest, b.d.Mode())
	require.Equal(t, 0, b.feed("I2TX?"))
	close(releaseCh)
	require.True(t, <-doneCh)

	require.Equal(t, uint64(5), b.rcv.Dropped())
	require.Equal(t, comm.StateIdle, b.rcv.State())
	require.False(t, b.d.Poll(context.Background()))
	require.Equal(t, []comm.Kind{comm.KindTest}, ran)
	require.Equal(t, lines(">Test Mode", ">Done"), b.out.String())
	require.Equal(t, ad9910.TestPattern(false), b.sim.Register(0, ad9910.CFR2))
}

type lockedBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func TestBoxInLoop(t *testing.T) {
	sim := board.NewSim(4, 1)
	dev := ad9910.NewDevice(sim.Bus())
	dev.Settle = 0
	var mbox comm.Mailbox
	var out lockedBuffer
	d := New(dev, &out, &mbox)
	dev.Echo = d
	evCh := make(chan *Event, 4)
	d.Notifier = CommandDoneFunc(func(ctx context.Context, ev *Event) {
		evCh <- ev
	})
	pr, pw := io.Pipe()
	rcv := comm.NewReceiver(pr, &mbox)

	loop := fx.NewLoop()
	loop.Interval = time.Hour
	loop.Add(d).AddRunnable(rcv)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
	}()

	expect := func(kind comm.Kind) *Event {
		select {
		case ev := <-evCh:
			require.Equal(t, kind, ev.Command.Kind)
			return ev
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for %s", kind)
		}
		return nil
	}

	_, err := pw.Write([]byte("*IDN?"))
	require.NoError(t, err)
	expect(comm.KindIdentify)
	_, err = pw.Write([]byte("?"))
	require.NoError(t, err)
	ev := expect(comm.KindCheckPresence)
	require.Equal(t, []int{1}, ev.Present)
	require.Equal(t, lines(
		"CAMPBELLGROUP,AD9910_DDS_Box_Arduino,",
		">Done",
		">AD9910 Controller",
		">>Present Devices: I2 ",
		">Done",
	), out.String())

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	pw.Close()
}
