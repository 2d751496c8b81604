package board

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
)

func newSimDevice(slots int, present ...int) (*Sim, *ad9910.Device) {
	sim := NewSim(slots, present...)
	dev := ad9910.NewDevice(sim.Bus())
	dev.Settle = 0
	return sim, dev
}

func TestSimWriteReadRoundTrip(t *testing.T) {
	sim, dev := newSimDevice(4)
	data := []byte{0x1a, 0x2b, 0x3c, 0x4d, 0x5e, 0x6f, 0x70, 0x81}
	require.NoError(t, dev.Write(2, ad9910.Profile0, data))
	require.Equal(t, data, sim.Register(2, ad9910.Profile0))
	read, err := dev.Read(2, ad9910.Profile0, false)
	require.NoError(t, err)
	require.Equal(t, data, read)

	read, err = dev.Read(1, ad9910.Profile0, false)
	require.NoError(t, err)
	require.Equal(t, []byte{0x08, 0xb5, 0, 0, 0, 0, 0, 0}, read)
	require.Equal(t, -1, sim.Selected())
}

func TestSimWriteLatchedOnIOUpdate(t *testing.T) {
	sim := NewSim(1)
	bus := sim.Bus()
	require.NoError(t, bus.ChipSelects[0].Out(false))
	require.NoError(t, bus.Conn.Tx([]byte{ad9910.FTW, 1, 2, 3, 4}, nil))
	require.NoError(t, bus.ChipSelects[0].Out(true))
	require.Equal(t, []byte{0, 0, 0, 0}, sim.Register(0, ad9910.FTW))
	require.NoError(t, bus.IOUpdate.Out(true))
	require.NoError(t, bus.IOUpdate.Out(false))
	require.Equal(t, []byte{1, 2, 3, 4}, sim.Register(0, ad9910.FTW))
}

func TestSimAbsentSlotReadsZero(t *testing.T) {
	_, dev := newSimDevice(4, 0, 2)
	for slot, present := range []bool{true, false, true, false} {
		data, err := dev.Read(slot, ad9910.PresenceProbe, false)
		require.NoError(t, err)
		require.Equal(t, present, data[ad9910.PresenceByte] > 0, "slot %d", slot)
	}
}

func TestSimReset(t *testing.T) {
	sim, dev := newSimDevice(2)
	sim.SetRegister(1, ad9910.FTW, []byte{9, 9, 9, 9})
	require.NoError(t, dev.Reset())
	for slot := 0; slot < 2; slot++ {
		require.Equal(t, ad9910.CFR3NoRefDivider, sim.Register(slot, ad9910.CFR3))
		require.Equal(t, ad9910.CFR1ThreeWire, sim.Register(slot, ad9910.CFR1))
		require.Equal(t, ad9910.CFR2AmplitudeFromProfile, sim.Register(slot, ad9910.CFR2))
	}
	require.Equal(t, []byte{0, 0, 0, 0}, sim.Register(1, ad9910.FTW))
}

func TestConfigOpenSim(t *testing.T) {
	conf := &Config{Simulate: true, ChipSelects: []string{"a", "b", "c"}, SimPresent: []int{2}}
	b, err := conf.Open()
	require.NoError(t, err)
	require.Len(t, b.Bus().ChipSelects, 3)
	dev := ad9910.NewDevice(b.Bus())
	dev.Settle = 0
	data, err := dev.Read(1, ad9910.PresenceProbe, false)
	require.NoError(t, err)
	require.Equal(t, byte(0xff), data[ad9910.PresenceByte])
	require.NoError(t, b.Close())

	conf.SimPresent = []int{4}
	_, err = conf.Open()
	require.Error(t, err)
}
