package box

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
	"github.com/robotalks/ddsbox/pkg/l1/comm/websocket"
)

func TestEnvOverWebsocket(t *testing.T) {
	conf := testConfig()
	conf.LinkURL = "ws://127.0.0.1:0/console"
	conf.Settle = 0
	conf.Board.Simulate = true
	conf.Board.SimPresent = []int{1, 3}
	env, err := conf.NewEnv()
	require.NoError(t, err)
	defer env.Close()
	require.Nil(t, env.Registrar)

	loop := fx.NewLoop()
	env.AddToLoop(loop)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	l, ok := env.Link.(*websocket.Listener)
	require.True(t, ok)
	conn, err := websocket.Dial("ws://" + l.Addr().String() + "/console")
	require.NoError(t, err)
	client := comm.NewClient(conn)
	client.Timeout = 5 * time.Second
	go client.Run(ctx)

	reply, err := client.Do(ctx, comm.CmdIdentify)
	require.NoError(t, err)
	require.Equal(t, []string{"CAMPBELLGROUP,AD9910_DDS_Box_Arduino,"}, reply.Lines)

	reply, err = client.Do(ctx, comm.CmdCheckPresence)
	require.NoError(t, err)
	present, err := reply.ParsePresence()
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, present)

	cmd, err := comm.EncodeWrite(2, ad9910.FTW, []byte{0x19, 0x99, 0x99, 0x9a})
	require.NoError(t, err)
	_, err = client.Do(ctx, cmd)
	require.NoError(t, err)
	reply, err = client.Do(ctx, comm.EncodeRead(2, ad9910.FTW))
	require.NoError(t, err)
	res, err := reply.ParseRead()
	require.NoError(t, err)
	require.Equal(t, []byte{0x19, 0x99, 0x99, 0x9a}, res.Data)

	_, err = client.Do(ctx, comm.EncodeTest(4))
	require.Error(t, err)
	cmdErr, ok := err.(*comm.CommandError)
	require.True(t, ok)
	require.Equal(t, "no device slot I5 (4 configured)", cmdErr.Message)
}

func TestNewEnvInvalid(t *testing.T) {
	conf := testConfig()
	conf.ID = ""
	_, err := conf.NewEnv()
	require.Error(t, err)

	conf = testConfig()
	conf.Board.Simulate = true
	conf.LinkURL = "gopher://nowhere"
	_, err = conf.NewEnv()
	require.Error(t, err)
}
