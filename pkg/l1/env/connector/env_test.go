package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ddsbox/pkg/l1"
)

func TestNewConnector(t *testing.T) {
	conf := &Config{RegistryURL: "mqtt://localhost:1883/dds/"}
	conn, err := conf.NewConnector()
	require.NoError(t, err)
	require.NotNil(t, conn)

	conf.RegistryURL = "http://localhost/"
	_, err = conf.NewConnector()
	require.Error(t, err)
}

func TestTarget(t *testing.T) {
	conf := &Config{Ref: l1.BoxRef{Type: "ddsbox", ID: "lab1"}}
	require.True(t, conf.CanConnect())
	require.Equal(t, "ddsbox/lab1", conf.Target())

	conf.LinkURL = "ws://localhost:8080/console"
	require.Equal(t, "ws://localhost:8080/console", conf.Target())

	require.False(t, (&Config{Ref: l1.BoxRef{Type: "ddsbox"}}).CanConnect())
}

func TestConnectRequiresRef(t *testing.T) {
	conf := &Config{Ref: l1.BoxRef{Type: "ddsbox"}, RegistryURL: DefaultRegistryURL}
	_, err := conf.Connect(context.Background())
	require.Error(t, err)
}
