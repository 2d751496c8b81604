package websocket

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenerConsole(t *testing.T) {
	l, err := Listen("127.0.0.1:0", "")
	require.NoError(t, err)
	defer l.Close()

	n, err := l.Write([]byte(">Done\n"))
	require.NoError(t, err)
	require.Equal(t, 6, n)

	conn, err := Dial("ws://" + l.Addr().String() + DefaultPath)
	require.NoError(t, err)
	_, err = conn.Write([]byte("I1T"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	var got []byte
	for len(got) < 3 {
		n, err := l.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, "I1T", string(got))

	_, err = l.Write([]byte(">Test Mode\n"))
	require.NoError(t, err)
	n, err = io.ReadAtLeast(conn, buf, 11)
	require.NoError(t, err)
	require.Equal(t, ">Test Mode\n", string(buf[:n]))
	conn.Close()
}

func TestListenerClose(t *testing.T) {
	l, err := Listen("127.0.0.1:0", "/x")
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() {
		_, err := l.Read(make([]byte, 4))
		errCh <- err
	}()
	require.NoError(t, l.Close())
	require.Equal(t, io.EOF, <-errCh)
	require.NoError(t, l.Close())
}
