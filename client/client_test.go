package client

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanpm2001/jsonstream/endpoint"
	"github.com/seanpm2001/jsonstream/jsonvalue"
)

func TestDialRoundTrip(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "jsonstream.sock")

	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan jsonvalue.Object, 1)
	go func() {
		conn, aerr := ln.Accept()
		if aerr != nil {
			return
		}
		ep := endpoint.New(conn, endpoint.WithMessageHandler(func(o jsonvalue.Object) {
			received <- o
		}))
		ep.Start()
	}()

	c, err := Dial(sockPath)
	require.NoError(t, err)
	defer c.Close()

	obj := jsonvalue.Object{"hello": "world"}
	require.NoError(t, c.Send(obj))

	select {
	case got := <-received:
		assert.Equal(t, obj, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestDialFailsWithoutListener(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "does-not-exist.sock")
	_, err := Dial(sockPath)
	assert.Error(t, err)
}

func TestDialPipeRoundTrip(t *testing.T) {
	clientRead, serverWrite, err := os.Pipe()
	require.NoError(t, err)
	serverRead, clientWrite, err := os.Pipe()
	require.NoError(t, err)

	received := make(chan jsonvalue.Object, 1)
	serverEp, err := endpoint.NewPipeEndpoint(int(serverRead.Fd()), int(serverWrite.Fd()),
		endpoint.WithMessageHandler(func(o jsonvalue.Object) { received <- o }))
	require.NoError(t, err)
	serverEp.Start()
	defer serverEp.Close()

	c, err := DialPipe(int(clientRead.Fd()), int(clientWrite.Fd()))
	require.NoError(t, err)
	defer c.Close()

	obj := jsonvalue.Object{"ping": true}
	require.NoError(t, c.Send(obj))

	select {
	case got := <-received:
		assert.Equal(t, obj, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
