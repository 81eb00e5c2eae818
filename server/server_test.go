package server

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanpm2001/jsonstream/authority"
	"github.com/seanpm2001/jsonstream/client"
	"github.com/seanpm2001/jsonstream/endpoint"
	"github.com/seanpm2001/jsonstream/internal/framecodec"
	"github.com/seanpm2001/jsonstream/jsonvalue"
)

type events struct {
	mu                sync.Mutex
	added             []string
	removed           []string
	received          []jsonvalue.Object
	authFailed        int
	addedCh           chan string
	removedCh         chan string
	receivedCh        chan jsonvalue.Object
	authorizationFail chan struct{}
}

func newEvents() *events {
	return &events{
		addedCh:           make(chan string, 16),
		removedCh:         make(chan string, 16),
		receivedCh:        make(chan jsonvalue.Object, 16),
		authorizationFail: make(chan struct{}, 16),
	}
}

func (e *events) onAdded(id string) {
	e.mu.Lock()
	e.added = append(e.added, id)
	e.mu.Unlock()
	e.addedCh <- id
}

func (e *events) onRemoved(id string) {
	e.mu.Lock()
	e.removed = append(e.removed, id)
	e.mu.Unlock()
	e.removedCh <- id
}

func (e *events) onReceived(id string, msg jsonvalue.Object) {
	e.mu.Lock()
	e.received = append(e.received, msg)
	e.mu.Unlock()
	e.receivedCh <- msg
}

func (e *events) onAuthFailed() {
	e.mu.Lock()
	e.authFailed++
	e.mu.Unlock()
	e.authorizationFail <- struct{}{}
}

func waitString(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func waitObject(t *testing.T, ch <-chan jsonvalue.Object) jsonvalue.Object {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func waitEmpty(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestServerUTF8EchoScenario(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "jsonstream.sock")

	ev := newEvents()
	srv, err := Listen(sockPath,
		WithConnectionAddedHandler(ev.onAdded),
		WithConnectionRemovedHandler(ev.onRemoved),
		WithMessageReceivedHandler(ev.onReceived),
	)
	require.NoError(t, err)
	defer srv.Close()

	c, err := client.Dial(sockPath, endpoint.WithOutboundFormat(framecodec.Utf8))
	require.NoError(t, err)
	defer c.Close()

	id := waitString(t, ev.addedCh)
	assert.True(t, srv.HasConnection(id))

	obj := jsonvalue.Object{
		"text":   "Standard text",
		"number": 0.0,
		"int":    100.0,
		"float":  100.0,
		"true":   true,
		"false":  false,
		"array":  []interface{}{"one", "two", "three"},
		"object": jsonvalue.Object{
			"item1": "This is item 1",
			"item2": "This is item 2",
		},
	}
	require.NoError(t, c.Send(obj))

	got := waitObject(t, ev.receivedCh)
	assert.Equal(t, obj, got)
}

func TestServerBroadcastReachesAllAuthorized(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "jsonstream.sock")

	ev := newEvents()
	srv, err := Listen(sockPath, WithConnectionAddedHandler(ev.onAdded))
	require.NoError(t, err)
	defer srv.Close()

	type peer struct {
		ep  *endpoint.Endpoint
		got chan jsonvalue.Object
	}

	var peers []peer
	for i := 0; i < 3; i++ {
		got := make(chan jsonvalue.Object, 1)
		ep, derr := client.Dial(sockPath, endpoint.WithMessageHandler(func(o jsonvalue.Object) { got <- o }))
		require.NoError(t, derr)
		defer ep.Close()
		peers = append(peers, peer{ep: ep, got: got})
		waitString(t, ev.addedCh)
	}

	srv.Broadcast(jsonvalue.Object{"kind": "announce"})

	for _, p := range peers {
		msg := waitObject(t, p.got)
		assert.Equal(t, "announce", msg["kind"])
	}

	assert.Len(t, srv.Connections(), 3)
}

func TestServerSendTargetsSingleConnection(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "jsonstream.sock")

	ev := newEvents()
	srv, err := Listen(sockPath, WithConnectionAddedHandler(ev.onAdded))
	require.NoError(t, err)
	defer srv.Close()

	got := make(chan jsonvalue.Object, 1)
	ep, err := client.Dial(sockPath, endpoint.WithMessageHandler(func(o jsonvalue.Object) { got <- o }))
	require.NoError(t, err)
	defer ep.Close()

	id := waitString(t, ev.addedCh)

	ok := srv.Send(id, jsonvalue.Object{"command": "exit"})
	assert.True(t, ok)

	msg := waitObject(t, got)
	assert.Equal(t, "exit", msg["command"])

	assert.False(t, srv.Send("no-such-connection", jsonvalue.Object{}))
}

func TestServerUIDAuthorityDeniesAndFiresAuthorizationFailed(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "jsonstream.sock")

	// Neither endpoint of a Unix-domain loopback dial on this machine
	// will ever present UID 0xffffffff, so an allow-list naming only
	// that UID denies every connection.
	auth := authority.NewUIDAuthority(0xffffffff)

	ev := newEvents()
	srv, err := Listen(sockPath,
		WithAuthority(auth),
		WithAuthorizationFailedHandler(ev.onAuthFailed),
		WithConnectionAddedHandler(ev.onAdded),
	)
	require.NoError(t, err)
	defer srv.Close()

	c, err := client.Dial(sockPath)
	require.NoError(t, err)
	defer c.Close()

	waitEmpty(t, ev.authorizationFail)

	select {
	case <-ev.addedCh:
		t.Fatal("connection should not have been added")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Empty(t, srv.Connections())
}

func TestServerConnectionRemovedOnClientDisconnect(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "jsonstream.sock")

	ev := newEvents()
	srv, err := Listen(sockPath,
		WithConnectionAddedHandler(ev.onAdded),
		WithConnectionRemovedHandler(ev.onRemoved),
	)
	require.NoError(t, err)
	defer srv.Close()

	c, err := client.Dial(sockPath)
	require.NoError(t, err)

	id := waitString(t, ev.addedCh)
	require.NoError(t, c.Close())

	removedID := waitString(t, ev.removedCh)
	assert.Equal(t, id, removedID)
	assert.False(t, srv.HasConnection(id))
}

func TestServerRemovesStaleSocketFile(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "jsonstream.sock")

	first, err := Listen(sockPath)
	require.NoError(t, err)
	// Keep the socket file on disk after Close, as a crashed process would.
	first.listener.(*net.UnixListener).SetUnlinkOnClose(false)
	first.Close()

	time.Sleep(10 * time.Millisecond)

	second, err := Listen(sockPath)
	require.NoError(t, err)
	defer second.Close()
}
