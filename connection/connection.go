// Package connection layers the handshake state machine of spec §4.3
// over a stream endpoint: pre-authorization message isolation, an
// authority handshake, and an outbound queue that's gated on
// authorization. Grounded on the shape of
// v2/netconf/server/netconf/server.go's SessionHandler — a per-peer
// object owning one transport, a callback interface, and a state
// transition that unblocks queued work (there: waitForClientHello and a
// WaitGroup; here: the authority handshake and the pending-send queue).
package connection

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/seanpm2001/jsonstream/authority"
	"github.com/seanpm2001/jsonstream/endpoint"
	"github.com/seanpm2001/jsonstream/jsonvalue"
)

// ErrClosed is returned by Send once a Connection has reached Closed.
var ErrClosed = errors.New("connection: closed")

// Connection is a per-peer state machine over one stream endpoint.
type Connection struct {
	endpoint *endpoint.Endpoint
	auth     authority.Authority
	peer     authority.Peer
	trace    *Trace

	mu         sync.Mutex
	identifier string
	state      State
	pendingOut []jsonvalue.Object

	onAuthorized          func(identifier string)
	onAuthorizationFailed func()
	onMessageReceived     func(identifier string, msg jsonvalue.Object)
	onDisconnected        func(identifier string)
}

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithAuthorizedHandler registers the callback fired once, on the
// transition to Authorized.
func WithAuthorizedHandler(f func(identifier string)) Option {
	return func(c *Connection) { c.onAuthorized = f }
}

// WithAuthorizationFailedHandler registers the callback fired once, if
// the authority denies the peer.
func WithAuthorizationFailedHandler(f func()) Option {
	return func(c *Connection) { c.onAuthorizationFailed = f }
}

// WithMessageReceivedHandler registers the callback fired for each
// application message received while Authorized.
func WithMessageReceivedHandler(f func(identifier string, msg jsonvalue.Object)) Option {
	return func(c *Connection) { c.onMessageReceived = f }
}

// WithDisconnectedHandler registers the callback fired once the
// underlying endpoint fails (peer disconnect, I/O error or malformed
// frame). A local Close, including one after a Denied record, does not
// fire it.
func WithDisconnectedHandler(f func(identifier string)) Option {
	return func(c *Connection) { c.onDisconnected = f }
}

// WithConnectionTrace attaches diagnostic hooks (see Trace). A caller may
// supply a Trace with only some hooks set; the rest fall back to
// no-ops (see mergeTrace).
func WithConnectionTrace(t *Trace) Option {
	return func(c *Connection) { c.trace = mergeTrace(t) }
}

// New wraps ep in a Connection gated by auth. identifier is
// the connection's initial stable identifier; the authority may override
// it via AuthorizationRecord.Identifier.
func New(ep *endpoint.Endpoint, identifier string, auth authority.Authority, peer authority.Peer, opts ...Option) *Connection {
	c := &Connection{
		endpoint:   ep,
		auth:       auth,
		peer:       peer,
		identifier: identifier,
		state:      WaitingForAuthentication,
		trace:      NoOpTrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.trace == nil {
		c.trace = NoOpTrace
	}
	return c
}

// Start wires the endpoint's callbacks to this connection, runs the
// initial authority handshake (authority.ClientConnected), and only then
// launches the endpoint's goroutines. Call exactly once.
//
// The handshake must complete before the reader goroutine starts: spec §5
// guarantees "the authority's clientConnected completes before any
// messageReceived callback on that connection", and starting the reader
// first would let an eager peer's first message race handleMessage against
// ClientConnected still running. applyRecord's own Send/Close calls are
// safe to make before Start - Send queues outbound bytes for the writer
// goroutine to flush once running, and a Denied connection's Close simply
// means Start launches goroutines against an already-closed transport,
// which fail harmlessly through the same closeOnce-guarded path.
func (c *Connection) Start() {
	c.endpoint = wireEndpoint(c.endpoint, c)

	rec := c.auth.ClientConnected(c.peer)
	c.trace.ClientConnected(c.Identifier(), rec)
	c.applyRecord(rec)

	c.endpoint.Start()
}

// wireEndpoint re-registers the endpoint's handlers to point at c. The
// endpoint is constructed by the caller (typically the server, which
// needs the raw transport before a Connection exists), so its handlers
// are attached here rather than at endpoint construction time.
func wireEndpoint(ep *endpoint.Endpoint, c *Connection) *endpoint.Endpoint {
	ep.SetHandlers(c.handleMessage, c.handleError, c.handleAboutToClose)
	return ep
}

// Identifier returns the connection's current stable identifier.
func (c *Connection) Identifier() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identifier
}

// State returns the connection's current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send submits obj for delivery. While WaitingForAuthentication it is
// queued and flushed in order on the transition to Authorized
// (spec §4.3); once Closed it is rejected with ErrClosed.
func (c *Connection) Send(obj jsonvalue.Object) error {
	c.mu.Lock()
	switch c.state {
	case Authorized:
		c.mu.Unlock()
		return c.endpoint.Send(obj)
	case WaitingForAuthentication:
		c.pendingOut = append(c.pendingOut, obj)
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrClosed
	}
}

// Close tears down the underlying endpoint.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.state = Closed
	c.mu.Unlock()
	return c.endpoint.Close()
}

func (c *Connection) handleMessage(msg jsonvalue.Object) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case WaitingForAuthentication:
		rec := c.auth.MessageReceived(c.peer, msg)
		c.trace.MessageReceived(c.Identifier(), rec)
		c.applyRecord(rec)
	case Authorized:
		if c.onMessageReceived != nil {
			c.onMessageReceived(c.Identifier(), msg)
		}
	case Closed:
		// The endpoint is already torn down; nothing further to deliver.
	}
}

// applyRecord carries out the state transition and side effects an
// AuthorizationRecord prescribes (spec §4.3).
func (c *Connection) applyRecord(rec authority.AuthorizationRecord) {
	c.mu.Lock()
	if rec.Identifier != "" {
		c.identifier = rec.Identifier
	}
	c.mu.Unlock()

	if rec.Reply != nil {
		_ = c.endpoint.Send(rec.Reply)
	}

	switch rec.Outcome {
	case authority.Authorized:
		c.mu.Lock()
		c.state = Authorized
		queued := c.pendingOut
		c.pendingOut = nil
		c.mu.Unlock()

		for _, obj := range queued {
			_ = c.endpoint.Send(obj)
		}
		if c.onAuthorized != nil {
			c.onAuthorized(c.Identifier())
		}
	case authority.NotAuthorized:
		// Remain WaitingForAuthentication; the authority gets another
		// inbound message to judge.
	case authority.Denied:
		c.mu.Lock()
		c.state = Closed
		c.mu.Unlock()
		_ = c.endpoint.Close()
		if c.onAuthorizationFailed != nil {
			c.onAuthorizationFailed()
		}
	}
}

func (c *Connection) handleError(kind endpoint.Kind, err error) {
	c.trace.Disconnected(c.Identifier(), kind, err)
	c.mu.Lock()
	c.state = Closed
	c.mu.Unlock()
	if c.onDisconnected != nil {
		c.onDisconnected(c.Identifier())
	}
}

func (c *Connection) handleAboutToClose() {
	c.trace.AboutToClose(c.Identifier())
}
