// Package server implements the Unix-domain-socket multiplexer of spec
// §4.4: it accepts peer connections, runs each through an authority
// handshake, assigns it a stable identifier, and exposes broadcast,
// targeted send, and lifecycle events to the application.
//
// Grounded directly on netconf/server/ssh/server.go's shape: a
// net.Listener built in a constructor, an accept loop run in its own
// goroutine, and a Trace hook fired at every lifecycle point — extended
// here with the identifier map and authorization handshake spec.md adds
// on top of the teacher's bare accept-and-hand-off loop.
package server

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/seanpm2001/jsonstream/authority"
	"github.com/seanpm2001/jsonstream/connection"
	"github.com/seanpm2001/jsonstream/endpoint"
	"github.com/seanpm2001/jsonstream/jsonvalue"
)

// ErrListenFailed is returned by Listen when the socket path cannot be
// bound, per spec §4.4/§7.
var ErrListenFailed = errors.New("server: listen failed")

// Server owns a listening Unix-domain socket and the set of connections
// accepted on it. Safe for concurrent use.
type Server struct {
	listener net.Listener
	auth     authority.Authority
	trace    *Trace
	config   *Config

	mu    sync.RWMutex
	conns map[string]*connection.Connection

	onConnectionAdded     func(identifier string)
	onConnectionRemoved   func(identifier string)
	onMessageReceived     func(identifier string, msg jsonvalue.Object)
	onAuthorizationFailed func()

	closeOnce sync.Once
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithAuthority overrides the default authority (one that authorizes
// every peer immediately with no handshake) used for accepted
// connections.
func WithAuthority(auth authority.Authority) Option {
	return func(s *Server) { s.auth = auth }
}

// WithServerTrace attaches diagnostic hooks (see Trace). A caller may
// supply a Trace with only some hooks set; the rest fall back to no-ops.
func WithServerTrace(t *Trace) Option {
	return func(s *Server) { s.trace = mergeTrace(t) }
}

// WithConfig overrides the server's tunables (see Config).
func WithConfig(cfg *Config) Option {
	return func(s *Server) { s.config = cfg }
}

// WithConnectionAddedHandler registers the callback fired once a peer
// reaches Authorized and is inserted into the identifier map.
func WithConnectionAddedHandler(f func(identifier string)) Option {
	return func(s *Server) { s.onConnectionAdded = f }
}

// WithConnectionRemovedHandler registers the callback fired once an
// authorized peer disconnects and is removed from the identifier map.
func WithConnectionRemovedHandler(f func(identifier string)) Option {
	return func(s *Server) { s.onConnectionRemoved = f }
}

// WithMessageReceivedHandler registers the callback fired for each
// application message received from any authorized peer.
func WithMessageReceivedHandler(f func(identifier string, msg jsonvalue.Object)) Option {
	return func(s *Server) { s.onMessageReceived = f }
}

// WithAuthorizationFailedHandler registers the callback fired whenever
// the authority denies a connecting peer.
func WithAuthorizationFailedHandler(f func()) Option {
	return func(s *Server) { s.onAuthorizationFailed = f }
}

// acceptAllAuthority is the default authority.Authority: every peer is
// authorized immediately with no handshake message exchanged, matching
// the original's behaviour when no authority is configured.
type acceptAllAuthority struct{}

func (acceptAllAuthority) ClientConnected(authority.Peer) authority.AuthorizationRecord {
	return authority.AuthorizationRecord{Outcome: authority.Authorized}
}

func (acceptAllAuthority) MessageReceived(authority.Peer, jsonvalue.Object) authority.AuthorizationRecord {
	return authority.AuthorizationRecord{Outcome: authority.Authorized}
}

// Listen binds and listens on a Unix-domain socket at path, removing any
// stale socket file left over from a previous run first (spec §4.4,
// §6's "local-socket path"). Binding failure is wrapped in
// ErrListenFailed.
func Listen(path string, opts ...Option) (*Server, error) {
	s := &Server{
		auth:   acceptAllAuthority{},
		trace:  NoOpTrace,
		config: defaultConfig,
		conns:  make(map[string]*connection.Connection),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.trace == nil {
		s.trace = NoOpTrace
	}
	if s.config == nil {
		s.config = defaultConfig
	}

	if err := removeStaleSocket(path); err != nil {
		s.trace.Listened(path, err)
		return nil, errors.Wrap(ErrListenFailed, err.Error())
	}

	l, err := net.Listen("unix", path)
	s.trace.Listened(path, err)
	if err != nil {
		return nil, errors.Wrap(ErrListenFailed, err.Error())
	}
	s.listener = l

	go s.acceptLoop()
	return s, nil
}

// removeStaleSocket unlinks path if it exists, ignoring the case where
// it doesn't. A path occupied by something other than a stale socket
// file still fails the subsequent net.Listen, which is the desired
// ErrListenFailed behaviour.
func removeStaleSocket(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Close stops accepting new connections and closes every tracked
// connection. Safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.listener.Close()

		s.mu.Lock()
		conns := make([]*connection.Connection, 0, len(s.conns))
		for _, c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()

		for _, c := range conns {
			_ = c.Close()
		}
	})
	return err
}

// Send delivers msg to the authorized connection named identifier. It
// reports false, with no error, if no such connection exists (spec
// §4.4).
func (s *Server) Send(identifier string, msg jsonvalue.Object) bool {
	s.mu.RLock()
	c, ok := s.conns[identifier]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return c.Send(msg) == nil
}

// Broadcast delivers msg to every currently authorized connection.
func (s *Server) Broadcast(msg jsonvalue.Object) {
	s.mu.RLock()
	conns := make([]*connection.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		_ = c.Send(msg)
	}
}

// HasConnection reports whether an authorized connection named
// identifier currently exists.
func (s *Server) HasConnection(identifier string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conns[identifier]
	return ok
}

// Connections returns the identifiers of every currently authorized
// connection. The order is unspecified.
func (s *Server) Connections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.conns))
	for id := range s.conns {
		out = append(out, id)
	}
	return out
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		s.trace.Accepted(err)
		if err != nil {
			return
		}
		s.handleAccepted(conn)
	}
}

// handleAccepted wraps one newly-accepted socket in an Endpoint and a
// Connection, wires the connection's lifecycle callbacks back into the
// server's identifier map and trace, starts an optional handshake
// timeout, and runs the connection (spec §4.4, steps 1-3).
func (s *Server) handleAccepted(conn net.Conn) {
	var epOpts []endpoint.Option
	if s.config.readChunkSize > 0 {
		epOpts = append(epOpts, endpoint.WithReadChunkSize(s.config.readChunkSize))
	}
	if s.config.writeHighWaterMark > 0 {
		epOpts = append(epOpts, endpoint.WithWriteHighWaterMark(s.config.writeHighWaterMark))
	}
	ep := endpoint.New(conn, epOpts...)
	peer := authority.PeerFromConn(conn)
	identifier := uuid.New().String()

	// c is declared before the Connection it will hold is constructed so
	// the handler closures below - passed into connection.New itself -
	// can close over it: they only run once Start is called, which
	// happens strictly after c is assigned, so there is no data race.
	var (
		c     *connection.Connection
		timer *time.Timer
	)

	c = connection.New(ep, identifier, s.auth, peer,
		connection.WithAuthorizedHandler(func(id string) {
			if timer != nil {
				timer.Stop()
			}
			s.addConnection(id, c)
		}),
		connection.WithAuthorizationFailedHandler(func() {
			if timer != nil {
				timer.Stop()
			}
			s.trace.AuthorizationFailed()
			if s.onAuthorizationFailed != nil {
				s.onAuthorizationFailed()
			}
		}),
		connection.WithMessageReceivedHandler(func(id string, msg jsonvalue.Object) {
			if s.onMessageReceived != nil {
				s.onMessageReceived(id, msg)
			}
		}),
		connection.WithDisconnectedHandler(func(id string) {
			if timer != nil {
				timer.Stop()
			}
			s.removeConnection(id)
		}),
	)

	if s.config.handshakeTimeoutSecs > 0 {
		timer = time.AfterFunc(time.Duration(s.config.handshakeTimeoutSecs)*time.Second, func() {
			if c.State() == connection.WaitingForAuthentication {
				_ = c.Close()
			}
		})
	}

	c.Start()
}

// addConnection inserts c into the identifier map under id and fires
// ConnectionAdded.
func (s *Server) addConnection(id string, c *connection.Connection) {
	s.mu.Lock()
	s.conns[id] = c
	s.mu.Unlock()

	s.trace.ConnectionAdded(id)
	if s.onConnectionAdded != nil {
		s.onConnectionAdded(id)
	}
}

func (s *Server) removeConnection(id string) {
	s.mu.Lock()
	_, existed := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()

	if !existed {
		return
	}
	s.trace.ConnectionRemoved(id)
	if s.onConnectionRemoved != nil {
		s.onConnectionRemoved(id)
	}
}
