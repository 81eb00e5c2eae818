// Package client provides the connecting side of the transport: dial a
// server's Unix-domain socket (or wrap an already-connected pair of pipe
// descriptors) and get back a ready-to-use endpoint.Endpoint. Spec §1
// describes the client side only as "clients connect, send, and receive
// such messages" with no additional state machine of its own - the
// authority/handshake machinery in package connection is a server-side
// concept (spec §4.3/§4.4), so a client's own handshake handling, if its
// authority requires a reply, is ordinary application code reacting to
// the endpoint's message handler.
package client

import (
	"net"

	"github.com/pkg/errors"

	"github.com/seanpm2001/jsonstream/endpoint"
)

// Dial connects to a server listening on a Unix-domain socket at path
// and wraps the connection as an Endpoint, matching
// netconf/client/transport.go's NewSSHTransport shape (dial, wrap,
// return a ready transport) adapted from an SSH client connection to a
// local-socket one.
func Dial(path string, opts ...endpoint.Option) (*endpoint.Endpoint, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, errors.Wrap(err, "client: dial")
	}

	ep := endpoint.New(conn, opts...)
	ep.Start()
	return ep, nil
}

// DialPipe wraps an already-connected pair of pipe descriptors (spec
// §6's file-descriptor transport) as an Endpoint, for callers that were
// handed fds rather than a socket path (e.g. a process launched with
// inherited pipe ends).
func DialPipe(readFd, writeFd int, opts ...endpoint.Option) (*endpoint.Endpoint, error) {
	ep, err := endpoint.NewPipeEndpoint(readFd, writeFd, opts...)
	if err != nil {
		return nil, err
	}
	ep.Start()
	return ep, nil
}
