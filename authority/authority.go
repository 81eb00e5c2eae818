// Package authority implements the pluggable peer-authorization policies
// named in spec §4.4: a two-method capability interface plus the
// concrete authorities spec.md points at "elsewhere" —
// original_source/src/jsonuidrangeauthority.h, whose implementation the
// distillation dropped and SPEC_FULL.md §5.5 restores.
package authority

import "github.com/seanpm2001/jsonstream/jsonvalue"

// Outcome is the decision an Authority returns for a connect or a
// pre-authorization message.
type Outcome int

const (
	// Authorized admits the connection/peer; Connection transitions to
	// Authorized and flushes its queued outbound messages.
	Authorized Outcome = iota
	// NotAuthorized leaves the connection in WaitingForAuthentication,
	// awaiting a further message (e.g. a handshake response).
	NotAuthorized
	// Denied closes the connection immediately.
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "Authorized"
	case NotAuthorized:
		return "NotAuthorized"
	case Denied:
		return "Denied"
	default:
		return "Outcome(?)"
	}
}

// AuthorizationRecord is the result of a ClientConnected or
// MessageReceived call, per spec §4.1's data model.
type AuthorizationRecord struct {
	Outcome Outcome
	// Identifier, if non-empty, overrides the server-assigned connection
	// identifier (e.g. an authority that knows the peer's username may
	// want connections addressed by that name instead of a random uuid).
	Identifier string
	// Reply, if non-nil, is sent to the peer before any state transition
	// takes effect (a challenge object, or an acknowledgement).
	Reply jsonvalue.Object
}

// Deny is a convenience constructor for the common deny-with-no-reply case.
func Deny() AuthorizationRecord { return AuthorizationRecord{Outcome: Denied} }

// Authority is the external collaborator contract of spec §4.4: anything
// exposing these two methods can gate connections and pre-auth messages.
// Concrete authorities are not required to embed or subclass anything.
type Authority interface {
	// ClientConnected is invoked once, synchronously, when a Connection is
	// constructed around a newly-accepted peer.
	ClientConnected(peer Peer) AuthorizationRecord
	// MessageReceived is invoked for each inbound message while the
	// connection is in WaitingForAuthentication.
	MessageReceived(peer Peer, msg jsonvalue.Object) AuthorizationRecord
}
