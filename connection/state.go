package connection

// State is a connection's position in the handshake state machine of
// spec §4.3.
type State int

const (
	// WaitingForAuthentication is the initial state: inbound messages are
	// routed to the authority, not the application; outbound messages are
	// queued rather than sent.
	WaitingForAuthentication State = iota
	// Authorized is the steady state: inbound messages reach the
	// application and outbound messages go straight to the endpoint.
	Authorized
	// Closed is terminal: the endpoint has been torn down, by the
	// authority denying the peer or by a transport failure.
	Closed
)

func (s State) String() string {
	switch s {
	case WaitingForAuthentication:
		return "WaitingForAuthentication"
	case Authorized:
		return "Authorized"
	case Closed:
		return "Closed"
	default:
		return "State(?)"
	}
}
