package connection

import (
	"github.com/imdario/mergo"

	"github.com/seanpm2001/jsonstream/authority"
	"github.com/seanpm2001/jsonstream/endpoint"
)

// Trace defines a structure for handling diagnostic events raised by a
// Connection's handshake state machine, in the style of
// netconf/server/ssh/trace.go's hook-set.
type Trace struct {
	// ClientConnected is called once, after the authority's
	// ClientConnected has produced its AuthorizationRecord.
	ClientConnected func(identifier string, rec authority.AuthorizationRecord)

	// MessageReceived is called for each pre-auth message routed to the
	// authority, with the record it returned.
	MessageReceived func(identifier string, rec authority.AuthorizationRecord)

	// Disconnected is called once, when the underlying endpoint fails.
	Disconnected func(identifier string, kind endpoint.Kind, err error)

	// AboutToClose is called just before the underlying transport closes.
	AboutToClose func(identifier string)
}

// NoOpTrace discards every event; it is the Connection default.
var NoOpTrace = &Trace{
	ClientConnected: func(string, authority.AuthorizationRecord) {},
	MessageReceived: func(string, authority.AuthorizationRecord) {},
	Disconnected:    func(string, endpoint.Kind, error) {},
	AboutToClose:    func(string) {},
}

// mergeTrace returns a copy of t with every nil hook filled in from
// NoOpTrace, via github.com/imdario/mergo - the same partial-override-
// over-a-no-op-default shape the teacher's SSH trace uses (there, merged
// at context-read time; here, merged once at construction since a
// Connection's trace doesn't travel through a context.Context). A caller
// supplying only, say, Disconnected gets everything else as a no-op
// without having to restate it.
func mergeTrace(t *Trace) *Trace {
	if t == nil {
		return NoOpTrace
	}
	merged := *t
	_ = mergo.Merge(&merged, NoOpTrace)
	return &merged
}
