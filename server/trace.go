package server

import (
	"log"

	"github.com/imdario/mergo"
)

// Trace defines a structure for handling diagnostic events raised by a
// Server, in the style of netconf/server/ssh/trace.go's hook-set.
type Trace struct {
	// Listened is called once Listen's bind attempt completes.
	Listened func(path string, err error)

	// Accepted is called after each Accept call completes.
	Accepted func(err error)

	// ConnectionAdded is called when a peer reaches Authorized.
	ConnectionAdded func(identifier string)

	// ConnectionRemoved is called when a peer disconnects.
	ConnectionRemoved func(identifier string)

	// AuthorizationFailed is called when the authority denies a peer.
	AuthorizationFailed func()
}

// DefaultLoggingTrace logs lifecycle events and errors.
var DefaultLoggingTrace = &Trace{
	Listened: func(path string, err error) {
		if err != nil {
			log.Printf("server: listen path:%s status:%v\n", path, err)
		} else {
			log.Printf("server: listening path:%s\n", path)
		}
	},
	Accepted: func(err error) {
		if err != nil {
			log.Printf("server: accept status:%v\n", err)
		}
	},
	ConnectionAdded: func(identifier string) {
		log.Printf("server: connection added id:%s\n", identifier)
	},
	ConnectionRemoved: func(identifier string) {
		log.Printf("server: connection removed id:%s\n", identifier)
	},
	AuthorizationFailed: func() {
		log.Printf("server: authorization failed\n")
	},
}

// NoOpTrace discards every event; it is the Server default.
var NoOpTrace = &Trace{
	Listened:            func(path string, err error) {},
	Accepted:            func(err error) {},
	ConnectionAdded:     func(identifier string) {},
	ConnectionRemoved:   func(identifier string) {},
	AuthorizationFailed: func() {},
}

// mergeTrace returns a copy of t with every nil hook filled in from
// NoOpTrace, via github.com/imdario/mergo, so WithServerTrace callers
// only need to set the hooks they care about.
func mergeTrace(t *Trace) *Trace {
	if t == nil {
		return NoOpTrace
	}
	merged := *t
	_ = mergo.Merge(&merged, NoOpTrace)
	return &merged
}
