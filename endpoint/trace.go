package endpoint

import (
	"log"

	"github.com/imdario/mergo"
)

// Trace defines a structure for handling diagnostic events raised while
// an Endpoint runs, in the style of the netconf server's connection
// trace hooks.
type Trace struct {
	// Read is called after every read, successful or not.
	Read func(n int, err error)

	// Write is called after every write, successful or not.
	Write func(n int, err error)

	// Error is called once, when the endpoint fails fatally and closes.
	Error func(kind Kind, err error)

	// DecodeFailure is called for each frame dropped by ErrDecodeFailure;
	// unlike Error this does not close the endpoint.
	DecodeFailure func(err error)

	// HighWaterMark is called each time the outbound queue crosses the
	// configured WithWriteHighWaterMark threshold, in either direction
	// (over=true going above it, over=false draining back below it).
	HighWaterMark func(queued int, over bool)
}

// DefaultLoggingTrace logs only the events that indicate trouble.
var DefaultLoggingTrace = &Trace{
	Read: func(n int, err error) {
		if err != nil {
			log.Printf("endpoint: read n:%d status:%v\n", n, err)
		}
	},
	Write: func(n int, err error) {
		if err != nil {
			log.Printf("endpoint: write n:%d status:%v\n", n, err)
		}
	},
	Error: func(kind Kind, err error) {
		log.Printf("endpoint: fatal kind:%v status:%v\n", kind, err)
	},
	DecodeFailure: func(err error) {
		log.Printf("endpoint: decode failure status:%v\n", err)
	},
	HighWaterMark: func(queued int, over bool) {
		if over {
			log.Printf("endpoint: outbound queue over high-water mark queued:%d\n", queued)
		}
	},
}

// DiagnosticTrace logs every event, including successes.
var DiagnosticTrace = &Trace{
	Read: func(n int, err error) {
		log.Printf("endpoint: read n:%d status:%v\n", n, err)
	},
	Write: func(n int, err error) {
		log.Printf("endpoint: write n:%d status:%v\n", n, err)
	},
	Error: func(kind Kind, err error) {
		log.Printf("endpoint: fatal kind:%v status:%v\n", kind, err)
	},
	DecodeFailure: func(err error) {
		log.Printf("endpoint: decode failure status:%v\n", err)
	},
	HighWaterMark: func(queued int, over bool) {
		log.Printf("endpoint: outbound queue high-water queued:%d over:%v\n", queued, over)
	},
}

// NoOpTrace discards every event; it is the Endpoint default.
var NoOpTrace = &Trace{
	Read:          func(n int, err error) {},
	Write:         func(n int, err error) {},
	Error:         func(kind Kind, err error) {},
	DecodeFailure: func(err error) {},
	HighWaterMark: func(queued int, over bool) {},
}

// mergeTrace returns a copy of t with every nil hook filled in from
// NoOpTrace, via github.com/imdario/mergo, so WithTrace callers only need
// to set the hooks they care about (the same partial-override-over-a-
// no-op-default shape as netconf/server/ssh/trace.go's ContextSshTrace,
// applied at construction time instead of at context-read time since an
// Endpoint's trace is fixed once built, not threaded through a
// context.Context).
func mergeTrace(t *Trace) *Trace {
	if t == nil {
		return NoOpTrace
	}
	merged := *t
	_ = mergo.Merge(&merged, NoOpTrace)
	return &merged
}
