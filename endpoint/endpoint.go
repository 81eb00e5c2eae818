// Package endpoint wraps a bidirectional byte channel (a Unix-domain
// socket, or a pair of pipe descriptors) around one frame decoder and one
// outbound byte queue, per spec §4.2.
//
// The spec models this component as single-threaded and driven by an I/O
// readiness notifier; idiomatic Go has no equivalent to a manual
// event-loop notifier (see SPEC_FULL.md §6's REDESIGN FLAG), so this
// implementation uses one reader goroutine and one writer goroutine per
// Endpoint instead, communicating through a mutex-guarded outbound queue.
// Go's own runtime network poller plays the readiness-notifier role
// underneath a blocking Read/Write call on a non-blocking-capable
// descriptor, which is the same mechanism the spec's notifier describes,
// just hidden a layer down.
package endpoint

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/seanpm2001/jsonstream/internal/framecodec"
	"github.com/seanpm2001/jsonstream/jsonvalue"
)

// Kind identifies the class of fatal error an Endpoint can surface,
// mirroring spec §7's error kinds.
type Kind int

const (
	// ReadAtEnd means the read side reached end of stream.
	ReadAtEnd Kind = iota
	// ReadFailed means a read returned a non-retryable error.
	ReadFailed
	// WriteAtEnd means the write side reached end of stream.
	WriteAtEnd
	// WriteFailed means a write returned a non-retryable error.
	WriteFailed
	// MalformedFrame means the text scanner hit unbalanced braces.
	MalformedFrame
	// TruncatedFrame means a length-prefixed frame wasn't completed at EOF.
	TruncatedFrame
)

func (k Kind) String() string {
	switch k {
	case ReadAtEnd:
		return "ReadAtEnd"
	case ReadFailed:
		return "ReadFailed"
	case WriteAtEnd:
		return "WriteAtEnd"
	case WriteFailed:
		return "WriteFailed"
	case MalformedFrame:
		return "MalformedFrame"
	case TruncatedFrame:
		return "TruncatedFrame"
	default:
		return "Kind(?)"
	}
}

// defaultReadChunkSize bounds a single non-blocking read, per spec §4.2.
const defaultReadChunkSize = 1024

// Endpoint is a stream endpoint: one inbound FrameBuffer (held by its
// Decoder), one outbound byte queue, and the goroutines driving them.
type Endpoint struct {
	r io.Reader
	w io.Writer
	c io.Closer

	dec *framecodec.Decoder
	enc *framecodec.Encoder

	trace *Trace

	onMessage      func(jsonvalue.Object)
	onError        func(Kind, error)
	onAboutToClose func()

	readChunkSize  int
	writeHighWater int
	overHighWater  bool

	outMu sync.Mutex
	out   []byte

	outReady chan struct{}

	drainMu    sync.Mutex
	delivering bool

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures an Endpoint at construction time.
type Option func(*Endpoint)

// WithMessageHandler registers the callback invoked with each decoded
// object, in wire order, once per frame.
func WithMessageHandler(f func(jsonvalue.Object)) Option {
	return func(e *Endpoint) { e.onMessage = f }
}

// WithErrorHandler registers the callback invoked exactly once when the
// endpoint hits a fatal error and closes.
func WithErrorHandler(f func(Kind, error)) Option {
	return func(e *Endpoint) { e.onError = f }
}

// WithAboutToCloseHandler registers a callback invoked just before the
// underlying transport is closed.
func WithAboutToCloseHandler(f func()) Option {
	return func(e *Endpoint) { e.onAboutToClose = f }
}

// WithTrace attaches diagnostic hooks (see Trace). A caller may supply a
// Trace with only some hooks set; the rest fall back to no-ops.
func WithTrace(t *Trace) Option {
	return func(e *Endpoint) { e.trace = mergeTrace(t) }
}

// WithCodec overrides the jsonvalue.Codec used for both directions.
func WithCodec(codec jsonvalue.Codec) Option {
	return func(e *Endpoint) {
		e.dec = framecodec.NewDecoder(framecodec.WithCodec(codec))
		e.enc = framecodec.NewEncoder(framecodec.Undefined, framecodec.WithEncoderCodec(codec))
	}
}

// WithOutboundFormat fixes the outbound encoding instead of letting the
// first Send pick the default (CompactBinary).
func WithOutboundFormat(format framecodec.Format) Option {
	return func(e *Endpoint) { e.enc.SetFormat(format) }
}

// WithReadChunkSize overrides the size of a single non-blocking read
// (spec §4.2 bounds this at 1 KiB; a caller may raise or lower it).
func WithReadChunkSize(n int) Option {
	return func(e *Endpoint) {
		if n > 0 {
			e.readChunkSize = n
		}
	}
}

// WithWriteHighWaterMark sets the outbound queue size above which the
// endpoint's Trace.HighWaterMark hook fires. Spec §5 allows no flow
// control beyond what the OS socket buffer already applies, so crossing
// this mark is purely observational — it never blocks or drops Send
// calls, it just lets an application notice a peer that has stopped
// reading before the OS buffer itself pushes back.
func WithWriteHighWaterMark(n int) Option {
	return func(e *Endpoint) { e.writeHighWater = n }
}

// New wraps rwc (a socket, or anything sharing one descriptor for both
// directions) as a stream endpoint.
func New(rwc io.ReadWriteCloser, opts ...Option) *Endpoint {
	return newEndpoint(rwc, rwc, rwc, opts...)
}

func newEndpoint(r io.Reader, w io.Writer, c io.Closer, opts ...Option) *Endpoint {
	e := &Endpoint{
		r:             r,
		w:             w,
		c:             c,
		dec:           framecodec.NewDecoder(),
		enc:           framecodec.NewEncoder(framecodec.Undefined),
		trace:         NoOpTrace,
		readChunkSize: defaultReadChunkSize,
		outReady:      make(chan struct{}, 1),
		closed:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.trace == nil {
		e.trace = NoOpTrace
	}
	return e
}

// SetHandlers attaches the message/error/about-to-close callbacks after
// construction. Intended for callers (such as connection.Connection)
// that must build the Endpoint before the object whose methods the
// handlers close over exists; call before Start.
func (e *Endpoint) SetHandlers(onMessage func(jsonvalue.Object), onError func(Kind, error), onAboutToClose func()) {
	e.onMessage = onMessage
	e.onError = onError
	e.onAboutToClose = onAboutToClose
}

// Start launches the endpoint's reader and writer goroutines. It must be
// called once; Send may be called before Start; buffered bytes will be
// flushed once the writer goroutine is running.
func (e *Endpoint) Start() {
	go e.readLoop()
	go e.writeLoop()
}

// Send encodes obj in the endpoint's current outbound format and enqueues
// the bytes for writing, enabling write-readiness (spec §4.2's "Write
// path"). It does not block waiting for the bytes to be transmitted; use
// WaitForBytesWritten for that.
func (e *Endpoint) Send(obj jsonvalue.Object) error {
	wire, err := e.enc.Encode(obj)
	if err != nil {
		return errors.Wrap(err, "endpoint: encode")
	}

	e.outMu.Lock()
	e.out = append(e.out, wire...)
	queued := len(e.out)
	e.outMu.Unlock()

	e.checkHighWaterMark(queued)

	select {
	case e.outReady <- struct{}{}:
	default:
	}
	return nil
}

// checkHighWaterMark fires Trace.HighWaterMark on the edge transitions
// across writeHighWater, in either direction, so a caller watching it
// sees one notification per crossing rather than one per Send while the
// queue sits above the mark.
func (e *Endpoint) checkHighWaterMark(queued int) {
	if e.writeHighWater <= 0 {
		return
	}
	e.outMu.Lock()
	over := queued >= e.writeHighWater
	wasOver := e.overHighWater
	e.overHighWater = over
	e.outMu.Unlock()

	if over != wasOver {
		e.trace.HighWaterMark(queued, over)
	}
}

// WaitForBytesWritten blocks until the outbound queue empties, the
// endpoint closes, or timeout elapses, whichever comes first. It returns
// true iff the queue is empty at exit (spec §4.2's synchronous drain).
func (e *Endpoint) WaitForBytesWritten(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	const pollInterval = 2 * time.Millisecond

	for {
		e.outMu.Lock()
		empty := len(e.out) == 0
		e.outMu.Unlock()
		if empty {
			return true
		}

		select {
		case <-e.closed:
			e.outMu.Lock()
			empty = len(e.out) == 0
			e.outMu.Unlock()
			return empty
		default:
		}

		if timeout > 0 && time.Now().After(deadline) {
			e.outMu.Lock()
			empty = len(e.out) == 0
			e.outMu.Unlock()
			return empty
		}

		time.Sleep(pollInterval)
	}
}

// Close closes the underlying transport. Safe to call more than once.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		if e.onAboutToClose != nil {
			e.onAboutToClose()
		}
		close(e.closed)
		err = e.c.Close()
	})
	return err
}

func (e *Endpoint) readLoop() {
	buf := make([]byte, e.readChunkSize)
	for {
		n, err := e.r.Read(buf)
		e.trace.Read(n, err)
		if err != nil || n <= 0 {
			if err == nil || err == io.EOF {
				e.failAtEnd()
			} else {
				e.fail(ReadFailed, err)
			}
			return
		}

		e.dec.Append(buf[:n])
		if stop := e.drain(); stop {
			return
		}
	}
}

// drain delivers every currently-available frame to the message handler.
// It is guarded against re-entrancy: if a message handler (running inside
// this call) triggers another call to drain, the nested call returns
// immediately rather than racing the outer one — remaining frames are
// still delivered by the outer loop, matching spec §4.2/§5.
func (e *Endpoint) drain() (fatal bool) {
	e.drainMu.Lock()
	if e.delivering {
		e.drainMu.Unlock()
		return false
	}
	e.delivering = true
	e.drainMu.Unlock()

	defer func() {
		e.drainMu.Lock()
		e.delivering = false
		e.drainMu.Unlock()
	}()

	for {
		avail, err := e.dec.MessageAvailable()
		if err != nil {
			e.fail(MalformedFrame, err)
			return true
		}
		if !avail {
			return false
		}

		obj, err := e.dec.ReadMessage()
		if err != nil {
			// DecodeFailure: the frame is already consumed and the parser
			// already reset; report and keep draining (spec §4.1.5/§7).
			e.trace.DecodeFailure(err)
			continue
		}
		if e.onMessage != nil {
			e.onMessage(obj)
		}
	}
}

func (e *Endpoint) writeLoop() {
	for {
		select {
		case <-e.closed:
			return
		case <-e.outReady:
		}

		for {
			e.outMu.Lock()
			if len(e.out) == 0 {
				e.outMu.Unlock()
				break
			}
			chunk := e.out
			e.outMu.Unlock()

			n, err := e.w.Write(chunk)
			e.trace.Write(n, err)
			if err != nil || n <= 0 {
				if err == nil {
					e.fail(WriteAtEnd, io.ErrShortWrite)
				} else {
					e.fail(WriteFailed, err)
				}
				return
			}

			e.outMu.Lock()
			e.out = e.out[n:]
			remaining := len(e.out)
			e.outMu.Unlock()
			e.checkHighWaterMark(remaining)
			if remaining == 0 {
				break
			}
		}
	}
}

// failAtEnd handles a 0/io.EOF read. Per spec §4.1.5/§7, an EOF arriving
// mid-frame is not a plain ReadAtEnd: a text framing left with unbalanced
// braces is MalformedFrame, and a length-prefixed framing left short of
// its declared length is TruncatedFrame. d.AtEnd() must be consulted
// before fail clears the decoder's buffered state.
func (e *Endpoint) failAtEnd() {
	if err := e.dec.AtEnd(); err != nil {
		switch errors.Cause(err) {
		case framecodec.ErrTruncatedFrame:
			e.fail(TruncatedFrame, err)
		case framecodec.ErrMalformedFrame:
			e.fail(MalformedFrame, err)
		default:
			e.fail(ReadAtEnd, io.EOF)
		}
		return
	}
	e.fail(ReadAtEnd, io.EOF)
}

func (e *Endpoint) fail(kind Kind, err error) {
	e.closeOnce.Do(func() {
		e.trace.Error(kind, err)
		if e.onAboutToClose != nil {
			e.onAboutToClose()
		}
		e.dec.Clear()
		close(e.closed)
		_ = e.c.Close()
		if e.onError != nil {
			e.onError(kind, err)
		}
	})
}

// Format returns the detected inbound format, Undefined until enough
// bytes have arrived to detect it.
func (e *Endpoint) Format() framecodec.Format { return e.dec.Format() }

// OutboundFormat returns the format Send will use (or has used).
func (e *Endpoint) OutboundFormat() framecodec.Format { return e.enc.Format() }
