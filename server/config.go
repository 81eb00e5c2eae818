package server

// Config holds server tunables, plain-struct-with-defaults in the style
// of netconf.ClientConfig (netconf/config.go): unexported fields, a
// package-level default, no builder ceremony beyond the functional
// Option wrappers that set them.
type Config struct {
	// handshakeTimeoutSecs bounds how long a Connection may sit in
	// WaitingForAuthentication before the server gives up on it. Zero
	// means no timeout, matching spec §5's "no per-operation timeout for
	// event-driven reads and writes" outside the explicit synchronous
	// drain.
	handshakeTimeoutSecs int

	// readChunkSize overrides the size of a single non-blocking read per
	// accepted connection (spec §4.2). Zero keeps the endpoint default.
	readChunkSize int

	// writeHighWaterMark, if non-zero, makes each accepted connection's
	// endpoint fire its Trace.HighWaterMark hook once its outbound queue
	// crosses this many bytes - observational only, per spec §5's "no
	// flow control beyond OS socket buffers".
	writeHighWaterMark int
}

var defaultConfig = &Config{
	handshakeTimeoutSecs: 0,
	readChunkSize:        0,
	writeHighWaterMark:   0,
}

// NewConfig builds a Config with the given tunables. A zero value for
// any field keeps the corresponding built-in default.
func NewConfig(handshakeTimeoutSecs, readChunkSize, writeHighWaterMark int) *Config {
	return &Config{
		handshakeTimeoutSecs: handshakeTimeoutSecs,
		readChunkSize:        readChunkSize,
		writeHighWaterMark:   writeHighWaterMark,
	}
}
