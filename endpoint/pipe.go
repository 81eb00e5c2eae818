package endpoint

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// noopCloser backs a pipe Endpoint: per spec §6 the endpoint never closes
// descriptors it did not open itself, the owner does.
type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// NewPipeEndpoint wraps a pair of raw, externally-owned file descriptors
// (read, write) as an Endpoint — the paired-pipe transport of spec §6,
// as opposed to the single-descriptor socket transport used by New.
//
// Both descriptors are put into non-blocking mode, matching the original
// jsonpipe.cpp's use of non-blocking pipe fds with a readiness notifier;
// here the Go runtime's own poller plays that role once the descriptors
// are wrapped in *os.File. This Endpoint never closes readFd or writeFd,
// including when it fails or Close is called — ownership and closing
// remain with the caller.
func NewPipeEndpoint(readFd, writeFd int, opts ...Option) (*Endpoint, error) {
	if err := unix.SetNonblock(readFd, true); err != nil {
		return nil, errors.Wrap(err, "endpoint: set read descriptor non-blocking")
	}
	if err := unix.SetNonblock(writeFd, true); err != nil {
		return nil, errors.Wrap(err, "endpoint: set write descriptor non-blocking")
	}

	r := os.NewFile(uintptr(readFd), "jsonstream-pipe-r")
	w := os.NewFile(uintptr(writeFd), "jsonstream-pipe-w")
	// os.File normally closes its fd via a GC finalizer; since the caller
	// owns these descriptors, that finalizer must never fire.
	runtime.SetFinalizer(r, nil)
	runtime.SetFinalizer(w, nil)

	return newEndpoint(r, w, noopCloser{}, opts...), nil
}
