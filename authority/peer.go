package authority

import (
	"net"

	"golang.org/x/sys/unix"
)

// Peer describes what an Authority can learn about the process on the
// other end of a connection. UID-based authorities need the peer's
// effective UID; token-based ones don't look at it at all.
type Peer interface {
	// UID returns the peer's effective UID and whether the underlying
	// transport exposes one (only Unix-domain sockets do).
	UID() (uid uint32, ok bool)
}

type peer struct {
	uid uint32
	ok  bool
}

func (p peer) UID() (uint32, bool) { return p.uid, p.ok }

// NoPeerCredentials is the Peer value used for transports (paired pipe
// descriptors, net.Pipe in tests) that carry no kernel-level credentials.
var NoPeerCredentials Peer = peer{}

// PeerFromConn extracts SO_PEERCRED credentials from a Unix-domain
// socket connection, mirroring the original JsonAuthority subclasses'
// use of QLocalSocket's peer-credential accessors. Returns
// NoPeerCredentials for any other net.Conn implementation.
func PeerFromConn(conn net.Conn) Peer {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return NoPeerCredentials
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return NoPeerCredentials
	}

	var result peer
	err = raw.Control(func(fd uintptr) {
		ucred, cerr := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
		if cerr != nil {
			return
		}
		result = peer{uid: ucred.Uid, ok: true}
	})
	if err != nil {
		return NoPeerCredentials
	}
	return result
}
