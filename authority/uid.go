package authority

import (
	"strconv"
	"sync"

	"github.com/seanpm2001/jsonstream/jsonvalue"
)

// uidIdentifier renders a peer UID as the connection identifier a
// UID-based authority assigns, matching the original JsonUIDRangeAuthority
// (and its plain allow-list cousin), which address connections by the
// peer's UID rather than a randomly-generated one.
func uidIdentifier(uid uint32) string {
	return strconv.FormatUint(uint64(uid), 10)
}

// UIDAuthority admits peers whose effective UID appears on an allow-list,
// decided entirely at connect time. This is the plain allow-list cousin
// spec.md §4.4 names first ("process-UID allowlist"); UIDRangeAuthority
// (uidrange.go) is the range-based sibling ported from
// jsonuidrangeauthority.h.
type UIDAuthority struct {
	mu      sync.RWMutex
	allowed map[uint32]struct{}
}

// NewUIDAuthority creates an authority admitting exactly the given UIDs.
func NewUIDAuthority(uids ...uint32) *UIDAuthority {
	allowed := make(map[uint32]struct{}, len(uids))
	for _, uid := range uids {
		allowed[uid] = struct{}{}
	}
	return &UIDAuthority{allowed: allowed}
}

// Allow adds uid to the allow-list.
func (a *UIDAuthority) Allow(uid uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allowed[uid] = struct{}{}
}

// Revoke removes uid from the allow-list.
func (a *UIDAuthority) Revoke(uid uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.allowed, uid)
}

// ClientConnected authorizes immediately if the peer's UID is allow-listed.
func (a *UIDAuthority) ClientConnected(p Peer) AuthorizationRecord {
	uid, ok := p.UID()
	if !ok {
		return Deny()
	}

	a.mu.RLock()
	_, allowed := a.allowed[uid]
	a.mu.RUnlock()

	if !allowed {
		return Deny()
	}
	return AuthorizationRecord{Outcome: Authorized, Identifier: uidIdentifier(uid)}
}

// MessageReceived is never consulted: a UID decision is final at connect
// time, so a UIDAuthority never leaves a connection in
// WaitingForAuthentication for this to be called in practice.
func (a *UIDAuthority) MessageReceived(Peer, jsonvalue.Object) AuthorizationRecord {
	return AuthorizationRecord{Outcome: Authorized}
}
