package authority

import (
	"sync"

	"github.com/seanpm2001/jsonstream/jsonvalue"
)

// UIDRangeAuthority is a direct port of jsonuidrangeauthority.h's
// minimum/maximum UID range: a peer is authorized iff its effective UID
// falls within [minimum, maximum] inclusive. Like UIDAuthority, the
// decision is made entirely at connect time.
type UIDRangeAuthority struct {
	mu      sync.RWMutex
	minimum uint32
	maximum uint32
}

// NewUIDRangeAuthority creates an authority admitting UIDs in
// [minimum, maximum] inclusive.
func NewUIDRangeAuthority(minimum, maximum uint32) *UIDRangeAuthority {
	return &UIDRangeAuthority{minimum: minimum, maximum: maximum}
}

// Minimum returns the lower bound of the admitted UID range.
func (a *UIDRangeAuthority) Minimum() uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.minimum
}

// SetMinimum sets the lower bound of the admitted UID range.
func (a *UIDRangeAuthority) SetMinimum(minimum uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.minimum = minimum
}

// Maximum returns the upper bound of the admitted UID range.
func (a *UIDRangeAuthority) Maximum() uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.maximum
}

// SetMaximum sets the upper bound of the admitted UID range.
func (a *UIDRangeAuthority) SetMaximum(maximum uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maximum = maximum
}

// ClientConnected authorizes immediately if the peer's UID falls within
// the configured range.
func (a *UIDRangeAuthority) ClientConnected(p Peer) AuthorizationRecord {
	uid, ok := p.UID()
	if !ok {
		return Deny()
	}

	a.mu.RLock()
	inRange := uid >= a.minimum && uid <= a.maximum
	a.mu.RUnlock()

	if !inRange {
		return Deny()
	}
	return AuthorizationRecord{Outcome: Authorized, Identifier: uidIdentifier(uid)}
}

// MessageReceived is never consulted; see UIDAuthority.MessageReceived.
func (a *UIDRangeAuthority) MessageReceived(Peer, jsonvalue.Object) AuthorizationRecord {
	return AuthorizationRecord{Outcome: Authorized}
}
