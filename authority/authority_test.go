package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanpm2001/jsonstream/jsonvalue"
)

type fixedPeer struct {
	uid uint32
	ok  bool
}

func (p fixedPeer) UID() (uint32, bool) { return p.uid, p.ok }

func TestTokenAuthorityHandshake(t *testing.T) {
	auth, err := NewTokenAuthority("sesame")
	require.NoError(t, err)

	rec := auth.ClientConnected(NoPeerCredentials)
	assert.Equal(t, NotAuthorized, rec.Outcome)
	assert.Equal(t, jsonvalue.Object{"challenge": "authenticate"}, rec.Reply)

	denied := auth.MessageReceived(NoPeerCredentials, jsonvalue.Object{"token": "wrong"})
	assert.Equal(t, Denied, denied.Outcome)

	missing := auth.MessageReceived(NoPeerCredentials, jsonvalue.Object{})
	assert.Equal(t, Denied, missing.Outcome)

	ok := auth.MessageReceived(NoPeerCredentials, jsonvalue.Object{"token": "sesame"})
	assert.Equal(t, Authorized, ok.Outcome)
}

func TestUIDAuthorityAllowList(t *testing.T) {
	auth := NewUIDAuthority(1000, 1001)

	rec := auth.ClientConnected(fixedPeer{uid: 1000, ok: true})
	assert.Equal(t, Authorized, rec.Outcome)
	assert.Equal(t, "1000", rec.Identifier)

	assert.Equal(t, Authorized, auth.ClientConnected(fixedPeer{uid: 1000, ok: true}).Outcome)
	assert.Equal(t, Denied, auth.ClientConnected(fixedPeer{uid: 2000, ok: true}).Outcome)
	assert.Equal(t, Denied, auth.ClientConnected(fixedPeer{ok: false}).Outcome)

	auth.Revoke(1000)
	assert.Equal(t, Denied, auth.ClientConnected(fixedPeer{uid: 1000, ok: true}).Outcome)

	auth.Allow(2000)
	assert.Equal(t, Authorized, auth.ClientConnected(fixedPeer{uid: 2000, ok: true}).Outcome)
}

func TestUIDRangeAuthorityBounds(t *testing.T) {
	auth := NewUIDRangeAuthority(1000, 2000)

	rec := auth.ClientConnected(fixedPeer{uid: 1000, ok: true})
	assert.Equal(t, Authorized, rec.Outcome)
	assert.Equal(t, "1000", rec.Identifier)

	assert.Equal(t, Authorized, auth.ClientConnected(fixedPeer{uid: 1000, ok: true}).Outcome)
	assert.Equal(t, Authorized, auth.ClientConnected(fixedPeer{uid: 1500, ok: true}).Outcome)
	assert.Equal(t, Authorized, auth.ClientConnected(fixedPeer{uid: 2000, ok: true}).Outcome)
	assert.Equal(t, Denied, auth.ClientConnected(fixedPeer{uid: 999, ok: true}).Outcome)
	assert.Equal(t, Denied, auth.ClientConnected(fixedPeer{uid: 2001, ok: true}).Outcome)
	assert.Equal(t, Denied, auth.ClientConnected(fixedPeer{ok: false}).Outcome)

	auth.SetMaximum(3000)
	assert.Equal(t, Authorized, auth.ClientConnected(fixedPeer{uid: 2500, ok: true}).Outcome)
	assert.Equal(t, uint32(1000), auth.Minimum())
	assert.Equal(t, uint32(3000), auth.Maximum())
}
