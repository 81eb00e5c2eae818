package authority

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/seanpm2001/jsonstream/jsonvalue"
)

// TokenAuthority gates connections behind a single shared secret,
// presented by the peer in a "token" field of its first message. The
// secret is held only as a bcrypt hash, never in the clear, extending
// the teacher's use of golang.org/x/crypto beyond SSH transport to a
// second, independent credential-handling concern.
type TokenAuthority struct {
	hash []byte
}

// NewTokenAuthority hashes secret and returns an authority that accepts
// any peer subsequently presenting it.
func NewTokenAuthority(secret string) (*TokenAuthority, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "authority: hash token secret")
	}
	return &TokenAuthority{hash: hash}, nil
}

// ClientConnected always returns NotAuthorized with a challenge reply;
// every peer must complete the token handshake before admission.
func (a *TokenAuthority) ClientConnected(Peer) AuthorizationRecord {
	return AuthorizationRecord{
		Outcome: NotAuthorized,
		Reply:   jsonvalue.Object{"challenge": "authenticate"},
	}
}

// MessageReceived authorizes the peer if msg carries the matching token.
func (a *TokenAuthority) MessageReceived(_ Peer, msg jsonvalue.Object) AuthorizationRecord {
	token, _ := msg["token"].(string)
	if token == "" {
		return Deny()
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
		return Deny()
	}
	return AuthorizationRecord{Outcome: Authorized}
}
