package uid

import (
	"crypto/rand"
	"encoding/base64"
)

const opaqueTokenBytes = 32

// OpaqueToken generates unguessable string tokens for sessions, refresh
// tokens, and challenge contexts: 32 random bytes, base64url without padding
// (43 characters on the wire).
type OpaqueToken struct{}

// NewOpaqueToken returns an opaque token generator.
func NewOpaqueToken() *OpaqueToken {
	return &OpaqueToken{}
}

// Generate returns a fresh random token.
func (o *OpaqueToken) Generate() string {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process cannot mint secrets at all.
		panic("uid: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
