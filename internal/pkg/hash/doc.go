// Package hash provides helpers for hashing and verifying secrets.
//
// Two implementations cover the two needs of the auth core: HMAC-SHA256 is
// deterministic, so records can be looked up by the hash of an opaque token or
// one-time code; bcrypt is salted and slow, suited for passwords that are only
// ever verified against a known row. Stored values never equal the plaintext.
package hash
