package hash

// Hash is the one-way hashing contract used for codes, tokens, and passwords.
type Hash interface {
	// Hash returns the hashed form of the plaintext.
	Hash(plaintext string) ([]byte, error)
	// Verify reports whether plaintext matches the stored hashed value.
	Verify(hashed, plaintext string) bool
}
