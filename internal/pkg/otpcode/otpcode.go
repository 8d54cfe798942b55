package otpcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Generator is the contract for producing one-time numeric codes.
type Generator interface {
	// Generate returns a fresh code of the configured length.
	Generate() (string, error)
}

// Numeric produces uniformly random decimal codes of a fixed length.
type Numeric struct {
	length int
	max    *big.Int
}

// NewNumeric constructs a generator for codes of the given digit length.
// Lengths outside 4..10 fall back to 6, the common OTP size.
func NewNumeric(length int) *Numeric {
	if length < 4 || length > 10 {
		length = 6
	}

	max := big.NewInt(10)
	max.Exp(max, big.NewInt(int64(length)), nil)

	return &Numeric{length: length, max: max}
}

// Generate returns a zero-padded random code, e.g. "042913" for length 6.
//
// crypto/rand.Int is uniform over [0, 10^length), so every code is equally
// likely, leading zeros included.
func (n *Numeric) Generate() (string, error) {
	v, err := rand.Int(rand.Reader, n.max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", n.length, v), nil
}
