package hash

import (
	"testing"
)

func TestHMACSHA256(t *testing.T) {

	t.Run("Deterministic", func(t *testing.T) {

		// Arrange
		h := NewHMACSHA256("unit-test-secret")

		// Act
		first, err1 := h.Hash("482913")
		second, err2 := h.Hash("482913")

		// Assert
		if err1 != nil || err2 != nil {
			t.Fatalf("hash returned error: %v %v", err1, err2)
		}
		if string(first) != string(second) {
			t.Fatalf("expected identical hashes for identical input")
		}
	})

	t.Run("NeverEqualsPlaintext", func(t *testing.T) {

		// Arrange
		h := NewHMACSHA256("unit-test-secret")

		// Act
		sum, _ := h.Hash("482913")

		// Assert
		if string(sum) == "482913" {
			t.Fatalf("stored hash must not equal the plaintext")
		}
	})

	t.Run("Verify", func(t *testing.T) {

		// Arrange
		h := NewHMACSHA256("unit-test-secret")
		sum, _ := h.Hash("482913")

		// Assert
		if !h.Verify(string(sum), "482913") {
			t.Fatalf("expected verify to succeed for matching plaintext")
		}
		if h.Verify(string(sum), "482914") {
			t.Fatalf("expected verify to fail for different plaintext")
		}
	})

	t.Run("DifferentSecretsDiffer", func(t *testing.T) {

		// Arrange
		a := NewHMACSHA256("secret-a")
		b := NewHMACSHA256("secret-b")

		// Act
		sumA, _ := a.Hash("482913")
		sumB, _ := b.Hash("482913")

		// Assert
		if string(sumA) == string(sumB) {
			t.Fatalf("expected different keys to produce different hashes")
		}
	})
}

func TestBcrypt(t *testing.T) {

	t.Run("HashAndVerify", func(t *testing.T) {

		// Arrange
		h := NewBcrypt(4, "pepper")

		// Act
		sum, err := h.Hash("s3cret-password")

		// Assert
		if err != nil {
			t.Fatalf("hash returned error: %v", err)
		}
		if string(sum) == "s3cret-password" {
			t.Fatalf("stored hash must not equal the plaintext")
		}
		if !h.Verify(string(sum), "s3cret-password") {
			t.Fatalf("expected verify to succeed")
		}
		if h.Verify(string(sum), "wrong-password") {
			t.Fatalf("expected verify to fail for wrong password")
		}
	})
}
