// Package otpcode generates the short numeric codes delivered to users during
// one-time-password challenges.
//
// Codes are uniform random digits from crypto/rand, not time-based: each code
// is bound to a persisted challenge record that carries its own expiry and
// attempt limit, so no clock synchronization with the user is involved.
package otpcode
