// Package uid provides identifier generators used across the application.
package uid

// NumberID generates int64 identifiers for database rows.
type NumberID interface {
	Generate() int64
}

// StringID generates opaque string identifiers.
type StringID interface {
	Generate() string
}
