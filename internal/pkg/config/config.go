package config

import (
	"io"
	"time"
)

// TimeConfig defines helpers for retrieving duration configuration values
// stored as plain integers in their respective unit.
type TimeConfig interface {
	// GetSecond retrieves the value for key as a duration in seconds.
	GetSecond(key string) time.Duration

	// GetMinute retrieves the value for key as a duration in minutes.
	GetMinute(key string) time.Duration

	// GetHour retrieves the value for key as a duration in hours.
	GetHour(key string) time.Duration

	// GetDay retrieves the value for key as a duration in days (24h).
	GetDay(key string) time.Duration
}

// Config defines a set of methods for retrieving configuration values of
// various types. Implementations handle retrieval and type conversion,
// returning zero values for missing or unconvertible keys.
type Config interface {
	io.Closer
	TimeConfig

	// GetBool retrieves the value for key as a bool.
	GetBool(key string) bool

	// GetString retrieves the value for key as a string.
	GetString(key string) string

	// GetInt retrieves the value for key as an int.
	GetInt(key string) int

	// GetInt32 retrieves the value for key as an int32.
	GetInt32(key string) int32

	// GetFloat64 retrieves the value for key as a float64.
	GetFloat64(key string) float64

	// GetArray retrieves the value for key as a slice of strings.
	// The value is stored with format <element1>,<element2>,...
	GetArray(key string) []string
}
