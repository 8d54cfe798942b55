package entity

import "time"

type User struct {
	ID           int64
	Phone        string
	Email        string
	Role         Role
	Status       UserStatus
	PasswordHash string
	CreatedAt    time.Time
}

type NewUser struct {
	ID     int64
	Phone  string
	Email  string
	Role   Role
	Status UserStatus
}

type Challenge struct {
	ID             int64
	Identifier     string
	IdentifierKind IdentifierKind
	HashedCode     string
	AttemptCount   int32
	LastAttemptAt  *time.Time
	Used           bool
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

type Session struct {
	ID               int64
	UserID           int64
	SessionTokenHash string
	RefreshTokenHash string
	SessionExpiresAt time.Time
	RefreshExpiresAt time.Time
	Active           bool
	DeviceInfo       string
	IPAddress        string
	CreatedAt        time.Time
}

// ---- //

// VerifiedIdentifier is the principal proven by a completed challenge.
type VerifiedIdentifier struct {
	Identifier     string
	IdentifierKind IdentifierKind
}

// SessionInfo is the read-only projection of an active session, no secrets.
type SessionInfo struct {
	DeviceInfo string
	IPAddress  string
	CreatedAt  time.Time
}
