package entity

type IdentifierKind int16

const (
	IdentifierKindUnknown IdentifierKind = 0
	IdentifierKindPhone   IdentifierKind = 1
	IdentifierKindEmail   IdentifierKind = 2
)

func (ik IdentifierKind) String() string {
	switch ik {
	case IdentifierKindPhone:
		return "Phone"
	case IdentifierKindEmail:
		return "Email"
	default:
		return "Unknown"
	}
}

type Role int16

const (
	// RoleUnknown is mean role is not known / not set.
	RoleUnknown Role = 0

	// RoleUser is the default role for self-service signups.
	RoleUser Role = 1

	// RoleAdmin is a privileged operator account.
	RoleAdmin Role = 2

	// RoleSuperAdmin is the highest privileged account.
	RoleSuperAdmin Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "super-admin"
	default:
		return "unknown"
	}
}

// IsPrivileged reports whether the role may use the administrative flow.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type UserStatus int16

const (
	// UserStatusUnknown is mean status is not known / not set.
	UserStatusUnknown UserStatus = 0

	// UserStatusActive mean user is allowed to authenticate.
	UserStatusActive UserStatus = 1

	// UserStatusBanned mean user is blocked from authenticating (policy/abuse/etc).
	UserStatusBanned UserStatus = 2

	// UserStatusInactive mean user is not currently active (e.g., deactivated, closed).
	UserStatusInactive UserStatus = 3
)

func (us UserStatus) String() string {
	switch us {
	case UserStatusActive:
		return "Active"
	case UserStatusBanned:
		return "Banned"
	case UserStatusInactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

// Locked reports whether the account may not authenticate.
func (us UserStatus) Locked() bool {
	return us != UserStatusActive
}
