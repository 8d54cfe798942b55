// Package authn carries the authenticated session identity through a request
// context and defines the contract the HTTP layer uses to resolve opaque
// session tokens.
package authn

import "context"

type contextKey struct{}

// Info describes the session resolved from an opaque session token.
type Info struct {
	UserID    int64
	SessionID int64
	Role      string
}

// Authenticator resolves an opaque session token into the session identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Info, error)
}

// SetAuth stores the resolved session identity in the context.
func SetAuth(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// GetAuth returns the session identity from the context, or nil when the
// request was not authenticated.
func GetAuth(ctx context.Context) *Info {
	if info, ok := ctx.Value(contextKey{}).(*Info); ok {
		return info
	}
	return nil
}
