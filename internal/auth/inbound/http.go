package inbound

import (
	"context"

	"github.com/danwahyudi/authgate/internal/auth/usecase"
	"github.com/danwahyudi/authgate/internal/pkg/router"
)

type uc interface {
	RequestChallenge(ctx context.Context, in usecase.RequestChallengeInput) (*usecase.RequestChallengeOutput, error)
	RequestAdminChallenge(ctx context.Context, in usecase.RequestAdminChallengeInput) (*usecase.RequestAdminChallengeOutput, error)
	CompleteChallenge(ctx context.Context, in usecase.CompleteChallengeInput) (*usecase.CompleteChallengeOutput, error)

	RefreshToken(ctx context.Context, in usecase.RefreshTokenInput) (*usecase.RefreshTokenOutput, error)
	Logout(ctx context.Context, in usecase.LogoutInput) error
	ListSessions(ctx context.Context, in usecase.ListSessionsInput) (*usecase.ListSessionsOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Challenge lifecycle
	r.POST("/api/v1/auth/challenge", end.RequestChallenge)
	r.POST("/api/v1/auth/challenge/admin", end.RequestAdminChallenge)
	r.POST("/api/v1/auth/verify", end.CompleteChallenge)

	// Session lifecycle
	r.POST("/api/v1/auth/refresh", end.RefreshToken)
	r.POST("/api/v1/auth/logout", end.Logout)        // need authenticated
	r.GET("/api/v1/auth/sessions", end.ListSessions) // need authenticated
}
