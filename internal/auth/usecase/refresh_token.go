package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danwahyudi/authgate/internal/auth/session"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
)

type RefreshTokenInput struct {
	RefreshToken string `validate:"required"`
	DeviceInfo   string
	IPAddress    string
}

type RefreshTokenOutput struct {
	SessionToken string
	RefreshToken string
	Role         string
}

// RefreshToken rotates a session from its refresh token and returns a fresh
// token pair for the same user.
func (s *Usecase) RefreshToken(ctx context.Context, in RefreshTokenInput) (*RefreshTokenOutput, error) {
	ctx, span := s.startSpan(ctx, "RefreshToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	pair, userID, err := s.session.Refresh(ctx, in.RefreshToken, in.DeviceInfo, in.IPAddress)
	if errors.Is(err, session.ErrUnauthorized) {
		return nil, goerror.NewBusinessWrap(err, "invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	user, err := s.repoDB.GetUserByID(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &RefreshTokenOutput{
		SessionToken: pair.SessionToken,
		RefreshToken: pair.RefreshToken,
		Role:         user.Role.String(),
	}, nil
}
