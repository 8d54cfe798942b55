package usecase

import (
	"context"
	"log/slog"

	"github.com/danwahyudi/authgate/internal/pkg/goerror"
)

type LogoutInput struct {
	SessionToken string `validate:"required"`
}

// Logout terminates the session behind the token. An unknown or already
// terminated session is a silent success.
func (s *Usecase) Logout(ctx context.Context, in LogoutInput) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.session.Logout(ctx, in.SessionToken); err != nil {
		slog.ErrorContext(ctx, "failed to logout session", "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
