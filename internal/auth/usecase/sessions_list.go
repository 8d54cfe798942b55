package usecase

import (
	"context"
	"log/slog"

	"github.com/danwahyudi/authgate/internal/auth/entity"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
)

type ListSessionsInput struct {
	UserID int64 `validate:"required"`
}

type ListSessionsOutput struct {
	Sessions []entity.SessionInfo
}

// ListSessions returns the given user's active sessions, secrets excluded.
// The caller supplies the acting user id explicitly; resolving it from the
// transport is the inbound layer's job.
func (s *Usecase) ListSessions(ctx context.Context, in ListSessionsInput) (*ListSessionsOutput, error) {
	ctx, span := s.startSpan(ctx, "ListSessions")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	sessions, err := s.session.ListActive(ctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list active sessions", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ListSessionsOutput{Sessions: sessions}, nil
}
