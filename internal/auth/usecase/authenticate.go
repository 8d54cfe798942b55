package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danwahyudi/authgate/internal/auth/session"
	"github.com/danwahyudi/authgate/internal/pkg/authn"
)

// Authenticate resolves an opaque session token into the acting identity.
// It backs the HTTP authentication middleware.
func (s *Usecase) Authenticate(ctx context.Context, sessionToken string) (*authn.Info, error) {
	ctx, span := s.startSpan(ctx, "Authenticate")
	defer span.End()

	sess, err := s.session.Authenticate(ctx, sessionToken)
	if errors.Is(err, session.ErrUnauthorized) {
		return nil, err
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to authenticate session token", "error", err)
		return nil, err
	}

	user, err := s.repoDB.GetUserByID(ctx, sess.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", sess.UserID, "error", err)
		return nil, err
	}

	if user.Status.Locked() {
		slog.WarnContext(ctx, "locked account presented a live session", "user_id", user.ID)
		return nil, session.ErrUnauthorized
	}

	return &authn.Info{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Role:      user.Role.String(),
	}, nil
}
