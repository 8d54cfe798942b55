package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danwahyudi/authgate/internal/auth/challenge"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
)

type RequestAdminChallengeInput struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
}

type RequestAdminChallengeOutput struct {
	ContextID string
}

// RequestAdminChallenge starts the administrative flow. The password is a
// mandatory first factor: no challenge is issued, let alone persisted, until
// the account exists, matches the password, is unlocked, and holds a
// privileged role.
func (s *Usecase) RequestAdminChallenge(ctx context.Context, in RequestAdminChallengeInput) (*RequestAdminChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestAdminChallenge")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	identifier, kind, err := s.normalizeIdentifier(in.Identifier)
	if err != nil {
		return nil, err
	}

	user, err := s.repoDB.GetUserByIdentifier(ctx, kind, identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "admin flow for unknown identity", "kind", kind.String())
		return nil, goerror.NewBusiness("account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by identifier", "kind", kind.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.bcrypt.Verify(user.PasswordHash, in.Password) {
		slog.WarnContext(ctx, "admin flow password mismatch", "user_id", user.ID)
		return nil, goerror.NewBusiness("invalid credentials", goerror.CodeForbidden)
	}

	if err := s.ensureUserStatusAllowed(ctx, user); err != nil {
		return nil, err
	}

	if !user.Role.IsPrivileged() {
		slog.WarnContext(ctx, "admin flow for non-privileged account", "user_id", user.ID)
		return nil, goerror.NewBusiness("account not allowed", goerror.CodeForbidden)
	}

	contextID, err := s.challenge.Issue(ctx, identifier, kind)
	if errors.Is(err, challenge.ErrDelivery) {
		return nil, goerror.NewBusinessWrap(err, "could not deliver verification code", goerror.CodeInternal)
	}
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	return &RequestAdminChallengeOutput{ContextID: contextID}, nil
}
