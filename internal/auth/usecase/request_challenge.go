package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danwahyudi/authgate/internal/auth/challenge"
	"github.com/danwahyudi/authgate/internal/auth/entity"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
)

type RequestChallengeInput struct {
	Identifier string `validate:"required"`
}

type RequestChallengeOutput struct {
	ContextID string
}

// RequestChallenge starts the self-service flow. A known identity must be a
// plain, unlocked user; an unknown identifier proceeds anyway so first-time
// signups can complete at verification.
func (s *Usecase) RequestChallenge(ctx context.Context, in RequestChallengeInput) (*RequestChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestChallenge")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	identifier, kind, err := s.normalizeIdentifier(in.Identifier)
	if err != nil {
		return nil, err
	}

	user, err := s.repoDB.GetUserByIdentifier(ctx, kind, identifier)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by identifier", "kind", kind.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	if user != nil {
		if user.Role != entity.RoleUser {
			slog.WarnContext(ctx, "privileged account on self-service flow", "user_id", user.ID)
			return nil, goerror.NewBusiness("account not allowed", goerror.CodeForbidden)
		}
		if err := s.ensureUserStatusAllowed(ctx, user); err != nil {
			return nil, err
		}
	}

	contextID, err := s.challenge.Issue(ctx, identifier, kind)
	if errors.Is(err, challenge.ErrDelivery) {
		return nil, goerror.NewBusinessWrap(err, "could not deliver verification code", goerror.CodeInternal)
	}
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	return &RequestChallengeOutput{ContextID: contextID}, nil
}
