package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danwahyudi/authgate/internal/auth/challenge"
	"github.com/danwahyudi/authgate/internal/auth/entity"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
)

type CompleteChallengeInput struct {
	ContextID  string `validate:"required"`
	Code       string `validate:"required,numeric"`
	DeviceInfo string
	IPAddress  string
}

type CompleteChallengeOutput struct {
	SessionToken string
	RefreshToken string
	Role         string
}

// CompleteChallenge finishes either flow: the code is verified, the identity
// behind the proven identifier is resolved (created on first self-service
// signup), and a session is opened. The session exists only after the
// challenge is consumed, so a crash in between leaves a spent challenge and
// nothing else.
func (s *Usecase) CompleteChallenge(ctx context.Context, in CompleteChallengeInput) (*CompleteChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "CompleteChallenge")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	verified, err := s.challenge.Verify(ctx, in.ContextID, in.Code)
	if err != nil {
		return nil, mapVerifyError(err)
	}

	user, err := s.resolveIdentity(ctx, verified)
	if err != nil {
		return nil, err
	}

	pair, err := s.session.Create(ctx, user.ID, in.DeviceInfo, in.IPAddress)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create session", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.notifySignIn(ctx, verified, in.DeviceInfo, in.IPAddress)

	return &CompleteChallengeOutput{
		SessionToken: pair.SessionToken,
		RefreshToken: pair.RefreshToken,
		Role:         user.Role.String(),
	}, nil
}

// notifySignIn delivers a sign-in notice to the identifier that just proved
// itself. It runs out of band on the goroutine manager; login never waits on
// it and never fails because of it. The dispatch context drops cancellation
// but keeps request values so the notice still carries the correlation id.
func (s *Usecase) notifySignIn(ctx context.Context, verified *entity.VerifiedIdentifier, deviceInfo, ipAddress string) {
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		body := "New sign-in to your account"
		if deviceInfo != "" {
			body += " from " + deviceInfo
		}
		if ipAddress != "" {
			body += " (" + ipAddress + ")"
		}
		body += ". If this was not you, log out of your other sessions."

		var err error
		switch verified.IdentifierKind {
		case entity.IdentifierKindPhone:
			err = s.notifier.SendSMS(ctx, verified.Identifier, body)
		case entity.IdentifierKindEmail:
			err = s.notifier.SendEmail(ctx, verified.Identifier, "New sign-in to your account", body)
		}
		if err != nil {
			slog.WarnContext(ctx, "failed to deliver sign-in notice", "kind", verified.IdentifierKind.String(), "error", err)
		}
		return nil
	})
}

func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, challenge.ErrNotFound):
		return goerror.NewBusinessWrap(err, "challenge not found", goerror.CodeNotFound)
	case errors.Is(err, challenge.ErrExpired):
		return goerror.NewBusinessWrap(err, "challenge expired", goerror.CodeUnauthorized)
	case errors.Is(err, challenge.ErrAttemptsExhausted):
		return goerror.NewBusinessWrap(err, "too many attempts", goerror.CodeUnauthorized)
	case errors.Is(err, challenge.ErrInvalidCode):
		return goerror.NewBusinessWrap(err, "invalid code", goerror.CodeUnauthorized)
	default:
		return goerror.NewServer(err)
	}
}

// resolveIdentity finds the user behind a proven identifier, provisioning a
// plain active user when none exists yet. Admin accounts always pre-exist, so
// provisioning can only ever mint the default role.
func (s *Usecase) resolveIdentity(ctx context.Context, verified *entity.VerifiedIdentifier) (*entity.User, error) {
	user, err := s.repoDB.GetUserByIdentifier(ctx, verified.IdentifierKind, verified.Identifier)
	if err == nil {
		if gateErr := s.ensureUserStatusAllowed(ctx, user); gateErr != nil {
			return nil, gateErr
		}
		return user, nil
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by identifier", "kind", verified.IdentifierKind.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	newUser := entity.NewUser{
		ID:     s.uid.Generate(),
		Role:   entity.RoleUser,
		Status: entity.UserStatusActive,
	}
	switch verified.IdentifierKind {
	case entity.IdentifierKindPhone:
		newUser.Phone = verified.Identifier
	case entity.IdentifierKindEmail:
		newUser.Email = verified.Identifier
	}

	if err := s.repoDB.CreateUser(ctx, newUser); err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "user_id", newUser.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "identity provisioned", "user_id", newUser.ID, "kind", verified.IdentifierKind.String())

	return &entity.User{
		ID:     newUser.ID,
		Phone:  newUser.Phone,
		Email:  newUser.Email,
		Role:   newUser.Role,
		Status: newUser.Status,
	}, nil
}
