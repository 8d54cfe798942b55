package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/danwahyudi/authgate/internal/auth/entity"
	"github.com/danwahyudi/authgate/internal/auth/session"
	"github.com/danwahyudi/authgate/internal/pkg/clock"
	"github.com/danwahyudi/authgate/internal/pkg/config"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
	"github.com/danwahyudi/authgate/internal/pkg/goroutine"
	"github.com/danwahyudi/authgate/internal/pkg/hash"
	"github.com/danwahyudi/authgate/internal/pkg/instrument"
	"github.com/danwahyudi/authgate/internal/pkg/uid"
	"github.com/danwahyudi/authgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type challengeManager interface {
	Issue(ctx context.Context, identifier string, kind entity.IdentifierKind) (string, error)
	Verify(ctx context.Context, contextID, code string) (*entity.VerifiedIdentifier, error)
}

type sessionManager interface {
	Create(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*session.TokenPair, error)
	Logout(ctx context.Context, sessionToken string) error
	Refresh(ctx context.Context, refreshToken, deviceInfo, ipAddress string) (*session.TokenPair, int64, error)
	ListActive(ctx context.Context, userID int64) ([]entity.SessionInfo, error)
	Authenticate(ctx context.Context, sessionToken string) (*entity.Session, error)
}

type repoDB interface {
	GetUserByIdentifier(ctx context.Context, kind entity.IdentifierKind, identifier string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	CreateUser(ctx context.Context, in entity.NewUser) error
}

type notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

type Usecase struct {
	challenge challengeManager
	session   sessionManager
	repoDB    repoDB
	notifier  notifier
	goroutine *goroutine.Manager
	validator validator.Validator
	bcrypt    hash.Hash
	uid       uid.NumberID
	clock     clock.Clocker
	cfg       config.Config
	ins       instrument.Instrumentation
}

type Dependency struct {
	Challenge  challengeManager
	Session    sessionManager
	RepoDB     repoDB
	Notifier   notifier
	Goroutine  *goroutine.Manager
	Validator  validator.Validator
	Bcrypt     hash.Hash
	UID        uid.NumberID
	Clock      clock.Clocker
	Config     config.Config
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		challenge: dep.Challenge,
		session:   dep.Session,
		repoDB:    dep.RepoDB,
		notifier:  dep.Notifier,
		goroutine: dep.Goroutine,
		validator: dep.Validator,
		bcrypt:    dep.Bcrypt,
		uid:       dep.UID,
		clock:     dep.Clock,
		cfg:       dep.Config,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("auth.usecase").Start(ctx, name)
}

type phoneIdentifier struct {
	Phone string `validate:"required,e164"`
}

type emailIdentifier struct {
	Email string `validate:"required,email"`
}

// normalizeIdentifier trims the raw identifier, classifies it as phone or
// email, and validates it against that kind's syntax.
func (s *Usecase) normalizeIdentifier(raw string) (string, entity.IdentifierKind, error) {
	identifier := strings.TrimSpace(raw)

	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
		if err := s.validator.Validate(emailIdentifier{Email: identifier}); err != nil {
			return "", entity.IdentifierKindUnknown, goerror.NewInvalidInput(err)
		}
		return identifier, entity.IdentifierKindEmail, nil
	}

	if err := s.validator.Validate(phoneIdentifier{Phone: identifier}); err != nil {
		return "", entity.IdentifierKindUnknown, goerror.NewInvalidInput(err)
	}
	return identifier, entity.IdentifierKindPhone, nil
}

func (s *Usecase) ensureUserStatusAllowed(ctx context.Context, user *entity.User) error {
	switch user.Status {
	case entity.UserStatusBanned:
		slog.WarnContext(ctx, "user account is banned", "user_id", user.ID)
		return goerror.NewBusiness("account is locked", goerror.CodeForbidden)

	case entity.UserStatusInactive:
		slog.WarnContext(ctx, "user account is deactivated", "user_id", user.ID)
		return goerror.NewBusiness("account is locked", goerror.CodeForbidden)

	case entity.UserStatusActive:
		return nil

	default:
		slog.WarnContext(ctx, "user account status is unrecognized", "user_id", user.ID)
		return goerror.NewBusiness("account is locked", goerror.CodeForbidden)
	}
}
