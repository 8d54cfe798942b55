// Package challenge implements the one-time-code issue/verify state machine.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/danwahyudi/authgate/internal/auth/entity"
	"github.com/danwahyudi/authgate/internal/pkg/cache"
	"github.com/danwahyudi/authgate/internal/pkg/clock"
	"github.com/danwahyudi/authgate/internal/pkg/config"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
	"github.com/danwahyudi/authgate/internal/pkg/hash"
	"github.com/danwahyudi/authgate/internal/pkg/instrument"
	"github.com/danwahyudi/authgate/internal/pkg/otpcode"
	"github.com/danwahyudi/authgate/internal/pkg/uid"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNotFound covers unknown, expired-from-cache, and already-consumed
	// contexts alike, so a caller cannot probe whether a context ever existed.
	ErrNotFound = errors.New("auth: challenge not found")

	// ErrExpired means the challenge outlived its window. Terminal.
	ErrExpired = errors.New("auth: challenge expired")

	// ErrAttemptsExhausted means too many wrong codes were submitted. Terminal.
	ErrAttemptsExhausted = errors.New("auth: challenge attempts exhausted")

	// ErrInvalidCode means the submitted code did not match. Retryable.
	ErrInvalidCode = errors.New("auth: invalid code")

	// ErrDelivery means the code could not be sent to the identifier.
	ErrDelivery = errors.New("auth: code delivery failed")
)

// Store persists challenge records. Mutations on a single record must be
// atomic: IncrementAttempt returns the count after its own increment and
// MarkUsed reports whether this caller transitioned the record, so two
// concurrent verifiers can never both win.
type Store interface {
	CreateChallenge(ctx context.Context, ch entity.Challenge) error
	GetChallengeByID(ctx context.Context, id int64) (*entity.Challenge, error)
	IncrementChallengeAttempt(ctx context.Context, id int64, at time.Time) (int32, error)
	MarkChallengeUsed(ctx context.Context, id int64) (bool, error)
}

// Notifier delivers the plaintext code out of band. Errors surface
// synchronously as a delivery failure.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

type Manager struct {
	store    Store
	cache    cache.Cache
	notifier Notifier
	hmac     hash.Hash
	codes    otpcode.Generator
	uid      uid.NumberID
	token    uid.StringID
	clock    clock.Clocker
	cfg      config.Config
	ins      instrument.Instrumentation
}

type Dependency struct {
	Store    Store
	Cache    cache.Cache
	Notifier Notifier
	HMAC     hash.Hash
	Codes    otpcode.Generator
	UID      uid.NumberID
	Token    uid.StringID
	Clock    clock.Clocker
	Config   config.Config
	Ins      instrument.Instrumentation
}

func New(dep Dependency) *Manager {
	return &Manager{
		store:    dep.Store,
		cache:    dep.Cache,
		notifier: dep.Notifier,
		hmac:     dep.HMAC,
		codes:    dep.Codes,
		uid:      dep.UID,
		token:    dep.Token,
		clock:    dep.Clock,
		cfg:      dep.Config,
		ins:      dep.Ins,
	}
}

func (m *Manager) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.ins.Tracer("auth.challenge").Start(ctx, name)
}

func (m *Manager) ttl() time.Duration {
	if v := m.cfg.GetMinute("modules.auth.challenge_ttl_minutes"); v > 0 {
		return v
	}
	return 5 * time.Minute
}

func (m *Manager) maxAttempts() int32 {
	if v := m.cfg.GetInt32("modules.auth.max_verify_attempts"); v > 0 {
		return v
	}
	return 5
}

// Issue creates a challenge for the identifier, sends the code, and returns
// the opaque context handle. The internal challenge id never leaves this
// package; the handle is the only way back to the record.
func (m *Manager) Issue(ctx context.Context, identifier string, kind entity.IdentifierKind) (string, error) {
	ctx, span := m.startSpan(ctx, "Issue")
	defer span.End()

	code, err := m.codes.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate challenge code", "error", err)
		return "", err
	}

	hashedCode, err := m.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash challenge code", "error", err)
		return "", err
	}

	now := m.clock.Now()
	ttl := m.ttl()
	ch := entity.Challenge{
		ID:             m.uid.Generate(),
		Identifier:     identifier,
		IdentifierKind: kind,
		HashedCode:     string(hashedCode),
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}

	if err := m.store.CreateChallenge(ctx, ch); err != nil {
		slog.ErrorContext(ctx, "failed to persist challenge", "challenge_id", ch.ID, "error", err)
		return "", err
	}

	// The handle is random, not derived from the challenge id.
	contextID := m.token.Generate()
	if err := m.cache.Set(ctx, contextID, strconv.FormatInt(ch.ID, 10), ttl); err != nil {
		slog.ErrorContext(ctx, "failed to cache challenge context", "challenge_id", ch.ID, "error", err)
		return "", err
	}

	// Delivery runs only after the record is durable. On failure the record
	// stays persisted but is unreachable without the handle, so the caller
	// just issues again.
	if err := m.deliver(ctx, identifier, kind, code, ttl); err != nil {
		slog.WarnContext(ctx, "failed to deliver challenge code", "challenge_id", ch.ID, "kind", kind.String(), "error", err)
		return "", ErrDelivery
	}

	slog.InfoContext(ctx, "challenge issued", "challenge_id", ch.ID, "kind", kind.String())

	return contextID, nil
}

func (m *Manager) deliver(ctx context.Context, identifier string, kind entity.IdentifierKind, code string, ttl time.Duration) error {
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))

	switch kind {
	case entity.IdentifierKindPhone:
		return m.notifier.SendSMS(ctx, identifier, body)
	case entity.IdentifierKindEmail:
		return m.notifier.SendEmail(ctx, identifier, "Your verification code", body)
	default:
		return fmt.Errorf("unsupported identifier kind %d", kind)
	}
}

// Verify resolves the context handle and walks the challenge state machine:
// expiry, then attempt budget, then code match. Expiry, exhaustion, and
// success all consume the challenge and drop the handle.
func (m *Manager) Verify(ctx context.Context, contextID, code string) (*entity.VerifiedIdentifier, error) {
	ctx, span := m.startSpan(ctx, "Verify")
	defer span.End()

	raw, err := m.cache.Get(ctx, contextID)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve challenge context", "error", err)
		return nil, err
	}

	challengeID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.ErrorContext(ctx, "challenge context holds malformed id", "error", err)
		return nil, ErrNotFound
	}

	ch, err := m.store.GetChallengeByID(ctx, challengeID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load challenge", "challenge_id", challengeID, "error", err)
		return nil, err
	}

	if ch.Used {
		return nil, ErrNotFound
	}

	now := m.clock.Now()

	if now.After(ch.ExpiresAt) {
		m.consume(ctx, ch.ID, contextID)
		return nil, ErrExpired
	}

	if ch.AttemptCount >= m.maxAttempts() {
		m.consume(ctx, ch.ID, contextID)
		return nil, ErrAttemptsExhausted
	}

	if !m.hmac.Verify(ch.HashedCode, code) {
		attempts, err := m.store.IncrementChallengeAttempt(ctx, ch.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "failed to record failed attempt", "challenge_id", ch.ID, "error", err)
			return nil, err
		}

		slog.WarnContext(ctx, "challenge code mismatch", "challenge_id", ch.ID, "attempts", attempts)
		return nil, ErrInvalidCode
	}

	won, err := m.store.MarkChallengeUsed(ctx, ch.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume challenge", "challenge_id", ch.ID, "error", err)
		return nil, err
	}
	if !won {
		// Another verifier got here first.
		return nil, ErrNotFound
	}

	if err := m.cache.Del(ctx, contextID); err != nil {
		slog.WarnContext(ctx, "failed to drop challenge context", "challenge_id", ch.ID, "error", err)
	}

	slog.InfoContext(ctx, "challenge verified", "challenge_id", ch.ID, "kind", ch.IdentifierKind.String())

	return &entity.VerifiedIdentifier{
		Identifier:     ch.Identifier,
		IdentifierKind: ch.IdentifierKind,
	}, nil
}

// consume marks the challenge terminal and drops the handle, best effort.
func (m *Manager) consume(ctx context.Context, challengeID int64, contextID string) {
	if _, err := m.store.MarkChallengeUsed(ctx, challengeID); err != nil {
		slog.ErrorContext(ctx, "failed to mark challenge used", "challenge_id", challengeID, "error", err)
	}
	if err := m.cache.Del(ctx, contextID); err != nil {
		slog.WarnContext(ctx, "failed to drop challenge context", "challenge_id", challengeID, "error", err)
	}
}
