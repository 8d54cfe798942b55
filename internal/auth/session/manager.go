// Package session manages authenticated device sessions: creation with a
// per-user cap, logout, refresh rotation, and token authentication.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danwahyudi/authgate/internal/auth/entity"
	"github.com/danwahyudi/authgate/internal/pkg/clock"
	"github.com/danwahyudi/authgate/internal/pkg/config"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
	"github.com/danwahyudi/authgate/internal/pkg/hash"
	"github.com/danwahyudi/authgate/internal/pkg/instrument"
	"github.com/danwahyudi/authgate/internal/pkg/uid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnauthorized means the presented token does not map to a usable session.
var ErrUnauthorized = errors.New("auth: invalid or expired session token")

// Store persists session records. List results are ordered by created_at
// ascending with id as tie-break, so the first element is the eviction
// candidate. Lookups by hash only match active sessions.
type Store interface {
	CreateSession(ctx context.Context, s entity.Session) error
	GetActiveSessionByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error)
	GetActiveSessionByRefreshHash(ctx context.Context, refreshHash string) (*entity.Session, error)
	ListActiveSessionsByUser(ctx context.Context, userID int64) ([]entity.Session, error)
	DeactivateSession(ctx context.Context, id int64) error
}

// TokenPair holds the raw session and refresh tokens. This is the only place
// they exist unhashed outside the caller.
type TokenPair struct {
	SessionToken string
	RefreshToken string
}

type Manager struct {
	store Store
	hmac  hash.Hash
	uid   uid.NumberID
	token uid.StringID
	clock clock.Clocker
	cfg   config.Config
	ins   instrument.Instrumentation
}

type Dependency struct {
	Store  Store
	HMAC   hash.Hash
	UID    uid.NumberID
	Token  uid.StringID
	Clock  clock.Clocker
	Config config.Config
	Ins    instrument.Instrumentation
}

func New(dep Dependency) *Manager {
	return &Manager{
		store: dep.Store,
		hmac:  dep.HMAC,
		uid:   dep.UID,
		token: dep.Token,
		clock: dep.Clock,
		cfg:   dep.Config,
		ins:   dep.Ins,
	}
}

func (m *Manager) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.ins.Tracer("auth.session").Start(ctx, name)
}

func (m *Manager) maxActive() int {
	if v := m.cfg.GetInt("modules.auth.max_active_sessions"); v > 0 {
		return v
	}
	return 3
}

func (m *Manager) sessionTTL() time.Duration {
	if v := m.cfg.GetHour("modules.auth.session_ttl_hours"); v > 0 {
		return v
	}
	return 24 * time.Hour
}

func (m *Manager) refreshTTL() time.Duration {
	if v := m.cfg.GetDay("modules.auth.refresh_ttl_days"); v > 0 {
		return v
	}
	return 7 * 24 * time.Hour
}

// Create persists a new active session and returns the raw token pair. After
// insertion the per-user cap is enforced by deactivating the oldest active
// session when the cap is exceeded; each login adds one session, so one
// eviction per call keeps the cap.
func (m *Manager) Create(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*TokenPair, error) {
	ctx, span := m.startSpan(ctx, "Create")
	defer span.End()

	sessionToken := m.token.Generate()
	refreshToken := m.token.Generate()

	sessionHash, err := m.hmac.Hash(sessionToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash session token", "user_id", userID, "error", err)
		return nil, err
	}

	refreshHash, err := m.hmac.Hash(refreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "user_id", userID, "error", err)
		return nil, err
	}

	now := m.clock.Now()
	sess := entity.Session{
		ID:               m.uid.Generate(),
		UserID:           userID,
		SessionTokenHash: string(sessionHash),
		RefreshTokenHash: string(refreshHash),
		SessionExpiresAt: now.Add(m.sessionTTL()),
		RefreshExpiresAt: now.Add(m.refreshTTL()),
		Active:           true,
		DeviceInfo:       deviceInfo,
		IPAddress:        ipAddress,
		CreatedAt:        now,
	}

	if err := m.store.CreateSession(ctx, sess); err != nil {
		slog.ErrorContext(ctx, "failed to persist session", "user_id", userID, "error", err)
		return nil, err
	}

	m.evict(ctx, userID)

	slog.InfoContext(ctx, "session created", "user_id", userID, "session_id", sess.ID)

	return &TokenPair{SessionToken: sessionToken, RefreshToken: refreshToken}, nil
}

// evict deactivates the oldest active session when the user holds more than
// the cap. Best effort: a failure here overshoots the cap until the next
// login corrects it.
func (m *Manager) evict(ctx context.Context, userID int64) {
	active, err := m.store.ListActiveSessionsByUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list sessions for eviction", "user_id", userID, "error", err)
		return
	}

	if len(active) <= m.maxActive() {
		return
	}

	oldest := active[0]
	if err := m.store.DeactivateSession(ctx, oldest.ID); err != nil {
		slog.ErrorContext(ctx, "failed to evict session", "user_id", userID, "session_id", oldest.ID, "error", err)
		return
	}

	slog.InfoContext(ctx, "session evicted", "user_id", userID, "session_id", oldest.ID)
}

// Logout deactivates the session matching the token. Unknown tokens are a
// silent no-op so logout stays idempotent.
func (m *Manager) Logout(ctx context.Context, sessionToken string) error {
	ctx, span := m.startSpan(ctx, "Logout")
	defer span.End()

	tokenHash, err := m.hmac.Hash(sessionToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash session token", "error", err)
		return err
	}

	sess, err := m.store.GetActiveSessionByTokenHash(ctx, string(tokenHash))
	if errors.Is(err, goerror.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load session for logout", "error", err)
		return err
	}

	if err := m.store.DeactivateSession(ctx, sess.ID); err != nil {
		slog.ErrorContext(ctx, "failed to deactivate session", "session_id", sess.ID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "session terminated", "user_id", sess.UserID, "session_id", sess.ID)

	return nil
}

// Refresh rotates a session: the refresh token must belong to an active
// session whose refresh window has not passed, the old session is
// deactivated, and a fresh session is created for the same user. Requiring
// the session to still be active means a logout also revokes its refresh
// token. The old session is revoked before the new one is created: if the
// create fails the caller holds no session and must log in again, and the
// presented refresh token never survives its one use.
func (m *Manager) Refresh(ctx context.Context, refreshToken, deviceInfo, ipAddress string) (*TokenPair, int64, error) {
	ctx, span := m.startSpan(ctx, "Refresh")
	defer span.End()

	refreshHash, err := m.hmac.Hash(refreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "error", err)
		return nil, 0, err
	}

	sess, err := m.store.GetActiveSessionByRefreshHash(ctx, string(refreshHash))
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, 0, ErrUnauthorized
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load session for refresh", "error", err)
		return nil, 0, err
	}

	if m.clock.Now().After(sess.RefreshExpiresAt) {
		return nil, 0, ErrUnauthorized
	}

	if err := m.store.DeactivateSession(ctx, sess.ID); err != nil {
		slog.ErrorContext(ctx, "failed to rotate out session", "session_id", sess.ID, "error", err)
		return nil, 0, err
	}

	pair, err := m.Create(ctx, sess.UserID, deviceInfo, ipAddress)
	if err != nil {
		return nil, 0, err
	}

	slog.InfoContext(ctx, "session refreshed", "user_id", sess.UserID, "session_id", sess.ID)

	return pair, sess.UserID, nil
}

// ListActive returns the read-only projection of the user's active sessions.
func (m *Manager) ListActive(ctx context.Context, userID int64) ([]entity.SessionInfo, error) {
	ctx, span := m.startSpan(ctx, "ListActive")
	defer span.End()

	active, err := m.store.ListActiveSessionsByUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list active sessions", "user_id", userID, "error", err)
		return nil, err
	}

	return lo.Map(active, func(s entity.Session, _ int) entity.SessionInfo {
		return entity.SessionInfo{
			DeviceInfo: s.DeviceInfo,
			IPAddress:  s.IPAddress,
			CreatedAt:  s.CreatedAt,
		}
	}), nil
}

// Authenticate resolves a raw session token to its active, unexpired session.
func (m *Manager) Authenticate(ctx context.Context, sessionToken string) (*entity.Session, error) {
	ctx, span := m.startSpan(ctx, "Authenticate")
	defer span.End()

	tokenHash, err := m.hmac.Hash(sessionToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash session token", "error", err)
		return nil, err
	}

	sess, err := m.store.GetActiveSessionByTokenHash(ctx, string(tokenHash))
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load session", "error", err)
		return nil, err
	}

	if m.clock.Now().After(sess.SessionExpiresAt) {
		return nil, ErrUnauthorized
	}

	return sess, nil
}
