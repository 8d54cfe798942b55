package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danwahyudi/authgate/internal/auth/challenge"
	"github.com/danwahyudi/authgate/internal/auth/entity"
	"github.com/danwahyudi/authgate/internal/auth/session"
	"github.com/danwahyudi/authgate/internal/pkg/cache"
	"github.com/danwahyudi/authgate/internal/pkg/config"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
	"github.com/danwahyudi/authgate/internal/pkg/goroutine"
	"github.com/danwahyudi/authgate/internal/pkg/hash"
	"github.com/danwahyudi/authgate/internal/pkg/instrument"
	"github.com/danwahyudi/authgate/internal/pkg/otpcode"
	"github.com/danwahyudi/authgate/internal/pkg/uid"
	"github.com/danwahyudi/authgate/internal/pkg/validator"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqID struct {
	mu   sync.Mutex
	next int64
}

func (s *seqID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

type fakeChallengeStore struct {
	mu         sync.Mutex
	challenges map[int64]entity.Challenge
}

func (s *fakeChallengeStore) CreateChallenge(_ context.Context, ch entity.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.ID] = ch
	return nil
}

func (s *fakeChallengeStore) GetChallengeByID(_ context.Context, id int64) (*entity.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &ch, nil
}

func (s *fakeChallengeStore) IncrementChallengeAttempt(_ context.Context, id int64, at time.Time) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return 0, goerror.ErrNotFound
	}
	ch.AttemptCount++
	ch.LastAttemptAt = &at
	s.challenges[id] = ch
	return ch.AttemptCount, nil
}

func (s *fakeChallengeStore) MarkChallengeUsed(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return false, goerror.ErrNotFound
	}
	if ch.Used {
		return false, nil
	}
	ch.Used = true
	s.challenges[id] = ch
	return true, nil
}

func (s *fakeChallengeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[int64]entity.Session
}

func (s *fakeSessionStore) CreateSession(_ context.Context, sess entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *fakeSessionStore) GetActiveSessionByTokenHash(_ context.Context, tokenHash string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Active && sess.SessionTokenHash == tokenHash {
			found := sess
			return &found, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (s *fakeSessionStore) GetActiveSessionByRefreshHash(_ context.Context, refreshHash string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Active && sess.RefreshTokenHash == refreshHash {
			found := sess
			return &found, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (s *fakeSessionStore) ListActiveSessionsByUser(_ context.Context, userID int64) ([]entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []entity.Session
	for _, sess := range s.sessions {
		if sess.Active && sess.UserID == userID {
			active = append(active, sess)
		}
	}
	return active, nil
}

func (s *fakeSessionStore) DeactivateSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return goerror.ErrNotFound
	}
	sess.Active = false
	s.sessions[id] = sess
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]entity.User
}

func (r *fakeUserRepo) GetUserByIdentifier(_ context.Context, kind entity.IdentifierKind, identifier string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		switch kind {
		case entity.IdentifierKindPhone:
			if u.Phone == identifier {
				found := u
				return &found, nil
			}
		case entity.IdentifierKindEmail:
			if u.Email == identifier {
				found := u
				return &found, nil
			}
		}
	}
	return nil, goerror.ErrNotFound
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) CreateUser(_ context.Context, in entity.NewUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[in.ID] = entity.User{
		ID:     in.ID,
		Phone:  in.Phone,
		Email:  in.Email,
		Role:   in.Role,
		Status: in.Status,
	}
	return nil
}

func (r *fakeUserRepo) seed(u entity.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

type fakeNotifier struct {
	mu     sync.Mutex
	fail   bool
	bodies []string
}

func (n *fakeNotifier) SendEmail(_ context.Context, _, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *fakeNotifier) SendSMS(_ context.Context, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("gateway unreachable")
	}
	n.bodies = append(n.bodies, body)
	return nil
}

var codePattern = regexp.MustCompile(`\d{6}`)

// lastCode pulls the verification code back out of the delivered message.
func (n *fakeNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.bodies) == 0 {
		t.Fatalf("no message was delivered")
	}
	code := codePattern.FindString(n.bodies[len(n.bodies)-1])
	if code == "" {
		t.Fatalf("delivered message carries no code: %q", n.bodies[len(n.bodies)-1])
	}
	return code
}

type testEnv struct {
	usecase        *Usecase
	users          *fakeUserRepo
	challengeStore *fakeChallengeStore
	notifier       *fakeNotifier
	goroutine      *goroutine.Manager
	bcrypt         hash.Hash
	clock          *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  auth:
    code_length: 6
    challenge_ttl_minutes: 5
    max_verify_attempts: 5
    session_ttl_hours: 24
    refresh_ttl_days: 7
    max_active_sessions: 3
`))
	if err != nil {
		t.Fatalf("config from bytes failed: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator init failed: %v", err)
	}

	env := &testEnv{
		users:          &fakeUserRepo{users: make(map[int64]entity.User)},
		challengeStore: &fakeChallengeStore{challenges: make(map[int64]entity.Challenge)},
		notifier:       &fakeNotifier{},
		goroutine:      goroutine.NewManager(8),
		bcrypt:         hash.NewBcrypt(4, "test-pepper"),
		clock:          &fakeClock{now: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
	}

	hmac := hash.NewHMACSHA256("test-secret")
	ids := &seqID{}
	ins := instrument.NewNoop()

	challengeMgr := challenge.New(challenge.Dependency{
		Store:    env.challengeStore,
		Cache:    &memCache{entries: make(map[string]string)},
		Notifier: env.notifier,
		HMAC:     hmac,
		Codes:    otpcode.NewNumeric(6),
		UID:      ids,
		Token:    uid.NewOpaqueToken(),
		Clock:    env.clock,
		Config:   cfg,
		Ins:      ins,
	})

	sessionMgr := session.New(session.Dependency{
		Store:  &fakeSessionStore{sessions: make(map[int64]entity.Session)},
		HMAC:   hmac,
		UID:    ids,
		Token:  uid.NewOpaqueToken(),
		Clock:  env.clock,
		Config: cfg,
		Ins:    ins,
	})

	env.usecase = New(Dependency{
		Challenge:  challengeMgr,
		Session:    sessionMgr,
		RepoDB:     env.users,
		Notifier:   env.notifier,
		Goroutine:  env.goroutine,
		Validator:  v10,
		Bcrypt:     env.bcrypt,
		UID:        ids,
		Clock:      env.clock,
		Config:     cfg,
		Instrument: ins,
	})

	return env
}

func (e *testEnv) seedUser(t *testing.T, u entity.User, password string) entity.User {
	t.Helper()
	if password != "" {
		hashed, err := e.bcrypt.Hash(password)
		if err != nil {
			t.Fatalf("bcrypt hash failed: %v", err)
		}
		u.PasswordHash = string(hashed)
	}
	e.users.seed(u)
	return u
}

func assertCode(t *testing.T, err error, want goerror.Code) {
	t.Helper()
	var goErr *goerror.Error
	if !errors.As(err, &goErr) {
		t.Fatalf("expected a structured error, got %v", err)
	}
	if goErr.Code() != want {
		t.Fatalf("expected code %s, got %s (%v)", want, goErr.Code(), err)
	}
}

func TestSelfServiceFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("SignupEndToEnd", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)

		// Act: request a challenge for an identifier nobody owns yet
		reqOut, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: " +84912345678 "})
		if err != nil {
			t.Fatalf("request challenge returned error: %v", err)
		}

		// Act: complete it with the delivered code
		out, err := env.usecase.CompleteChallenge(ctx, CompleteChallengeInput{
			ContextID:  reqOut.ContextID,
			Code:       env.notifier.lastCode(t),
			DeviceInfo: "cli/1.0",
			IPAddress:  "203.0.113.9",
		})

		// Assert
		if err != nil {
			t.Fatalf("complete challenge returned error: %v", err)
		}
		if out.SessionToken == "" || out.RefreshToken == "" {
			t.Fatalf("expected a token pair, got %+v", out)
		}
		if out.Role != "user" {
			t.Fatalf("provisioned identity must get the default role, got %q", out.Role)
		}

		user, err := env.users.GetUserByIdentifier(ctx, entity.IdentifierKindPhone, "+84912345678")
		if err != nil {
			t.Fatalf("expected the identity to be provisioned: %v", err)
		}
		if user.Status != entity.UserStatusActive {
			t.Fatalf("provisioned identity must be active, got %v", user.Status)
		}

		// Assert: the session is visible to its owner
		listed, err := env.usecase.ListSessions(ctx, ListSessionsInput{UserID: user.ID})
		if err != nil {
			t.Fatalf("list sessions returned error: %v", err)
		}
		if len(listed.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(listed.Sessions))
		}
		if listed.Sessions[0].DeviceInfo != "cli/1.0" || listed.Sessions[0].IPAddress != "203.0.113.9" {
			t.Fatalf("session metadata mismatch: %+v", listed.Sessions[0])
		}
	})

	t.Run("ExistingUserIsNotReprovisioned", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		seeded := env.seedUser(t, entity.User{ID: 100, Email: "user@example.com", Role: entity.RoleUser, Status: entity.UserStatusActive}, "")

		// Act
		reqOut, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: "User@Example.com"})
		if err != nil {
			t.Fatalf("request challenge returned error: %v", err)
		}
		out, err := env.usecase.CompleteChallenge(ctx, CompleteChallengeInput{
			ContextID: reqOut.ContextID,
			Code:      env.notifier.lastCode(t),
		})

		// Assert
		if err != nil {
			t.Fatalf("complete challenge returned error: %v", err)
		}
		if out.Role != "user" {
			t.Fatalf("expected role user, got %q", out.Role)
		}
		if len(env.users.users) != 1 {
			t.Fatalf("existing identity must not be duplicated, got %d users", len(env.users.users))
		}
		if _, err := env.users.GetUserByID(ctx, seeded.ID); err != nil {
			t.Fatalf("seeded user vanished: %v", err)
		}
	})

	t.Run("LockedIdentityIsRejectedBeforeDelivery", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		env.seedUser(t, entity.User{ID: 100, Phone: "+84912345678", Role: entity.RoleUser, Status: entity.UserStatusBanned}, "")

		// Act
		_, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: "+84912345678"})

		// Assert
		assertCode(t, err, goerror.CodeForbidden)
		if env.challengeStore.count() != 0 {
			t.Fatalf("no challenge may exist for a locked identity")
		}
	})

	t.Run("PrivilegedIdentityCannotUseSelfService", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		env.seedUser(t, entity.User{ID: 100, Email: "admin@example.com", Role: entity.RoleAdmin, Status: entity.UserStatusActive}, "hunter2")

		// Act
		_, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: "admin@example.com"})

		// Assert
		assertCode(t, err, goerror.CodeForbidden)
		if env.challengeStore.count() != 0 {
			t.Fatalf("no challenge may exist for a privileged identity on this flow")
		}
	})

	t.Run("MalformedIdentifierIsRejected", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)

		// Act
		_, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: "not-a-phone"})

		// Assert
		assertCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("DeliveryFailureSurfacesAsServiceError", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		env.notifier.fail = true

		// Act
		_, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: "+84912345678"})

		// Assert
		assertCode(t, err, goerror.CodeInternal)
	})
}

func TestAdminFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("HappyPath", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		env.seedUser(t, entity.User{ID: 100, Email: "admin@example.com", Role: entity.RoleAdmin, Status: entity.UserStatusActive}, "hunter2")

		// Act
		reqOut, err := env.usecase.RequestAdminChallenge(ctx, RequestAdminChallengeInput{
			Identifier: "admin@example.com",
			Password:   "hunter2",
		})
		if err != nil {
			t.Fatalf("request admin challenge returned error: %v", err)
		}
		out, err := env.usecase.CompleteChallenge(ctx, CompleteChallengeInput{
			ContextID: reqOut.ContextID,
			Code:      env.notifier.lastCode(t),
		})

		// Assert
		if err != nil {
			t.Fatalf("complete challenge returned error: %v", err)
		}
		if out.Role != "admin" {
			t.Fatalf("expected role admin, got %q", out.Role)
		}
	})

	t.Run("WrongPasswordIssuesNothing", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		env.seedUser(t, entity.User{ID: 100, Email: "admin@example.com", Role: entity.RoleAdmin, Status: entity.UserStatusActive}, "hunter2")

		// Act
		_, err := env.usecase.RequestAdminChallenge(ctx, RequestAdminChallengeInput{
			Identifier: "admin@example.com",
			Password:   "wrong",
		})

		// Assert
		assertCode(t, err, goerror.CodeForbidden)
		if env.challengeStore.count() != 0 {
			t.Fatalf("failed first factor must not persist a challenge")
		}
		if len(env.notifier.bodies) != 0 {
			t.Fatalf("failed first factor must not deliver a code")
		}
	})

	t.Run("UnknownIdentityFailsNotFound", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)

		// Act
		_, err := env.usecase.RequestAdminChallenge(ctx, RequestAdminChallengeInput{
			Identifier: "ghost@example.com",
			Password:   "hunter2",
		})

		// Assert
		assertCode(t, err, goerror.CodeNotFound)
	})

	t.Run("PlainUserIsNotPrivileged", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		env.seedUser(t, entity.User{ID: 100, Email: "user@example.com", Role: entity.RoleUser, Status: entity.UserStatusActive}, "hunter2")

		// Act
		_, err := env.usecase.RequestAdminChallenge(ctx, RequestAdminChallengeInput{
			Identifier: "user@example.com",
			Password:   "hunter2",
		})

		// Assert
		assertCode(t, err, goerror.CodeForbidden)
		if env.challengeStore.count() != 0 {
			t.Fatalf("non-privileged account must not receive an admin challenge")
		}
	})
}

func TestCompleteChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownContextFailsNotFound", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)

		// Act
		_, err := env.usecase.CompleteChallenge(ctx, CompleteChallengeInput{
			ContextID: "never-issued",
			Code:      "123456",
		})

		// Assert
		assertCode(t, err, goerror.CodeNotFound)
		if !errors.Is(err, challenge.ErrNotFound) {
			t.Fatalf("underlying cause should be preserved, got %v", err)
		}
	})

	t.Run("WrongCodeFailsUnauthorized", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		reqOut, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: "+84912345678"})
		if err != nil {
			t.Fatalf("request challenge returned error: %v", err)
		}
		wrong := "000000"
		if env.notifier.lastCode(t) == wrong {
			wrong = "000001"
		}

		// Act
		_, err = env.usecase.CompleteChallenge(ctx, CompleteChallengeInput{
			ContextID: reqOut.ContextID,
			Code:      wrong,
		})

		// Assert
		assertCode(t, err, goerror.CodeUnauthorized)
		if !errors.Is(err, challenge.ErrInvalidCode) {
			t.Fatalf("underlying cause should be preserved, got %v", err)
		}
	})

	t.Run("ExpiredChallengeFailsUnauthorized", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		reqOut, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: "+84912345678"})
		if err != nil {
			t.Fatalf("request challenge returned error: %v", err)
		}
		code := env.notifier.lastCode(t)
		env.clock.Advance(6 * time.Minute)

		// Act
		_, err = env.usecase.CompleteChallenge(ctx, CompleteChallengeInput{
			ContextID: reqOut.ContextID,
			Code:      code,
		})

		// Assert
		assertCode(t, err, goerror.CodeUnauthorized)
		if !errors.Is(err, challenge.ErrExpired) {
			t.Fatalf("underlying cause should be preserved, got %v", err)
		}
	})

	t.Run("NonNumericCodeIsRejectedUpFront", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)

		// Act
		_, err := env.usecase.CompleteChallenge(ctx, CompleteChallengeInput{
			ContextID: "whatever",
			Code:      "12a456",
		})

		// Assert
		assertCode(t, err, goerror.CodeInvalidInput)
	})
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T, env *testEnv) *CompleteChallengeOutput {
		t.Helper()
		reqOut, err := env.usecase.RequestChallenge(ctx, RequestChallengeInput{Identifier: "+84912345678"})
		if err != nil {
			t.Fatalf("request challenge returned error: %v", err)
		}
		out, err := env.usecase.CompleteChallenge(ctx, CompleteChallengeInput{
			ContextID:  reqOut.ContextID,
			Code:       env.notifier.lastCode(t),
			DeviceInfo: "cli/1.0",
			IPAddress:  "203.0.113.9",
		})
		if err != nil {
			t.Fatalf("complete challenge returned error: %v", err)
		}
		return out
	}

	t.Run("RefreshRotatesTokens", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		out := login(t, env)

		// Act
		rotated, err := env.usecase.RefreshToken(ctx, RefreshTokenInput{
			RefreshToken: out.RefreshToken,
			DeviceInfo:   "cli/1.0",
			IPAddress:    "203.0.113.9",
		})

		// Assert
		if err != nil {
			t.Fatalf("refresh returned error: %v", err)
		}
		if rotated.Role != "user" {
			t.Fatalf("expected role user, got %q", rotated.Role)
		}
		if _, err := env.usecase.Authenticate(ctx, rotated.SessionToken); err != nil {
			t.Fatalf("rotated session token should authenticate: %v", err)
		}
		if _, err := env.usecase.Authenticate(ctx, out.SessionToken); !errors.Is(err, session.ErrUnauthorized) {
			t.Fatalf("pre-rotation session token should be dead, got %v", err)
		}

		// Assert: the old refresh token is spent
		_, err = env.usecase.RefreshToken(ctx, RefreshTokenInput{RefreshToken: out.RefreshToken})
		assertCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("LogoutKillsTheSession", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		out := login(t, env)

		// Act
		if err := env.usecase.Logout(ctx, LogoutInput{SessionToken: out.SessionToken}); err != nil {
			t.Fatalf("logout returned error: %v", err)
		}

		// Assert
		if _, err := env.usecase.Authenticate(ctx, out.SessionToken); !errors.Is(err, session.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
		}
		if err := env.usecase.Logout(ctx, LogoutInput{SessionToken: out.SessionToken}); err != nil {
			t.Fatalf("repeated logout should be silent, got %v", err)
		}
	})

	t.Run("AuthenticateReturnsActingIdentity", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		out := login(t, env)

		// Act
		info, err := env.usecase.Authenticate(ctx, out.SessionToken)

		// Assert
		if err != nil {
			t.Fatalf("authenticate returned error: %v", err)
		}
		if info.Role != "user" || info.UserID == 0 || info.SessionID == 0 {
			t.Fatalf("unexpected identity: %+v", info)
		}
	})

	t.Run("LockedAccountInvalidatesLiveSession", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)
		out := login(t, env)
		user, err := env.users.GetUserByIdentifier(ctx, entity.IdentifierKindPhone, "+84912345678")
		if err != nil {
			t.Fatalf("provisioned user missing: %v", err)
		}
		user.Status = entity.UserStatusBanned
		env.users.seed(*user)

		// Act
		_, err = env.usecase.Authenticate(ctx, out.SessionToken)

		// Assert
		if !errors.Is(err, session.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for a banned account, got %v", err)
		}
	})

	t.Run("ListSessionsRequiresUserID", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)

		// Act
		_, err := env.usecase.ListSessions(ctx, ListSessionsInput{})

		// Assert
		assertCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("SignInNoticeGoesOutAfterLogin", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t)

		// Act
		login(t, env)
		if err := env.goroutine.Wait(); err != nil {
			t.Fatalf("background work returned error: %v", err)
		}

		// Assert: the code delivery plus one out-of-band notice
		env.notifier.mu.Lock()
		defer env.notifier.mu.Unlock()
		if len(env.notifier.bodies) != 2 {
			t.Fatalf("expected 2 deliveries, got %d", len(env.notifier.bodies))
		}
		if !strings.Contains(env.notifier.bodies[1], "New sign-in") {
			t.Fatalf("expected a sign-in notice, got %q", env.notifier.bodies[1])
		}
	})
}
