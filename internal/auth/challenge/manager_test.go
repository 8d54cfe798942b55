package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danwahyudi/authgate/internal/auth/entity"
	"github.com/danwahyudi/authgate/internal/pkg/cache"
	"github.com/danwahyudi/authgate/internal/pkg/config"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
	"github.com/danwahyudi/authgate/internal/pkg/hash"
	"github.com/danwahyudi/authgate/internal/pkg/instrument"
	"github.com/danwahyudi/authgate/internal/pkg/uid"
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

type fakeStore struct {
	mu         sync.Mutex
	challenges map[int64]entity.Challenge
}

func newFakeStore() *fakeStore {
	return &fakeStore{challenges: make(map[int64]entity.Challenge)}
}

func (s *fakeStore) CreateChallenge(_ context.Context, ch entity.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.ID] = ch
	return nil
}

func (s *fakeStore) GetChallengeByID(_ context.Context, id int64) (*entity.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &ch, nil
}

func (s *fakeStore) IncrementChallengeAttempt(_ context.Context, id int64, at time.Time) (int32, error) {
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

func (s *fakeStore) MarkChallengeUsed(_ context.Context, id int64) (bool, error) {
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

func (s *fakeStore) only(t *testing.T) entity.Challenge {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.challenges) != 1 {
		t.Fatalf("expected exactly one challenge, got %d", len(s.challenges))
	}
	for _, ch := range s.challenges {
		return ch
	}
	return entity.Challenge{}
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
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

type fakeNotifier struct {
	mu     sync.Mutex
	emails []string
	sms    []string
	bodies []string
	fail   bool
}

func (n *fakeNotifier) SendEmail(_ context.Context, to, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.emails = append(n.emails, to)
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *fakeNotifier) SendSMS(_ context.Context, to, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("gateway unreachable")
	}
	n.sms = append(n.sms, to)
	n.bodies = append(n.bodies, body)
	return nil
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

// fixedCodes always returns the same code so tests know the right answer.
type fixedCodes struct{ code string }

func (f fixedCodes) Generate() (string, error) { return f.code, nil }

func newTestConfig(t *testing.T) config.Config {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  auth:
    challenge_ttl_minutes: 5
    max_verify_attempts: 5
`))
	if err != nil {
		t.Fatalf("config from bytes failed: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	return cfg
}

type testEnv struct {
	manager  *Manager
	store    *fakeStore
	cache    *memCache
	notifier *fakeNotifier
	clock    *fakeClock
}

func newTestEnv(t *testing.T, code string) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    newFakeStore(),
		cache:    newMemCache(),
		notifier: &fakeNotifier{},
		clock:    &fakeClock{now: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
	}

	env.manager = New(Dependency{
		Store:    env.store,
		Cache:    env.cache,
		Notifier: env.notifier,
		HMAC:     hash.NewHMACSHA256("test-secret"),
		Codes:    fixedCodes{code: code},
		UID:      &seqID{},
		Token:    uid.NewOpaqueToken(),
		Clock:    env.clock,
		Config:   newTestConfig(t),
		Ins:      instrument.NewNoop(),
	})

	return env
}

func TestManagerIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("PhoneGoesOverSMS", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")

		// Act
		contextID, err := env.manager.Issue(ctx, "+84912345678", entity.IdentifierKindPhone)

		// Assert
		if err != nil {
			t.Fatalf("issue returned error: %v", err)
		}
		if contextID == "" {
			t.Fatalf("expected a context handle")
		}
		if len(env.notifier.sms) != 1 || env.notifier.sms[0] != "+84912345678" {
			t.Fatalf("expected one sms to the phone, got %v", env.notifier.sms)
		}
	})

	t.Run("EmailGoesOverMail", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")

		// Act
		_, err := env.manager.Issue(ctx, "user@example.com", entity.IdentifierKindEmail)

		// Assert
		if err != nil {
			t.Fatalf("issue returned error: %v", err)
		}
		if len(env.notifier.emails) != 1 || env.notifier.emails[0] != "user@example.com" {
			t.Fatalf("expected one email, got %v", env.notifier.emails)
		}
	})

	t.Run("CodeNeverStoredInPlaintext", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")

		// Act
		if _, err := env.manager.Issue(ctx, "user@example.com", entity.IdentifierKindEmail); err != nil {
			t.Fatalf("issue returned error: %v", err)
		}

		// Assert
		ch := env.store.only(t)
		if ch.HashedCode == "123456" {
			t.Fatalf("stored code must not equal plaintext")
		}
		if ch.ExpiresAt.Sub(ch.CreatedAt) != 5*time.Minute {
			t.Fatalf("expected 5m lifetime, got %v", ch.ExpiresAt.Sub(ch.CreatedAt))
		}
	})

	t.Run("DeliveryFailureKeepsChallengePersisted", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")
		env.notifier.fail = true

		// Act
		contextID, err := env.manager.Issue(ctx, "+84912345678", entity.IdentifierKindPhone)

		// Assert
		if !errors.Is(err, ErrDelivery) {
			t.Fatalf("expected ErrDelivery, got %v", err)
		}
		if contextID != "" {
			t.Fatalf("expected no handle on delivery failure")
		}
		if len(env.store.challenges) != 1 {
			t.Fatalf("challenge should remain persisted after delivery failure")
		}
	})
}

func TestManagerVerify(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T, env *testEnv) string {
		t.Helper()
		contextID, err := env.manager.Issue(ctx, "+84912345678", entity.IdentifierKindPhone)
		if err != nil {
			t.Fatalf("issue returned error: %v", err)
		}
		return contextID
	}

	t.Run("CorrectCodeSucceedsExactlyOnce", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")
		contextID := issue(t, env)

		// Act
		verified, err := env.manager.Verify(ctx, contextID, "123456")

		// Assert
		if err != nil {
			t.Fatalf("verify returned error: %v", err)
		}
		if verified.Identifier != "+84912345678" || verified.IdentifierKind != entity.IdentifierKindPhone {
			t.Fatalf("unexpected verified principal: %+v", verified)
		}

		// Act again with the same handle and code
		_, err = env.manager.Verify(ctx, contextID, "123456")

		// Assert terminal
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on reuse, got %v", err)
		}
	})

	t.Run("UnknownContextFailsNotFound", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")

		// Act
		_, err := env.manager.Verify(ctx, "no-such-handle", "123456")

		// Assert
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FiveWrongCodesThenExhausted", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")
		contextID := issue(t, env)

		// Act + Assert: five retryable failures
		for i := 0; i < 5; i++ {
			_, err := env.manager.Verify(ctx, contextID, "000000")
			if !errors.Is(err, ErrInvalidCode) {
				t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i+1, err)
			}
		}

		// Assert: sixth trips the budget
		_, err := env.manager.Verify(ctx, contextID, "000000")
		if !errors.Is(err, ErrAttemptsExhausted) {
			t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
		}

		// Assert: even the right code can never succeed now
		_, err = env.manager.Verify(ctx, contextID, "123456")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after exhaustion, got %v", err)
		}
	})

	t.Run("ExpiredChallengeFailsRegardlessOfCode", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")
		contextID := issue(t, env)
		env.clock.Advance(6 * time.Minute)

		// Act
		_, err := env.manager.Verify(ctx, contextID, "123456")

		// Assert
		if !errors.Is(err, ErrExpired) {
			t.Fatalf("expected ErrExpired, got %v", err)
		}

		// Assert terminal
		_, err = env.manager.Verify(ctx, contextID, "123456")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after expiry, got %v", err)
		}
	})

	t.Run("ParallelWrongCodesLoseNoIncrement", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")
		contextID := issue(t, env)

		// Act
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = env.manager.Verify(ctx, contextID, "999999")
			}()
		}
		wg.Wait()

		// Assert
		if got := env.store.only(t).AttemptCount; got != 2 {
			t.Fatalf("expected attempt count 2, got %d", got)
		}
	})

	t.Run("ParallelCorrectCodesSingleWinner", func(t *testing.T) {

		// Arrange
		env := newTestEnv(t, "123456")
		contextID := issue(t, env)

		// Act
		results := make(chan error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.manager.Verify(ctx, contextID, "123456")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		// Assert
		var successes int
		for err := range results {
			if err == nil {
				successes++
			} else if !errors.Is(err, ErrNotFound) {
				t.Fatalf("loser should fail ErrNotFound, got %v", err)
			}
		}
		if successes != 1 {
			t.Fatalf("expected exactly one success, got %d", successes)
		}
	})
}
