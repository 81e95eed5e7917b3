package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/config"
	"eduplatform/internal/models"
	"eduplatform/internal/repository/repofake"
	"eduplatform/internal/security"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc        *AuthService
	identities *repofake.Identities
	sessions   *repofake.Sessions
	events     *repofake.Events
	oneTime    *repofake.OneTime
	hasher     *security.PasswordHasher
	tokens     *security.TokenIssuer
	ledger     *SessionLedger
	clock      *testClock
}

func setupTestFixture(t *testing.T, policy RolePolicy, cfg config.SecurityConfig) *fixture {
	t.Helper()

	clock := &testClock{now: time.Now().Truncate(time.Second)}
	f := &fixture{
		identities: repofake.NewIdentities(),
		sessions:   repofake.NewSessions(),
		events:     repofake.NewEvents(),
		oneTime:    repofake.NewOneTime(),
		hasher: security.NewPasswordHasher(security.Argon2Params{
			Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
		}),
		clock: clock,
	}
	f.oneTime.SetClock(clock.Now)

	tokens, err := security.NewTokenIssuer("test-secret", security.WithNow(clock.Now))
	require.NoError(t, err)
	f.tokens = tokens

	log := zerolog.Nop()
	f.ledger = NewSessionLedger(f.sessions, log, WithLedgerClock(clock.Now))
	audit := NewAuditLog(f.events, log, WithAuditClock(clock.Now))

	svc, err := NewAuthService(policy, Dependencies{
		Identities: f.identities,
		Ledger:     f.ledger,
		Audit:      audit,
		OneTime:    f.oneTime,
		Hasher:     f.hasher,
		Tokens:     f.tokens,
	}, cfg, log, WithClock(clock.Now))
	require.NoError(t, err)
	f.svc = svc

	return f
}

// seed stores an identity of role with the given password directly in the fake store.
func (f *fixture) seed(t *testing.T, id, email, password string, role models.Role) models.Identity {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	identity := models.Identity{
		ID:           id,
		Email:        email,
		PasswordHash: &hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		Active:       true,
	}
	f.identities.Put(identity)
	return identity
}

func (f *fixture) login(t *testing.T, email, password string) LoginResult {
	t.Helper()
	result, err := f.svc.Login(context.Background(), LoginInput{Email: email, Password: password, Origin: testOrigin})
	require.NoError(t, err)
	return result
}

var testOrigin = Origin{Address: "203.0.113.7", Agent: "test-agent"}
