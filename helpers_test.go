package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

// testConfig keeps argon2 at the cheap end so tests stay fast.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.PrivateKey = []byte("test-signing-secret-0123456789abcdef")
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

type profileUpdate struct {
	UserID  string
	IP      string
	LoginAt time.Time
}

type mockUserProvider struct {
	mu        sync.Mutex
	users     map[string]UserRecord // keyed by username
	lookupErr error
	createErr error
	profiles  []profileUpdate
	profileCh chan profileUpdate
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:     map[string]UserRecord{},
		profileCh: make(chan profileUpdate, 8),
	}
}

func (p *mockUserProvider) GetUserByUsername(_ context.Context, username string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lookupErr != nil {
		return UserRecord{}, p.lookupErr
	}
	user, ok := p.users[username]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (p *mockUserProvider) UpdateLoginProfile(_ context.Context, userID, ip string, loginAt time.Time) error {
	p.mu.Lock()
	update := profileUpdate{UserID: userID, IP: ip, LoginAt: loginAt}
	p.profiles = append(p.profiles, update)
	p.mu.Unlock()

	select {
	case p.profileCh <- update:
	default:
	}
	return nil
}

func (p *mockUserProvider) CreateUser(_ context.Context, input CreateUserInput) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return p.createErr
	}
	if _, ok := p.users[input.Username]; ok {
		return ErrUserExists
	}
	p.users[input.Username] = UserRecord{
		UserID:       "u-" + input.Username,
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		Status:       AccountActive,
	}
	return nil
}

// captureSink records every emitted event in order.
type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) Events() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// waitForEvents polls until the sink saw n events or the deadline passed.
func waitForEvents(t *testing.T, sink *captureSink, n int) []AuditEvent {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events := sink.Events()
		if len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d audit events, saw %d", n, len(sink.Events()))
	return nil
}

type engineOption func(*Builder)

func withSettings(cp ConfigProvider) engineOption {
	return func(b *Builder) { b.WithConfigProvider(cp) }
}

func withSink(sink AuditSink) engineOption {
	return func(b *Builder) { b.WithAuditSink(sink) }
}

func withConfig(cfg Config) engineOption {
	return func(b *Builder) { b.WithConfig(cfg) }
}

func newTestEngine(t *testing.T, up UserProvider, opts ...engineOption) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	builder := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserProvider(up)
	for _, opt := range opts {
		opt(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

// seedUser registers a user with the given plaintext password and returns
// the stored record.
func seedUser(t *testing.T, engine *Engine, up *mockUserProvider, username, plaintext string, status AccountStatus) UserRecord {
	t.Helper()

	hash, err := engine.verifier.hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	record := UserRecord{
		UserID:       "u-" + username,
		Username:     username,
		PasswordHash: hash,
		Status:       status,
		Permissions:  []string{"system:user:list"},
	}
	up.mu.Lock()
	up.users[username] = record
	up.mu.Unlock()
	return record
}
