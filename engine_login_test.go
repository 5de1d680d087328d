package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLoginSuccessWithoutCaptcha(t *testing.T) {
	up := newMockUserProvider()
	sink := &captureSink{}
	engine, _, done := newTestEngine(t, up, withSink(sink))
	defer done()

	seedUser(t, engine, up, "alice", "correct-horse", AccountActive)

	token, err := engine.Login(context.Background(), "alice", "correct-horse", "", "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	user, err := engine.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("expected alice, got %q", user.Username)
	}
	if user.UserID != "u-alice" {
		t.Fatalf("unexpected user ID %q", user.UserID)
	}

	events := waitForEvents(t, sink, 1)
	if !events[0].Success || events[0].Detail != "login success" {
		t.Fatalf("unexpected audit event: %+v", events[0])
	}
}

func TestLoginRecordsClientIP(t *testing.T) {
	up := newMockUserProvider()
	engine, _, done := newTestEngine(t, up)
	defer done()

	seedUser(t, engine, up, "alice", "correct-horse", AccountActive)

	ctx := WithClientIP(context.Background(), "203.0.113.1")
	token, err := engine.Login(ctx, "alice", "correct-horse", "", "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	user, err := engine.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.IP != "203.0.113.1" {
		t.Fatalf("expected recorded IP, got %q", user.IP)
	}

	// Profile write is fire-and-forget but must eventually land.
	select {
	case update := <-up.profileCh:
		if update.UserID != "u-alice" || update.IP != "203.0.113.1" {
			t.Fatalf("unexpected profile update: %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for login profile update")
	}
}

func TestLoginWrongPasswordAuditsMismatch(t *testing.T) {
	up := newMockUserProvider()
	sink := &captureSink{}
	engine, _, done := newTestEngine(t, up, withSink(sink))
	defer done()

	seedUser(t, engine, up, "alice", "correct-horse", AccountActive)

	for i := 0; i < 3; i++ {
		if _, err := engine.Login(context.Background(), "alice", "wrong", "", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	events := waitForEvents(t, sink, 3)
	for i, event := range events[:3] {
		if event.Success {
			t.Fatalf("event %d: expected failure", i)
		}
		if event.Detail != "password mismatch" {
			t.Fatalf("event %d: expected detail %q, got %q", i, "password mismatch", event.Detail)
		}
		if event.Username != "alice" {
			t.Fatalf("event %d: unexpected username %q", i, event.Username)
		}
	}

	// No lockout: the account stays usable.
	if _, err := engine.Login(context.Background(), "alice", "correct-horse", "", ""); err != nil {
		t.Fatalf("login after failures should succeed, got %v", err)
	}
}

func TestLoginUnknownUserIsInvalidCredentials(t *testing.T) {
	up := newMockUserProvider()
	engine, _, done := newTestEngine(t, up)
	defer done()

	if _, err := engine.Login(context.Background(), "ghost", "whatever", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginDisabledAccountCarriesRawDetail(t *testing.T) {
	up := newMockUserProvider()
	sink := &captureSink{}
	engine, _, done := newTestEngine(t, up, withSink(sink))
	defer done()

	seedUser(t, engine, up, "bob", "correct-horse", AccountDisabled)

	if _, err := engine.Login(context.Background(), "bob", "correct-horse", "", ""); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}

	events := waitForEvents(t, sink, 1)
	if events[0].Success || events[0].Detail != ErrAccountDisabled.Error() {
		t.Fatalf("unexpected audit event: %+v", events[0])
	}
}

func TestLoginInfrastructureErrorPropagatesUnclassified(t *testing.T) {
	up := newMockUserProvider()
	sink := &captureSink{}
	engine, _, done := newTestEngine(t, up, withSink(sink))
	defer done()

	up.mu.Lock()
	up.lookupErr = errors.New("user table unreachable")
	up.mu.Unlock()

	_, err := engine.Login(context.Background(), "alice", "pw", "", "")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected unclassified error, got %v", err)
	}

	events := waitForEvents(t, sink, 1)
	if events[0].Detail == "" || events[0].Detail == "password mismatch" {
		t.Fatalf("expected raw detail, got %q", events[0].Detail)
	}
}

func TestLoginCaptchaCaseInsensitiveAndSingleUse(t *testing.T) {
	up := newMockUserProvider()
	engine, _, done := newTestEngine(t, up, withSettings(StaticConfigProvider{Captcha: true}))
	defer done()

	seedUser(t, engine, up, "alice", "correct-horse", AccountActive)
	ctx := context.Background()

	key, err := engine.NewCaptcha(ctx, "AB12")
	if err != nil {
		t.Fatalf("new captcha failed: %v", err)
	}

	if _, err := engine.Login(ctx, "alice", "correct-horse", "ab12", key); err != nil {
		t.Fatalf("case-insensitive captcha match should succeed: %v", err)
	}

	// The entry is consumed; replaying the same key is a definitive expiry.
	if _, err := engine.Login(ctx, "alice", "correct-horse", "ab12", key); !errors.Is(err, ErrCaptchaExpired) {
		t.Fatalf("expected ErrCaptchaExpired on replay, got %v", err)
	}
}

func TestLoginCaptchaMismatchConsumesEntry(t *testing.T) {
	up := newMockUserProvider()
	sink := &captureSink{}
	engine, _, done := newTestEngine(t, up,
		withSettings(StaticConfigProvider{Captcha: true}), withSink(sink))
	defer done()

	seedUser(t, engine, up, "alice", "correct-horse", AccountActive)
	ctx := context.Background()

	key, err := engine.NewCaptcha(ctx, "AB12")
	if err != nil {
		t.Fatalf("new captcha failed: %v", err)
	}

	if _, err := engine.Login(ctx, "alice", "correct-horse", "XY99", key); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected ErrCaptchaInvalid, got %v", err)
	}

	events := waitForEvents(t, sink, 1)
	if events[0].Detail != "captcha error" {
		t.Fatalf("expected fixed captcha error detail, got %q", events[0].Detail)
	}

	// Consumed on mismatch too: retrying with the right code cannot succeed.
	if _, err := engine.Login(ctx, "alice", "correct-horse", "AB12", key); !errors.Is(err, ErrCaptchaExpired) {
		t.Fatalf("expected ErrCaptchaExpired after failed consume, got %v", err)
	}
}

func TestLoginCaptchaExpiredAudited(t *testing.T) {
	up := newMockUserProvider()
	sink := &captureSink{}
	engine, _, done := newTestEngine(t, up,
		withSettings(StaticConfigProvider{Captcha: true}), withSink(sink))
	defer done()

	seedUser(t, engine, up, "alice", "correct-horse", AccountActive)

	if _, err := engine.Login(context.Background(), "alice", "correct-horse", "AB12", "never-stored"); !errors.Is(err, ErrCaptchaExpired) {
		t.Fatalf("expected ErrCaptchaExpired, got %v", err)
	}

	events := waitForEvents(t, sink, 1)
	if events[0].Success || events[0].Detail != "captcha expired" {
		t.Fatalf("unexpected audit event: %+v", events[0])
	}
}

func TestLoginCaptchaDisabledIgnoresCode(t *testing.T) {
	up := newMockUserProvider()
	engine, _, done := newTestEngine(t, up, withSettings(StaticConfigProvider{Captcha: false}))
	defer done()

	seedUser(t, engine, up, "alice", "correct-horse", AccountActive)

	if _, err := engine.Login(context.Background(), "alice", "correct-horse", "garbage", "garbage"); err != nil {
		t.Fatalf("captcha disabled should skip validation: %v", err)
	}
}

func TestLoginEndToEndCaptchaFlow(t *testing.T) {
	up := newMockUserProvider()
	engine, _, done := newTestEngine(t, up, withSettings(StaticConfigProvider{Captcha: true}))
	defer done()

	seedUser(t, engine, up, "alice", "correct-horse", AccountActive)
	ctx := context.Background()

	key, err := engine.NewCaptcha(ctx, "AB12")
	if err != nil {
		t.Fatalf("new captcha failed: %v", err)
	}

	token, err := engine.Login(ctx, "alice", "correct-horse", "ab12", key)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, token); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}

	// Stored entry for the key must be gone afterwards.
	if _, err := engine.captcha.Consume(ctx, key); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected consumed captcha entry, got %v", err)
	}
}
