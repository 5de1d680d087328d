package authcore

import (
	"errors"
	"time"
)

// Config carries all static engine settings. Dynamic switches (captcha
// on/off, registration on/off) live on the [ConfigProvider] collaborator
// instead, so they can change without rebuilding the engine.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Captcha  CaptchaConfig
	Audit    AuditConfig
	Password PasswordConfig
	Metrics  MetricsConfig
}

// TokenConfig configures the signed bearer token.
type TokenConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	// Header is the request header carrying the bearer token.
	Header string
}

// SessionConfig configures the server-side session cache.
type SessionConfig struct {
	RedisPrefix string
	// TTL is the sliding session lifetime. Every qualifying refresh resets
	// expiry to lastAccess + TTL.
	TTL time.Duration
	// RefreshThreshold is the fraction of TTL below which a verify call
	// refreshes the session. 2/3 with a 30m TTL means: refresh once less
	// than 20 minutes remain.
	RefreshThreshold float64
}

// CaptchaConfig configures the single-use captcha store.
type CaptchaConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops the event when the buffer is full instead of
	// blocking the login path. Off means Emit blocks until the worker
	// catches up or the caller's context is cancelled.
	DropIfFull bool
}

// PasswordConfig carries argon2id parameters for the credential verifier.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration defaults. A token signing key must
// still be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: "hs256",
			Header:        "Authorization",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:      "login_tokens",
			TTL:              30 * time.Minute,
			RefreshThreshold: 2.0 / 3.0,
		},
		Captcha: CaptchaConfig{
			RedisPrefix: "captcha_codes",
			TTL:         2 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if cfg.Session.RefreshThreshold <= 0 || cfg.Session.RefreshThreshold >= 1 {
		return errors.New("session refresh threshold must be in (0, 1)")
	}
	if cfg.Captcha.TTL <= 0 {
		return errors.New("captcha TTL must be positive")
	}
	if cfg.Token.Header == "" {
		return errors.New("token header must not be empty")
	}
	return nil
}
