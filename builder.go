package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adminforge/authcore/jwt"
	"github.com/adminforge/authcore/password"
	"github.com/adminforge/authcore/session"
)

// Builder assembles an [Engine]. Collaborators (Redis client, user store,
// configuration service, audit sink) are injected here; everything else
// comes from [Config].
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider   UserProvider
	configProvider ConfigProvider
	auditSink      AuditSink

	built bool
}

// New returns a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithConfigProvider(cp ConfigProvider) *Builder {
	b.configProvider = cp
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and wires the engine. A builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// The token's embedded expiry is an absolute cap; effective validity is
	// governed by the sliding session entry, so the cap must sit beyond the
	// session TTL or active sessions would be cut short mid-use.
	tokenTTL := b.config.Session.TTL * 24
	jwtManager, err := jwt.NewManager(jwt.Config{
		TTL:           tokenTTL,
		SigningMethod: jwt.SigningMethod(b.config.Token.SigningMethod),
		PrivateKey:    b.config.Token.PrivateKey,
		PublicKey:     b.config.Token.PublicKey,
		Issuer:        b.config.Token.Issuer,
		Leeway:        b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	refreshWindow := time.Duration(float64(b.config.Session.TTL) * b.config.Session.RefreshThreshold)

	engine := &Engine{
		config: b.config,
		sessionStore: session.NewStore(
			b.redis,
			b.config.Session.RedisPrefix,
			b.config.Session.TTL,
			refreshWindow,
		),
		captcha:    newCaptchaStore(b.redis, b.config.Captcha.RedisPrefix),
		jwtManager: jwtManager,
		verifier: &credentialVerifier{
			users:  b.userProvider,
			hasher: hasher,
		},
		audit:    newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:  NewMetrics(b.config.Metrics),
		users:    b.userProvider,
		settings: b.configProvider,
	}

	b.built = true
	return engine, nil
}
