package authcore

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/adminforge/authcore/jwt"
	"github.com/adminforge/authcore/session"
)

// Audit detail strings. The password-mismatch and captcha details are fixed
// wording that downstream log consumers match on.
const (
	auditLoginSuccess     = "login success"
	auditPasswordMismatch = "password mismatch"
	auditCaptchaExpired   = "captcha expired"
	auditCaptchaError     = "captcha error"
	auditRegisterSuccess  = "register success"
)

// Engine composes the captcha store, credential verifier, session cache,
// token manager, and audit dispatcher into the login and request
// authentication flows. Build one with [New]; immutable afterwards.
type Engine struct {
	config       Config
	sessionStore *session.Store
	captcha      *captchaStore
	jwtManager   *jwt.Manager
	verifier     *credentialVerifier
	audit        *auditDispatcher
	metrics      *Metrics
	users        UserProvider
	settings     ConfigProvider
}

// Close stops the audit worker after draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// TokenHeader returns the configured request header carrying the bearer token.
func (e *Engine) TokenHeader() string {
	return e.config.Token.Header
}

// AuditDropped reports how many audit events the dispatcher dropped.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, username string, success bool, detail string) {
	if e.audit == nil {
		return
	}
	e.audit.Emit(ctx, AuditEvent{
		Timestamp: time.Now(),
		Username:  username,
		Success:   success,
		Detail:    detail,
		IP:        clientIPFromContext(ctx),
	})
}

// Login runs the end-to-end login flow: optional captcha consume, credential
// verification, audit submission, and token issuance. The audit event for an
// attempt is submitted before Login returns but its delivery is not awaited.
// code and captchaKey are ignored while the configuration collaborator
// reports captcha disabled.
func (e *Engine) Login(ctx context.Context, username, password, code, captchaKey string) (string, error) {
	if e == nil || e.verifier == nil || e.sessionStore == nil {
		return "", ErrEngineNotReady
	}

	if e.settings != nil && e.settings.CaptchaEnabled(ctx) {
		if err := e.validateCaptcha(ctx, username, code, captchaKey); err != nil {
			return "", err
		}
	}

	user, err := e.verifier.Authenticate(ctx, username, password)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		if errors.Is(err, ErrInvalidCredentials) {
			e.emitAudit(ctx, username, false, auditPasswordMismatch)
			return "", ErrInvalidCredentials
		}
		// Account-unavailable and unclassified verifier failures carry the
		// raw error message into the audit detail.
		e.emitAudit(ctx, username, false, err.Error())
		return "", err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, username, true, auditLoginSuccess)
	e.recordLoginProfile(ctx, user.UserID)

	return e.issueToken(ctx, user)
}

// validateCaptcha consumes the stored entry for captchaKey and compares
// case-insensitively. The entry is consumed regardless of match outcome.
func (e *Engine) validateCaptcha(ctx context.Context, username, code, captchaKey string) error {
	stored, err := e.captcha.Consume(ctx, captchaKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			e.metricInc(MetricLoginFailure)
			e.metricInc(MetricCaptchaFailure)
			e.emitAudit(ctx, username, false, auditCaptchaExpired)
			return ErrCaptchaExpired
		}
		return err
	}

	if !strings.EqualFold(code, stored) {
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricCaptchaFailure)
		e.emitAudit(ctx, username, false, auditCaptchaError)
		return ErrCaptchaInvalid
	}

	return nil
}

// recordLoginProfile submits the login-metadata write to the user store
// without blocking the caller. A failed write is logged and otherwise
// ignored; the issued token never depends on it.
func (e *Engine) recordLoginProfile(ctx context.Context, userID string) {
	ip := clientIPFromContext(ctx)
	loginAt := time.Now()
	go func() {
		if err := e.users.UpdateLoginProfile(context.Background(), userID, ip, loginAt); err != nil {
			log.Print("authcore: login profile update failed")
		}
	}()
}

func (e *Engine) issueToken(ctx context.Context, user UserRecord) (string, error) {
	now := time.Now()
	sess := &session.Session{
		SessionID:    uuid.NewString(),
		UserID:       user.UserID,
		Username:     user.Username,
		IP:           clientIPFromContext(ctx),
		Permissions:  user.Permissions,
		LoginAt:      now.Unix(),
		CreatedAt:    now.Unix(),
		LastAccessAt: now.Unix(),
		ExpiresAt:    now.Add(e.config.Session.TTL).Unix(),
	}

	if err := e.sessionStore.Create(ctx, sess); err != nil {
		return "", err
	}

	return e.jwtManager.Issue(sess.SessionID)
}

// Authenticate verifies a bearer token and resolves it to the cached
// identity. A valid signature is necessary but not sufficient: the backing
// session entry must still exist. On success the session's last-access IP is
// re-stamped when the caller's IP changed, and the sliding-expiry refresh
// policy is applied.
func (e *Engine) Authenticate(ctx context.Context, rawToken string) (*LoginUser, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if rawToken == "" {
		return nil, ErrTokenMissing
	}

	claims, err := e.jwtManager.Parse(rawToken)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	sess, err := e.sessionStore.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			e.metricInc(MetricTokenRejected)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if ip := clientIPFromContext(ctx); ip != "" && ip != sess.IP {
		sess.IP = ip
		if err := e.sessionStore.Update(ctx, sess); err != nil && !errors.Is(err, redis.Nil) {
			log.Print("authcore: session ip update failed")
		}
	}

	refreshed, err := e.sessionStore.Refresh(ctx, sess)
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Print("authcore: session refresh failed")
	}
	if refreshed {
		e.metricInc(MetricSessionRefreshed)
	}

	e.metricInc(MetricTokenVerified)
	return &LoginUser{
		UserID:      sess.UserID,
		Username:    sess.Username,
		Permissions: sess.Permissions,
		IP:          sess.IP,
		LoginAt:     time.Unix(sess.LoginAt, 0),
		SessionID:   sess.SessionID,
	}, nil
}

// Logout tears down the session behind rawToken. Best effort: the backing
// entry is removed whenever a session identifier can be extracted, even from
// a token that no longer validates. A terminal state; no way back but a
// fresh login.
func (e *Engine) Logout(ctx context.Context, rawToken string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if rawToken == "" {
		return nil
	}

	sessionID, ok := e.jwtManager.ExtractSessionID(rawToken)
	if !ok {
		return nil
	}

	if err := e.sessionStore.Invalidate(ctx, sessionID); err != nil {
		return err
	}
	e.metricInc(MetricSessionInvalidated)
	e.metricInc(MetricLogout)
	return nil
}

// NewCaptcha stores code under a fresh uuid key with the configured TTL and
// returns the key. The caller renders the challenge; this module only owns
// the single-use store side.
func (e *Engine) NewCaptcha(ctx context.Context, code string) (string, error) {
	if e == nil || e.captcha == nil {
		return "", ErrEngineNotReady
	}

	key := uuid.NewString()
	if err := e.captcha.Put(ctx, key, code, e.config.Captcha.TTL); err != nil {
		return "", err
	}
	return key, nil
}
