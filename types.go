package authcore

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	AccountActive AccountStatus = iota
	AccountDisabled
	AccountLocked
)

// LoginUser is the authenticated identity snapshot held by the session
// cache. Copies handed to request handlers are read-only views; the cache
// entry is authoritative for session lifetime.
type LoginUser struct {
	UserID      string
	Username    string
	Permissions []string
	IP          string
	LoginAt     time.Time
	SessionID   string
}

// UserRecord is the account record returned by a [UserProvider].
type UserRecord struct {
	UserID       string
	Username     string
	PasswordHash string
	Status       AccountStatus
	Permissions  []string
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	Username     string
	PasswordHash string
}

// UserProvider is the user-store collaborator. Lookups return
// [ErrUserNotFound] for missing accounts and [ErrUserExists] for duplicate
// creation; any other error is treated as an infrastructure failure.
type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
	UpdateLoginProfile(ctx context.Context, userID, ip string, loginAt time.Time) error
	CreateUser(ctx context.Context, input CreateUserInput) error
}

// ConfigProvider exposes the dynamic switches owned by the back-office
// configuration service.
type ConfigProvider interface {
	CaptchaEnabled(ctx context.Context) bool
	RegisterEnabled(ctx context.Context) bool
}

// StaticConfigProvider is a ConfigProvider with fixed answers. Useful in
// tests and in deployments without a live configuration service.
type StaticConfigProvider struct {
	Captcha  bool
	Register bool
}

func (p StaticConfigProvider) CaptchaEnabled(context.Context) bool  { return p.Captcha }
func (p StaticConfigProvider) RegisterEnabled(context.Context) bool { return p.Register }
