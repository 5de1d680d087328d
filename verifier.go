package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/adminforge/authcore/password"
)

// credentialVerifier checks a username/password pair against the user store.
// Outcomes are classified: bad username and bad password both map to
// ErrInvalidCredentials, unavailable accounts to their status error, and
// anything else propagates unclassified with the underlying message intact.
type credentialVerifier struct {
	users  UserProvider
	hasher *password.Hasher
}

func (v *credentialVerifier) Authenticate(ctx context.Context, username, plaintext string) (UserRecord, error) {
	if plaintext == "" {
		return UserRecord{}, ErrInvalidCredentials
	}

	user, err := v.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrInvalidCredentials
		}
		return UserRecord{}, fmt.Errorf("user lookup failed: %w", err)
	}

	ok, err := v.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return UserRecord{}, fmt.Errorf("password verification failed: %w", err)
	}
	if !ok {
		return UserRecord{}, ErrInvalidCredentials
	}

	switch user.Status {
	case AccountDisabled:
		return UserRecord{}, ErrAccountDisabled
	case AccountLocked:
		return UserRecord{}, ErrAccountLocked
	}

	return user, nil
}
