package authcore

import (
	"context"
	"errors"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 20
	minPasswordLen = 5
	maxPasswordLen = 20
)

// Register creates a new account when the configuration collaborator has
// registration switched on. Everything past the enabled flag and basic
// length checks belongs to the user store.
func (e *Engine) Register(ctx context.Context, username, password string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if e.settings == nil || !e.settings.RegisterEnabled(ctx) {
		return ErrRegistrationDisabled
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		e.metricInc(MetricRegisterFailure)
		return ErrRegistrationInvalid
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		e.metricInc(MetricRegisterFailure)
		return ErrRegistrationInvalid
	}

	hash, err := e.verifier.hasher.Hash(password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		return err
	}

	if err := e.users.CreateUser(ctx, CreateUserInput{
		Username:     username,
		PasswordHash: hash,
	}); err != nil {
		e.metricInc(MetricRegisterFailure)
		if errors.Is(err, ErrUserExists) {
			return ErrUserExists
		}
		return err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, username, true, auditRegisterSuccess)
	return nil
}
