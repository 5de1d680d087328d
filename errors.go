package authcore

import "errors"

var (
	// ErrCaptchaExpired is returned when the captcha entry for the supplied
	// key is missing or was already consumed.
	ErrCaptchaExpired = errors.New("captcha expired")
	// ErrCaptchaInvalid is returned when the submitted code does not match
	// the stored captcha code.
	ErrCaptchaInvalid = errors.New("captcha invalid")
	// ErrInvalidCredentials is returned for an unknown username or a
	// password mismatch. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is the sentinel a UserProvider returns for a missing
	// account. The engine maps it to ErrInvalidCredentials before it reaches
	// a caller.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountDisabled is an account-unavailable classification passed
	// through from the credential verifier.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked is an account-unavailable classification passed
	// through from the credential verifier.
	ErrAccountLocked = errors.New("account locked")

	// ErrTokenMissing is returned when no bearer token was supplied.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed is returned when the token fails structural or
	// signature validation.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned when the token's embedded expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionNotFound is returned when a structurally valid token points
	// at a session entry that no longer exists. Callers should treat it the
	// same as ErrTokenExpired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRegistrationDisabled is returned by Register when the configuration
	// collaborator reports registration switched off.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrRegistrationInvalid is returned by Register for usernames or
	// passwords outside the accepted length bounds.
	ErrRegistrationInvalid = errors.New("invalid registration request")
	// ErrUserExists is returned by a UserProvider when the username is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrRedisUnavailable wraps transport failures talking to the shared store.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrEngineNotReady is returned when the engine was built without a
	// required collaborator.
	ErrEngineNotReady = errors.New("engine not initialized")
)
