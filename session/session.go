// Package session implements the server-side session cache backing issued
// bearer tokens. A signed token is necessary but not sufficient: the cache
// entry here is the final authority on session lifetime, which is what makes
// early invalidation and sliding expiry possible with a self-contained token.
package session

// Session is one cache entry: the authenticated identity snapshot plus
// lifetime bookkeeping. LastAccessAt never exceeds ExpiresAt, and ExpiresAt
// always equals LastAccessAt plus the configured TTL.
type Session struct {
	SessionID   string
	UserID      string
	Username    string
	IP          string
	Permissions []string

	LoginAt      int64
	CreatedAt    int64
	LastAccessAt int64
	ExpiresAt    int64
}
