package types

const ContextUserKey = "user"

// DefaultCookieName is used when auth.cookieName is not configured.
const DefaultCookieName = "token"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)
