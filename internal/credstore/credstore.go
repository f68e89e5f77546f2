// Package credstore persists the bearer token and cached profile across
// process restarts. Both values live under a fixed namespace and are always
// written and cleared together in one transaction: a crash can never leave a
// token behind without its matching profile, or vice versa.
package credstore

// Store is the durable key-value home of the current credentials.
type Store interface {
	// Load returns the stored token and serialized profile. Absent
	// credentials come back as empty values with a nil error.
	Load() (token string, profile []byte, err error)
	// Put atomically replaces both stored values.
	Put(token string, profile []byte) error
	// Clear atomically removes both stored values.
	Clear() error
	Close() error
}

const (
	namespace  = "limited"
	tokenKey   = "limited_token"
	profileKey = "limited_user"
)
