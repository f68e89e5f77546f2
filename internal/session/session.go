// Package session owns the authentication state machine. Exactly one
// Manager exists per process; it is the single source of truth for "am I
// logged in", wraps the credential store, and supplies the bearer token the
// API client attaches to outbound calls.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bgoutham/limited/internal/credstore"
	"github.com/bgoutham/limited/pkg/api/client"
	"github.com/bgoutham/limited/pkg/token"
)

// Status describes the session lifecycle.
type Status int

const (
	StatusUninitialized Status = iota
	StatusRestoring
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusRestoring:
		return "restoring"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrNotAuthenticated is returned by profile operations when no session is
// active.
var ErrNotAuthenticated = errors.New("not authenticated")

// Config wires a Manager together.
type Config struct {
	BaseURL    string
	Store      credstore.Store
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Manager drives the session state machine. All mutating operations assume
// at most one in-flight call at a time (callers disable their triggering
// control); the internal mutex only protects field access, not operation
// ordering.
type Manager struct {
	api    *client.Client
	store  credstore.Store
	logger *slog.Logger

	mu       sync.RWMutex
	status   Status
	token    string
	user     client.User
	profile  []byte
	restored bool
}

// NewManager builds the Manager and the API client it owns. The client
// reads the bearer token from the Manager at request time, so there is no
// window where a call carries a stale token after logout or no token after
// a successful login.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: credential store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		store:  cfg.Store,
		logger: logger,
		status: StatusUninitialized,
	}
	opts := []client.Option{
		client.WithTokenSource(m),
		client.WithUnauthorizedHandler(m.invalidate),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, client.WithHTTPClient(cfg.HTTPClient))
	}
	api, err := client.New(cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	m.api = api
	return m, nil
}

// API exposes the client bound to this session for catalog reads and
// investment submission.
func (m *Manager) API() *client.Client { return m.api }

// Token implements client.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Status reports the current session status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsAuthenticated reports whether a token and profile are both present.
func (m *Manager) IsAuthenticated() bool {
	return m.Status() == StatusAuthenticated
}

// User returns the cached profile. The copy may be stale until
// RefreshProfile is called.
func (m *Manager) User() (client.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.status == StatusAuthenticated
}

// TokenExpiry reports when the stored bearer token lapses, when readable.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	return token.Expiry(m.Token())
}

// Restore initializes the session from the credential store. It runs once
// per process lifetime, before any protected view renders; later calls are
// no-ops. Status becomes authenticated only when both the token and the
// profile were persisted.
func (m *Manager) Restore() error {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return nil
	}
	m.restored = true
	m.status = StatusRestoring
	m.mu.Unlock()

	storedToken, profile, err := m.store.Load()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.status = StatusAnonymous
		return fmt.Errorf("restore credentials: %w", err)
	}
	if storedToken == "" || len(profile) == 0 {
		m.status = StatusAnonymous
		return nil
	}
	var user client.User
	if err := json.Unmarshal(profile, &user); err != nil {
		m.logger.Warn("stored profile unreadable, starting anonymous", "error", err)
		m.status = StatusAnonymous
		return nil
	}
	m.token = storedToken
	m.user = user
	m.profile = append([]byte(nil), profile...)
	m.status = StatusAuthenticated
	if token.Expired(storedToken, time.Now()) {
		m.logger.Warn("restored token is past its expiry; next authorized call will re-route to login")
	}
	m.logger.Info("session restored", "user_id", user.ID)
	return nil
}

// Register forwards account creation to the backend. It deliberately does
// not mutate the session: registration alone does not authenticate.
func (m *Manager) Register(ctx context.Context, input client.RegisterInput) (client.User, error) {
	user, err := m.api.Register(ctx, input)
	if err != nil {
		return client.User{}, err
	}
	m.logger.Info("account registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login exchanges credentials for a token and profile. Memory and the
// credential store are updated together: if persisting fails the in-memory
// session is left untouched and the error is surfaced.
func (m *Manager) Login(ctx context.Context, email, password string) (client.User, error) {
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return client.User{}, err
	}
	profile, err := json.Marshal(resp.User)
	if err != nil {
		return client.User{}, fmt.Errorf("encode profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Put(resp.AccessToken, profile); err != nil {
		return client.User{}, fmt.Errorf("persist credentials: %w", err)
	}
	m.token = resp.AccessToken
	m.user = resp.User
	m.profile = profile
	m.status = StatusAuthenticated

	if exp, ok := token.Expiry(resp.AccessToken); ok {
		m.logger.Info("signed in", "user_id", resp.User.ID, "token_expires", exp)
	} else {
		m.logger.Info("signed in", "user_id", resp.User.ID)
	}
	return resp.User, nil
}

// Logout clears the session and the credential store. It never fails: a
// store error is logged and the in-memory session is torn down regardless,
// so no further call can carry the old token.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = client.User{}
	m.profile = nil
	m.status = StatusAnonymous
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing credential store failed", "error", err)
	}
	m.logger.Info("signed out")
}

// invalidate handles a 401 on any call that carried the current token:
// the stale session self-heals to anonymous.
func (m *Manager) invalidate() {
	m.logger.Warn("bearer token rejected by backend, clearing session")
	m.Logout()
}

// RefreshProfile fetches the profile under the existing token and updates
// the cached copy. A 401 has already torn the session down via the client's
// unauthorized hook by the time the error propagates.
func (m *Manager) RefreshProfile(ctx context.Context) (client.User, error) {
	if m.Token() == "" {
		return client.User{}, ErrNotAuthenticated
	}
	user, err := m.api.Me(ctx)
	if err != nil {
		return client.User{}, err
	}
	profile, err := json.Marshal(user)
	if err != nil {
		return client.User{}, fmt.Errorf("encode profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusAuthenticated {
		// Session was torn down while the call was in flight.
		return client.User{}, ErrNotAuthenticated
	}
	if err := m.store.Put(m.token, profile); err != nil {
		m.logger.Warn("persisting refreshed profile failed", "error", err)
	}
	m.user = user
	m.profile = profile
	return user, nil
}

// UpdateProfile sends a partial update and merges the returned fields over
// the cached profile, in memory and in the store. Fields the backend did
// not echo back keep their prior values.
func (m *Manager) UpdateProfile(ctx context.Context, update client.ProfileUpdate) (client.User, error) {
	if m.Token() == "" {
		return client.User{}, ErrNotAuthenticated
	}
	raw, err := m.api.UpdateMe(ctx, update)
	if err != nil {
		return client.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusAuthenticated {
		return client.User{}, ErrNotAuthenticated
	}
	merged, err := mergeProfile(m.profile, raw)
	if err != nil {
		return client.User{}, err
	}
	var user client.User
	if err := json.Unmarshal(merged, &user); err != nil {
		return client.User{}, fmt.Errorf("decode merged profile: %w", err)
	}
	if err := m.store.Put(m.token, merged); err != nil {
		return client.User{}, fmt.Errorf("persist profile: %w", err)
	}
	m.user = user
	m.profile = merged
	m.logger.Info("profile updated", "user_id", user.ID)
	return user, nil
}

// mergeProfile overlays the fields present in update onto the stored
// profile document. Only keys the backend actually returned win.
func mergeProfile(current, update []byte) ([]byte, error) {
	merged := map[string]json.RawMessage{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &merged); err != nil {
			return nil, fmt.Errorf("decode cached profile: %w", err)
		}
	}
	overlay := map[string]json.RawMessage{}
	if err := json.Unmarshal(update, &overlay); err != nil {
		return nil, fmt.Errorf("decode profile update: %w", err)
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return json.Marshal(merged)
}
