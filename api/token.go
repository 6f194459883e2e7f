package api

import "sync"

// TokenStore provides the bearer token attached to every request.
//
// The client reads the token on each request and clears the store when
// the backend answers 401, so a stale token is never reused. The host
// application owns where tokens come from (login flow, keychain, env).
type TokenStore interface {
	// Token returns the current bearer token, or empty if none is set.
	// An empty token means requests are sent unauthenticated.
	Token() string

	// Clear removes the current token.
	Clear()
}

// StaticTokenStore is a thread-safe in-memory [TokenStore].
//
// It holds a single token that can be replaced with [StaticTokenStore.Set]
// after a re-login. The zero value is usable and holds no token.
type StaticTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewStaticTokenStore creates a [StaticTokenStore] holding the given token.
func NewStaticTokenStore(token string) *StaticTokenStore {
	return &StaticTokenStore{token: token}
}

// Token returns the stored token.
func (s *StaticTokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the stored token.
func (s *StaticTokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear removes the stored token.
func (s *StaticTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
