package identity

import (
	"context"
	"sync"
	"time"

	"github.com/celldb/celldb/pkg/errs"
)

// Authenticator maps a bearer token to a user id.
type Authenticator interface {
	// Authenticate returns the user id behind token, or an authentication
	// error when the token is unknown, malformed or expired.
	Authenticate(ctx context.Context, token string) (string, error)
}

type session struct {
	userID    string
	expiresAt time.Time
}

// MemoryAuthenticator issues and validates TTL-bound sessions in memory.
// Only token hashes are kept.
type MemoryAuthenticator struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryAuthenticator creates an authenticator whose sessions expire
// after ttl.
func NewMemoryAuthenticator(ttl time.Duration) *MemoryAuthenticator {
	return &MemoryAuthenticator{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue creates a session for userID and returns its plaintext token.
func (m *MemoryAuthenticator) Issue(userID string) (string, error) {
	token, tokenHash, err := GenerateToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[tokenHash] = session{userID: userID, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return token, nil
}

// Authenticate implements Authenticator. Expired sessions are dropped on
// first sight.
func (m *MemoryAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if err := ValidateTokenFormat(token); err != nil {
		return "", errs.Authentication("invalid token: %v", err)
	}
	tokenHash := HashToken(token)

	m.mu.RLock()
	sess, ok := m.sessions[tokenHash]
	m.mu.RUnlock()
	if !ok {
		return "", errs.Authentication("unknown token")
	}
	if m.now().After(sess.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, tokenHash)
		m.mu.Unlock()
		return "", errs.Authentication("session expired")
	}
	return sess.userID, nil
}

// Revoke invalidates the session behind token, if any.
func (m *MemoryAuthenticator) Revoke(token string) {
	m.mu.Lock()
	delete(m.sessions, HashToken(token))
	m.mu.Unlock()
}
