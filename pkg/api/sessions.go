package api

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/cuemby/bffhd/pkg/session"
)

// SessionRegistry hands out opaque bearer tokens for Sessions minted by
// a completed Authenticate handshake, so later unary/streaming calls on
// the same gRPC channel can be mapped back to a *session.Session without
// re-running authentication per call.
type SessionRegistry struct {
	mu     sync.Mutex
	tokens map[string]*session.Session
}

// NewSessionRegistry builds an empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{tokens: make(map[string]*session.Session)}
}

// Put mints a fresh random token for sess and stores it.
func (r *SessionRegistry) Put(sess *session.Session) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.tokens[token] = sess
	r.mu.Unlock()
	return token, nil
}

// Get returns the Session for token, if any.
func (r *SessionRegistry) Get(token string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.tokens[token]
	return sess, ok
}

// Delete removes token, e.g. on client-initiated logout or connection
// teardown.
func (r *SessionRegistry) Delete(token string) {
	r.mu.Lock()
	delete(r.tokens, token)
	r.mu.Unlock()
}

func newToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
