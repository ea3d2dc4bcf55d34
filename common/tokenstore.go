package common

import (
	"sync"

	"golang.org/x/oauth2"
)

// TokenStore holds the current access token for a client session. The token
// is opaque to the client; expiry is enforced server-side and discovered via
// a 401. Only the refresh coordinator writes a new token, and only an
// explicit logout (or a failed refresh) clears it.
//
// The in-memory implementation below is the default; anything that can hold
// a single token (keychain, file, Redis) can stand in.
type TokenStore interface {
	Get() (*oauth2.Token, bool)
	Set(token *oauth2.Token)
	Clear()
}

type memoryTokenStore struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

// NewMemoryTokenStore returns an empty in-memory TokenStore.
func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{}
}

func (s *memoryTokenStore) Get() (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil || s.token.AccessToken == "" {
		return nil, false
	}
	return s.token, true
}

func (s *memoryTokenStore) Set(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *memoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
}
