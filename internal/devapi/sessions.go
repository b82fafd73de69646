package devapi

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/cryptox"
	"github.com/aussiebroadwan/authclient/pkg/idx"
)

type refreshEntry struct {
	UserID    idx.ID
	ExpiresAt time.Time
}

// sessionStore tracks live access token ids and refresh credentials. Refresh
// credentials are stored hashed.
type sessionStore struct {
	mu      sync.Mutex
	access  map[string]idx.ID // jti -> user
	refresh map[string]refreshEntry
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		access:  make(map[string]idx.ID),
		refresh: make(map[string]refreshEntry),
	}
}

func hashRefresh(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *sessionStore) trackAccessToken(jti string, userID idx.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[jti] = userID
}

func (s *sessionStore) accessTokenLive(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.access[jti]
	return ok
}

func (s *sessionStore) expireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.access)
}

func (s *sessionStore) issueRefresh(userID idx.ID, expiresAt time.Time) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[hashRefresh(token)] = refreshEntry{UserID: userID, ExpiresAt: expiresAt}
	return token, nil
}

// useRefresh returns the owner of a refresh credential. With rotate set the
// credential is single use and the caller issues a replacement.
func (s *sessionStore) useRefresh(token string, now time.Time, rotate bool) (idx.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashRefresh(token)
	entry, ok := s.refresh[key]
	if !ok {
		return idx.Zero, false
	}

	if now.After(entry.ExpiresAt) {
		delete(s.refresh, key)
		return idx.Zero, false
	}
	if rotate {
		delete(s.refresh, key)
	}
	return entry.UserID, true
}

// refreshOwner returns the owner of a refresh credential without using it.
func (s *sessionStore) refreshOwner(token string) (idx.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.refresh[hashRefresh(token)]
	return entry.UserID, ok
}

// revokeUser drops every credential belonging to userID.
func (s *sessionStore) revokeUser(userID idx.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, id := range s.access {
		if id == userID {
			delete(s.access, jti)
		}
	}
	for key, entry := range s.refresh {
		if entry.UserID == userID {
			delete(s.refresh, key)
		}
	}
}
