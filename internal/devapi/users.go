package devapi

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/cryptox"
	"github.com/aussiebroadwan/authclient/pkg/identity"
	"github.com/aussiebroadwan/authclient/pkg/idx"
)

var (
	ErrUserExists         = errors.New("devapi: user already exists")
	ErrInvalidCredentials = errors.New("devapi: invalid credentials")
)

type user struct {
	ID           idx.ID
	UserName     string
	FullName     string
	Email        string
	PasswordHash string // argon2id encoded
	CreatedAt    time.Time
}

func (u user) identity() identity.Identity {
	return identity.Identity{
		ID:       u.ID.String(),
		UserName: u.UserName,
		FullName: u.FullName,
		Email:    u.Email,
	}
}

// userStore indexes users by id and by case-folded user name.
type userStore struct {
	mu     sync.RWMutex
	byID   map[idx.ID]user
	byName map[string]idx.ID
}

func newUserStore() *userStore {
	return &userStore{
		byID:   make(map[idx.ID]user),
		byName: make(map[string]idx.ID),
	}
}

func (s *userStore) create(u user) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.UserName)
	if _, ok := s.byName[key]; ok {
		return ErrUserExists
	}

	s.byID[u.ID] = u
	s.byName[key] = u.ID
	return nil
}

func (s *userStore) byUserName(name string) (user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return user{}, false
	}
	return s.byID[id], true
}

func (s *userStore) get(id idx.ID) (user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	return u, ok
}

// CreateUser registers a user directly, bypassing the HTTP API.
func (s *Server) CreateUser(userName, fullName, email, password string) (identity.Identity, error) {
	hash, err := cryptox.HashPassword(password, s.cfg.Password)
	if err != nil {
		return identity.Identity{}, err
	}

	u := user{
		ID:           idx.New(),
		UserName:     strings.TrimSpace(userName),
		FullName:     strings.TrimSpace(fullName),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.create(u); err != nil {
		return identity.Identity{}, err
	}

	s.logger.Info("user created", "user_id", u.ID, "user", u.UserName)
	return u.identity(), nil
}

// authenticate checks a user name and password.
func (s *Server) authenticate(userName, password string) (user, error) {
	u, ok := s.users.byUserName(userName)
	if !ok {
		return user{}, ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		return user{}, ErrInvalidCredentials
	}
	return u, nil
}
