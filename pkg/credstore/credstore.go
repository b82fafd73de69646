// Package credstore persists the bearer token and the decoded identity
// across restarts. It is a pass-through key/value layer: tokens are never
// validated here.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/authclient/pkg/identity"
)

// Storage keys. They match the keys the browser client used so stores can be
// migrated by copying values across.
const (
	TokenKey    = "auth_token"
	IdentityKey = "user_data"
)

// ErrCorruptIdentity is returned when the persisted identity record cannot be
// decoded.
var ErrCorruptIdentity = errors.New("credstore: corrupt identity record")

// Backend is durable key/value storage.
type Backend interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value string) error
	// Delete removes all keys in a single operation. Missing keys are not an
	// error.
	Delete(ctx context.Context, keys ...string) error
}

// Store is the typed view over a Backend.
type Store struct {
	backend Backend
}

// New wraps a backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Token returns the stored token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, _, err := s.backend.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("credstore: read token: %w", err)
	}
	return token, nil
}

// SetToken replaces the stored token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.backend.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("credstore: write token: %w", err)
	}
	return nil
}

// Identity returns the stored identity, or nil when none is stored.
func (s *Store) Identity(ctx context.Context) (*identity.Identity, error) {
	raw, ok, err := s.backend.Get(ctx, IdentityKey)
	if err != nil {
		return nil, fmt.Errorf("credstore: read identity: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var id identity.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIdentity, err)
	}
	return &id, nil
}

// SetIdentity replaces the stored identity.
func (s *Store) SetIdentity(ctx context.Context, id identity.Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("credstore: encode identity: %w", err)
	}
	if err := s.backend.Set(ctx, IdentityKey, string(b)); err != nil {
		return fmt.Errorf("credstore: write identity: %w", err)
	}
	return nil
}

// Clear removes both the token and the identity.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, TokenKey, IdentityKey); err != nil {
		return fmt.Errorf("credstore: clear: %w", err)
	}
	return nil
}
