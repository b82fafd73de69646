package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aussiebroadwan/authclient/pkg/identity"
)

// State is the session lifecycle state.
type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is the session as observed at one point in time.
type Snapshot struct {
	State           State
	Identity        *identity.Identity
	IsAuthenticated bool
	Initializing    bool
}

// Listener is called after every state transition.
type Listener func(Snapshot)

// SessionStore is the part of the credential store the session needs.
type SessionStore interface {
	Token(ctx context.Context) (string, error)
	Identity(ctx context.Context) (*identity.Identity, error)
	SetIdentity(ctx context.Context, id identity.Identity) error
	Clear(ctx context.Context) error
}

// Authenticator performs the network side of the auth flows. *Client
// implements it.
type Authenticator interface {
	Login(ctx context.Context, req LoginRequest) Envelope[string]
	Register(ctx context.Context, req RegisterRequest) Envelope[json.RawMessage]
	Logout(ctx context.Context) Envelope[json.RawMessage]
}

var _ Authenticator = (*Client)(nil)

// Session owns the in-memory identity and derives "is authenticated" from
// it and the stored token. It is safe for concurrent use; listeners run on
// the goroutine that caused the transition, outside the session lock.
type Session struct {
	store  SessionStore
	auth   Authenticator
	logger *slog.Logger

	mu        sync.RWMutex
	state     State
	identity  *identity.Identity
	listeners map[uint64]Listener
	nextID    uint64

	// submitting latches SignIn/SignUp so a second submission is rejected
	// while one is in flight.
	submitting atomic.Bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithListener subscribes l before the initial restore runs, so it also
// observes the transition out of StateInitializing.
func WithListener(l Listener) SessionOption {
	return func(s *Session) { s.subscribe(l) }
}

// NewSession creates a session and restores it from store. Restoring never
// fails: any problem clears the stored credentials and leaves the session
// unauthenticated.
func NewSession(ctx context.Context, store SessionStore, auth Authenticator, opts ...SessionOption) *Session {
	s := &Session{
		store:     store,
		auth:      auth,
		logger:    slog.Default(),
		state:     StateInitializing,
		listeners: make(map[uint64]Listener),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.restore(ctx)
	return s
}

func (s *Session) restore(ctx context.Context) {
	id, err := s.readPersisted(ctx)
	if err != nil {
		s.logger.Warn("session restore failed, clearing stored credentials", "error", err)
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Error("failed to clear credentials after restore failure", "error", err)
		}
		id = nil
	}

	if id == nil {
		s.transition(ctx, StateUnauthenticated, nil)
		return
	}

	s.logger.Debug("session restored", "user", id.UserName)
	s.transition(ctx, StateAuthenticated, id)
}

// readPersisted returns the stored identity when a token is stored as well.
func (s *Session) readPersisted(ctx context.Context) (id *identity.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = nil, fmt.Errorf("restore panicked: %v", r)
		}
	}()

	id, err = s.store.Identity(ctx)
	if err != nil || id == nil {
		return nil, err
	}

	token, err := s.store.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	return id, nil
}

// Login records the identity of a user whose token has already been stored
// by a successful login exchange. It performs no I/O.
func (s *Session) Login(ctx context.Context, id identity.Identity) {
	s.transition(ctx, StateAuthenticated, &id)
}

// Logout tells the server the session is over and then clears the local
// session. The server call is best effort: whatever it does, the local
// session ends.
func (s *Session) Logout(ctx context.Context) {
	// Rejections are logged by the Authenticator.
	if _, err := s.serverLogout(ctx); err != nil {
		s.logger.Warn("server logout failed", "error", err)
	}

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("failed to clear credentials", "error", err)
	}

	s.transition(ctx, StateUnauthenticated, nil)
}

func (s *Session) serverLogout(ctx context.Context) (env Envelope[json.RawMessage], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("logout panicked: %v", r)
		}
	}()
	return s.auth.Logout(ctx), nil
}

// IsAuthenticated reports whether there is an identity in memory and a
// token in the store. It is recomputed on every call.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	s.mu.RLock()
	id := s.identity
	s.mu.RUnlock()

	if id == nil {
		return false
	}

	token, err := s.store.Token(ctx)
	if err != nil {
		s.logger.Warn("failed to read stored token", "error", err)
		return false
	}
	return token != ""
}

// Identity returns a copy of the current identity, or nil.
func (s *Session) Identity() *identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns the current state, identity and derived flags.
func (s *Session) Snapshot(ctx context.Context) Snapshot {
	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	return s.withAuthenticated(ctx, snap)
}

// snapshotLocked copies state and identity. s.mu must be held.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        s.state,
		Initializing: s.state == StateInitializing,
	}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

// withAuthenticated fills IsAuthenticated from the snapshot's own identity
// and the stored token.
func (s *Session) withAuthenticated(ctx context.Context, snap Snapshot) Snapshot {
	if snap.Identity == nil {
		return snap
	}

	token, err := s.store.Token(ctx)
	if err != nil {
		s.logger.Warn("failed to read stored token", "error", err)
		return snap
	}
	snap.IsAuthenticated = token != ""
	return snap
}

// Subscribe registers l for every future transition. The returned function
// removes it.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	id := s.subscribe(l)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) subscribe(l Listener) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return id
}

func (s *Session) transition(ctx context.Context, state State, id *identity.Identity) {
	s.mu.Lock()
	s.state = state
	s.identity = id
	snap := s.snapshotLocked()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if len(listeners) == 0 {
		return
	}

	snap = s.withAuthenticated(ctx, snap)
	for _, l := range listeners {
		l(snap)
	}
}
