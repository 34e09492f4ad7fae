package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"civicsync/models"
	"civicsync/storage"
	authUtils "civicsync/utils"
)

// ErrInvalidRole is returned by Login for roles other than user and authority.
var ErrInvalidRole = errors.New("invalid role")

// SessionStore holds at most one signed-in identity.
type SessionStore struct {
	mu      sync.Mutex
	kv      storage.KeyValue
	key     string
	session *models.Session
	opts    options
}

// NewSessionStore restores the session stored under key. Anything that does
// not decode to a session is treated as signed out.
func NewSessionStore(ctx context.Context, kv storage.KeyValue, key string, opts ...Option) *SessionStore {
	s := &SessionStore{
		kv:   kv,
		key:  key,
		opts: buildOptions(opts),
	}
	s.session = s.load(ctx)
	return s
}

func (s *SessionStore) load(ctx context.Context) *models.Session {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.opts.logger.Warn("reading session failed, signed out", "key", s.key, "err", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var session *models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		s.opts.logger.Warn("discarding unreadable session", "key", s.key, "err", err)
		return nil
	}
	// A session without a token could never pass the request guard.
	if session == nil || !session.Role.Valid() || session.Token == "" {
		return nil
	}
	return session
}

func (s *SessionStore) persist(ctx context.Context, session *models.Session) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(blob)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Login trusts the caller's role and replaces any current session. An empty
// token is replaced by a freshly minted one.
func (s *SessionStore) Login(ctx context.Context, identity models.Session) (models.Session, error) {
	if !identity.Role.Valid() {
		return models.Session{}, fmt.Errorf("%w: %q", ErrInvalidRole, identity.Role)
	}
	if identity.Token == "" {
		token, err := authUtils.GenerateSessionToken(s.opts.secret, string(identity.Role), identity.Name)
		if err != nil {
			return models.Session{}, fmt.Errorf("minting session token: %w", err)
		}
		identity.Token = token
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, &identity); err != nil {
		return models.Session{}, err
	}
	s.session = &identity

	s.opts.logger.Info("signed in", "role", identity.Role)
	return identity, nil
}

// Logout clears the session by deleting its key, so a reload finds it
// absent.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.session = nil
	s.opts.logger.Info("signed out")
	return nil
}

// Current returns the signed-in identity, if any.
func (s *SessionStore) Current() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return models.Session{}, false
	}
	return *s.session, true
}
