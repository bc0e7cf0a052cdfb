package sessions

import (
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
	"github.com/jrsteele09/go-timetrack-client/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// credentials mirrors the persisted tier in memory.
type credentials struct {
	accessToken  string
	refreshToken string
	email        string
}

// Store is the process-wide source of truth for "am I logged in and as whom".
//
// It keeps two tiers. The persisted tier (access token, refresh token, email)
// lives in a Repo and is cached in memory, loaded lazily on first access. The
// runtime tier holds the full Session including role and user id, which are
// never persisted.
//
// Every mutating call is a single critical section, persisted I/O included,
// so readers never observe a half-cleared session.
type Store struct {
	mu         sync.RWMutex
	repo       Repo
	loaded     bool
	persisted  credentials
	runtime    Session
	generation uint64

	// pendingClear is set when removing the persisted keys failed. Until a
	// removal succeeds the persisted tier is treated as absent.
	pendingClear bool

	subMu       sync.Mutex
	subscribers map[int]func(Session)
	nextSubID   int

	logger zerolog.Logger
}

type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(repo Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:        repo,
		subscribers: make(map[int]func(Session)),
		logger:      log.With().Str("component", "sessions").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SetTokens persists a new credential set and mirrors token and email into the
// runtime tier. Empty values remove their persisted key. If the persisted
// write fails the store is left logged out and the error is returned.
func (s *Store) SetTokens(accessToken, refreshToken, email string) error {
	if accessToken != "" && email == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidSession, "access token without email")
	}

	s.mu.Lock()
	s.loadLocked()
	hadToken := s.persisted.accessToken != ""

	set := make(map[string]string, 3)
	var remove []string
	for key, value := range map[string]string{
		KeyAccessToken:  accessToken,
		KeyRefreshToken: refreshToken,
		KeyUserEmail:    email,
	} {
		if value == "" {
			remove = append(remove, key)
			continue
		}
		set[key] = value
	}

	err := s.repo.Update(set, remove...)
	if err != nil {
		s.removePersistedLocked()
		s.loaded = true
		s.persisted = credentials{}
		s.runtime.AccessToken = ""
		s.runtime.RefreshToken = ""
		s.runtime.Email = ""
		s.generation++
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("sessions.SetTokens: %w", err)
	}

	s.pendingClear = false
	s.loaded = true
	s.persisted = credentials{accessToken: accessToken, refreshToken: refreshToken, email: email}
	s.runtime.AccessToken = accessToken
	s.runtime.RefreshToken = refreshToken
	s.runtime.Email = email
	if accessToken != "" || hadToken {
		s.generation++
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// AccessToken returns the persisted access token.
func (s *Store) AccessToken() (string, bool) {
	c := s.credentials()
	return c.accessToken, c.accessToken != ""
}

// RefreshToken returns the persisted refresh token.
func (s *Store) RefreshToken() (string, bool) {
	c := s.credentials()
	return c.refreshToken, c.refreshToken != ""
}

// UserEmail returns the persisted user email.
func (s *Store) UserEmail() (string, bool) {
	c := s.credentials()
	return c.email, c.email != ""
}

// SetUser enriches the runtime tier, typically after a profile fetch.
// The persisted tier is not touched.
func (s *Store) SetUser(email, role, accessToken, userID string) {
	s.mu.Lock()
	s.loadLocked()
	s.runtime = Session{
		AccessToken:  accessToken,
		RefreshToken: s.runtime.RefreshToken,
		Email:        email,
		UserID:       userID,
		Role:         role,
	}
	s.mu.Unlock()

	s.notify()
}

// SetUserIf enriches the runtime identity of the current session, but only
// if it is still the session of the given generation. It reports whether the
// identity was applied. Profile fetches use it so a reply that arrives after
// a logout or a new login is dropped.
func (s *Store) SetUserIf(generation uint64, email, role, userID string) bool {
	s.mu.Lock()
	s.loadLocked()
	if s.generation != generation || s.persisted.accessToken == "" {
		s.mu.Unlock()
		return false
	}
	if email == "" {
		email = s.persisted.email
	}
	s.runtime = Session{
		AccessToken:  s.persisted.accessToken,
		RefreshToken: s.runtime.RefreshToken,
		Email:        email,
		UserID:       userID,
		Role:         role,
	}
	s.mu.Unlock()

	s.notify()
	return true
}

// ClearAuth removes every persisted key and resets the runtime token and
// email. Role and user id are left alone; use Logout for a full reset.
func (s *Store) ClearAuth() {
	s.mu.Lock()
	changed := s.clearAuthLocked()
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Clear resets every runtime field. The persisted tier is not touched.
func (s *Store) Clear() {
	s.mu.Lock()
	s.loadLocked()
	changed := s.runtime != Session{}
	s.runtime = Session{}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Logout clears both tiers in one critical section.
func (s *Store) Logout() {
	s.mu.Lock()
	s.logoutLocked()
	s.mu.Unlock()

	s.notify()
}

// InvalidateIf logs out only if no new credential has been installed since
// generation was observed. It reports whether the store was cleared.
func (s *Store) InvalidateIf(generation uint64) bool {
	s.mu.Lock()
	s.loadLocked()
	if current := s.generation; current != generation {
		s.mu.Unlock()
		s.logger.Debug().
			Uint64("observed", generation).
			Uint64("current", current).
			Msg("Skipping stale session invalidation")
		return false
	}
	s.logoutLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// Generation is bumped every time credentials are installed or cleared.
func (s *Store) Generation() uint64 {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Current returns the authenticated session. When no access token is
// persisted it returns a zero Session and false.
func (s *Store) Current() (Session, bool) {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked()
}

// Runtime returns a copy of the runtime tier as is.
func (s *Store) Runtime() Session {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runtime
}

// Token implements oauth2.TokenSource.
func (s *Store) Token() (*oauth2.Token, error) {
	tok, _, err := s.Credentials()
	return tok, err
}

// Credentials returns the bearer token together with the generation it
// belongs to, read under one lock.
func (s *Store) Credentials() (*oauth2.Token, uint64, error) {
	s.ensureLoaded()
	s.mu.RLock()
	c, generation := s.persisted, s.generation
	s.mu.RUnlock()

	if c.accessToken == "" {
		return nil, generation, apperrors.ErrNotAuthenticated
	}
	tok := &oauth2.Token{
		AccessToken:  c.accessToken,
		TokenType:    "Bearer",
		RefreshToken: c.refreshToken,
	}
	if claims, err := token.Inspect(c.accessToken); err == nil {
		tok.Expiry = claims.ExpiresAt
	}
	return tok, generation, nil
}

// Reload re-reads the persisted tier, picking up changes made by another
// process. A vanished token logs this process out; a different token resets
// the runtime identity so it is refetched.
func (s *Store) Reload() error {
	s.mu.Lock()
	if s.pendingClear && !s.removePersistedLocked() {
		s.mu.Unlock()
		return fmt.Errorf("sessions.Reload: persisted session still awaiting removal")
	}
	values, err := s.repo.Load()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("sessions.Reload: %w", err)
	}
	next := credentialsFrom(values)
	if s.loaded && next == s.persisted {
		s.mu.Unlock()
		return nil
	}

	prev := s.persisted
	s.loaded = true
	s.persisted = next
	switch {
	case next.accessToken == "":
		s.runtime = Session{}
	case next.accessToken != prev.accessToken:
		s.runtime = Session{AccessToken: next.accessToken, RefreshToken: next.refreshToken, Email: next.email}
	default:
		s.runtime.RefreshToken = next.refreshToken
		s.runtime.Email = next.email
	}
	if next.accessToken != prev.accessToken {
		s.generation++
	}
	s.mu.Unlock()

	s.logger.Info().Bool("authenticated", next.accessToken != "").Msg("Session reloaded from disk")
	s.notify()
	return nil
}

// Subscribe registers fn to be called with the current session after every
// change. Callbacks run outside the store lock on the mutating goroutine, so
// notifications from concurrent writers may interleave. The returned func
// unsubscribes.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	current, _ := s.Current()

	s.subMu.Lock()
	fns := make([]func(Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(current)
	}
}

func (s *Store) credentials() credentials {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persisted
}

func (s *Store) currentLocked() (Session, bool) {
	if s.persisted.accessToken == "" {
		return Session{}, false
	}
	email := s.runtime.Email
	if email == "" {
		email = s.persisted.email
	}
	return Session{
		AccessToken:  s.persisted.accessToken,
		RefreshToken: s.persisted.refreshToken,
		Email:        email,
		UserID:       s.runtime.UserID,
		Role:         s.runtime.Role,
	}, true
}

func (s *Store) ensureLoaded() {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}
	s.mu.Lock()
	s.loadLocked()
	s.mu.Unlock()
}

// loadLocked reads the persisted tier once. A read failure leaves the store
// logged out and is retried on the next access. A pending clear is retried
// on every call.
func (s *Store) loadLocked() {
	if s.pendingClear && !s.removePersistedLocked() {
		s.loaded = true
		return
	}
	if s.loaded {
		return
	}
	values, err := s.repo.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Persisted session unreadable, treating as logged out")
		return
	}
	s.loaded = true
	s.persisted = credentialsFrom(values)
	s.runtime.AccessToken = s.persisted.accessToken
	s.runtime.RefreshToken = s.persisted.refreshToken
	s.runtime.Email = s.persisted.email
}

func (s *Store) clearAuthLocked() bool {
	s.loadLocked()
	s.removePersistedLocked()
	changed := s.persisted != (credentials{}) || s.runtime.AccessToken != "" || s.runtime.Email != ""
	s.persisted = credentials{}
	s.runtime.AccessToken = ""
	s.runtime.RefreshToken = ""
	s.runtime.Email = ""
	s.loaded = true
	if changed {
		s.generation++
	}
	return changed
}

// removePersistedLocked deletes every persisted key. On failure the clear is
// left pending and retried by the next Reload or mutation.
func (s *Store) removePersistedLocked() bool {
	if err := s.repo.Update(nil, PersistedKeys...); err != nil {
		s.pendingClear = true
		s.logger.Warn().Err(err).Msg("Failed to remove persisted session keys")
		return false
	}
	s.pendingClear = false
	return true
}

func (s *Store) logoutLocked() {
	s.clearAuthLocked()
	s.runtime = Session{}
}

// credentialsFrom drops a token that has no email attached.
func credentialsFrom(values map[string]string) credentials {
	c := credentials{
		accessToken:  values[KeyAccessToken],
		refreshToken: values[KeyRefreshToken],
		email:        values[KeyUserEmail],
	}
	if c.accessToken != "" && c.email == "" {
		return credentials{}
	}
	return c
}
