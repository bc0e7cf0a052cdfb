// Package auth implements login, profile and logout against the backend and
// keeps the session store in step with the results.
package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/go-timetrack-client/gateway"
	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
	"github.com/jrsteele09/go-timetrack-client/internal/utils"
	"github.com/jrsteele09/go-timetrack-client/sessions"
	"github.com/jrsteele09/go-timetrack-client/token"
	"github.com/jrsteele09/go-timetrack-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RouteLogin = "/user/login"
	RouteMe    = "/user/me"

	defaultLoginTimeout = 10 * time.Second
)

const missingTokenMessage = "Login succeeded but access token missing from response."

// LoginResult describes the session installed by a successful Login.
type LoginResult struct {
	Email  string
	UserID string
	Role   users.RoleType
	// ProfileErr is set when the tokens were stored but the follow-up
	// profile fetch failed. The login itself still succeeded.
	ProfileErr error
}

type Service struct {
	gateway      *gateway.Gateway
	store        *sessions.Store
	validator    *Validator
	loginTimeout time.Duration
	logger       zerolog.Logger
}

type ServiceOption func(*Service)

func WithLoginTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.loginTimeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(gw *gateway.Gateway, store *sessions.Store, options ...ServiceOption) *Service {
	s := &Service{
		gateway:      gw,
		store:        store,
		validator:    NewValidator(),
		loginTimeout: defaultLoginTimeout,
		logger:       log.With().Str("component", "auth").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Login exchanges credentials for tokens, stores them and then enriches the
// runtime identity from /user/me. A failed profile fetch does not fail the
// login.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := s.validator.ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	res := s.gateway.PostJSON(ctx, RouteLogin, loginRequest{Email: email, Password: password}, s.loginTimeout)
	if res.Err != nil {
		return nil, res.Err
	}

	var body loginResponse
	if err := decodeBody(res.Body, &body); err != nil {
		return nil, &gateway.Error{Kind: gateway.KindShape, StatusCode: res.StatusCode, Message: "unexpected login response", Err: err}
	}
	if body.AccessToken == "" {
		return nil, &gateway.Error{Kind: gateway.KindShape, StatusCode: res.StatusCode, Message: missingTokenMessage}
	}

	userEmail := utils.FirstNonEmpty(body.UserEmail, email)
	if err := s.store.SetTokens(body.AccessToken, body.RefreshToken, userEmail); err != nil {
		return nil, apperrors.Wrapf(err, "auth.Login")
	}
	s.store.SetUser(userEmail, "", body.AccessToken, "")
	s.logger.Info().Str("email", userEmail).Msg("Logged in")

	result := &LoginResult{Email: userEmail}
	profile, err := s.FetchProfile(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Profile fetch after login failed")
		result.ProfileErr = err
		return result, nil
	}
	result.Email = profile.Email
	result.UserID = profile.ID
	result.Role = profile.Role
	return result, nil
}

// FetchProfile reads /user/me and applies the identity to the runtime tier.
// The persisted email is kept when the profile has none.
func (s *Service) FetchProfile(ctx context.Context) (*users.Profile, error) {
	_, generation, err := s.store.Credentials()
	if err != nil {
		return nil, err
	}

	res := s.gateway.Get(ctx, RouteMe, nil)
	if res.Err != nil {
		return nil, res.Err
	}

	var body profileResponse
	if err := decodeBody(res.Body, &body); err != nil {
		return nil, &gateway.Error{Kind: gateway.KindShape, StatusCode: res.StatusCode, Message: "unexpected profile response", Err: err}
	}
	profile, ok := body.profile()
	if !ok {
		return nil, &gateway.Error{Kind: gateway.KindShape, StatusCode: res.StatusCode, Message: "profile response has no user id"}
	}

	if !s.store.SetUserIf(generation, profile.Email, string(profile.Role), profile.ID) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "session changed during profile fetch")
	}
	if profile.Email == "" {
		profile.Email, _ = s.store.UserEmail()
	}
	return &profile, nil
}

// Restore validates a persisted session at startup. It reports whether the
// user can continue without logging in. Expired tokens and sessions the
// backend no longer accepts are logged out; when the backend cannot be
// reached the session is kept and the transport error returned.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	raw, ok := s.store.AccessToken()
	if !ok {
		return false, nil
	}

	if claims, err := token.Inspect(raw); err == nil && claims.Expired() {
		s.logger.Info().Time("expired_at", claims.ExpiresAt).Msg("Persisted session expired")
		s.store.Logout()
		return false, nil
	}

	if _, err := s.FetchProfile(ctx); err != nil {
		if gateway.KindOf(err) == gateway.KindTransport {
			return false, err
		}
		s.logger.Info().Err(err).Msg("Persisted session rejected")
		s.store.Logout()
		return false, nil
	}
	return true, nil
}

// Logout clears both session tiers.
func (s *Service) Logout() {
	s.store.Logout()
	s.logger.Info().Msg("Logged out")
}
