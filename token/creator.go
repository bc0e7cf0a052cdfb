package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
)

// Subject is the identity an access token is minted for.
type Subject struct {
	UserID string
	Email  string
	Role   string
}

// Creator mints and verifies HS256 access tokens for the development backend.
type Creator struct {
	secret []byte
	issuer string
	expiry time.Duration
}

type CreatorOption func(*Creator)

func WithIssuer(issuer string) CreatorOption {
	return func(c *Creator) {
		c.issuer = issuer
	}
}

func WithExpiry(expiry time.Duration) CreatorOption {
	return func(c *Creator) {
		c.expiry = expiry
	}
}

func NewCreator(secret string, options ...CreatorOption) *Creator {
	c := &Creator{
		secret: []byte(secret),
		issuer: "timetrack-dev",
		expiry: time.Hour,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// CreateAccessToken creates a signed access token for the subject
func (c *Creator) CreateAccessToken(sub Subject) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss":   c.issuer,                 // The issuer of the token
		"sub":   sub.UserID,               // The user the token was issued to
		"email": sub.Email,                // Lets the client show who is logged in without a round trip
		"role":  sub.Role,                 // Authorization role
		"iat":   now.Unix(),               // Issued At
		"exp":   now.Add(c.expiry).Unix(), // Expiry
		"jti":   uuid.New().String(),      // Unique token ID
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// CreateRefreshToken returns an opaque refresh token.
func (c *Creator) CreateRefreshToken() string {
	return uuid.New().String()
}

// Verify validates signature, issuer and expiry. Expired tokens wrap
// ErrSessionExpired so callers can tell them from forged ones.
func (c *Creator) Verify(rawToken string) (*Claims, error) {
	parsed, err := jwtlib.Parse(rawToken, c.verificationKey,
		jwtlib.WithIssuer(c.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, apperrors.Wrapf(apperrors.ErrSessionExpired, "verify")
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claimsFrom(mapClaims), nil
}

func (c *Creator) verificationKey(t *jwtlib.Token) (any, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.secret, nil
}
