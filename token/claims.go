package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims is the subset of access token claims the client cares about.
// Zero times mean the claim was not present.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp claim in the past.
func (c *Claims) Expired() bool {
	return !c.ExpiresAt.IsZero() && !NowTimeFunc().Before(c.ExpiresAt)
}

// Inspect decodes a JWT access token without verifying its signature.
// The client never holds the signing key; this is only used to skip
// requests with a token that has visibly expired. Opaque tokens return
// ErrInvalidToken.
func Inspect(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}
	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "error extracting claims")
	}
	return claimsFrom(mapClaims), nil
}

func claimsFrom(mc jwtlib.MapClaims) *Claims {
	c := &Claims{}
	c.Subject, _ = mc.GetSubject()
	c.Email, _ = mc["email"].(string)
	c.Role, _ = mc["role"].(string)
	c.ID, _ = mc["jti"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c
}
