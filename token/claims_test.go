package token_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
	"github.com/jrsteele09/go-timetrack-client/token"
	"github.com/stretchr/testify/require"
)

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = prev })
}

func TestCreatorRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	c := token.NewCreator("secret", token.WithExpiry(15*time.Minute))
	raw, err := c.CreateAccessToken(token.Subject{UserID: "42", Email: "u@x.com", Role: "employee"})
	require.NoError(t, err)

	claims, err := c.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "u@x.com", claims.Email)
	require.Equal(t, "employee", claims.Role)
	require.Equal(t, now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
	require.NotEmpty(t, claims.ID)
	require.False(t, claims.Expired())
}

func TestVerifyRejectsExpiredAndForged(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	c := token.NewCreator("secret", token.WithExpiry(time.Minute))
	raw, err := c.CreateAccessToken(token.Subject{UserID: "1", Email: "a@b.c"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		fixedNow(t, now.Add(2*time.Minute))
		_, err := c.Verify(raw)
		require.Error(t, err)
		require.True(t, apperrors.Is(err, apperrors.ErrSessionExpired))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := token.NewCreator("other").Verify(raw)
		require.Error(t, err)
		require.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := token.NewCreator("secret", token.WithIssuer("elsewhere")).Verify(raw)
		require.Error(t, err)
	})
}

func TestInspect(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	raw, err := token.NewCreator("any", token.WithExpiry(time.Hour)).CreateAccessToken(token.Subject{UserID: "7", Email: "e@x.com"})
	require.NoError(t, err)

	t.Run("unverified claims are readable", func(t *testing.T) {
		claims, err := token.Inspect(raw)
		require.NoError(t, err)
		require.Equal(t, "7", claims.Subject)
		require.False(t, claims.Expired())
	})

	t.Run("expiry is observed", func(t *testing.T) {
		claims, err := token.Inspect(raw)
		require.NoError(t, err)
		fixedNow(t, now.Add(2*time.Hour))
		require.True(t, claims.Expired())
	})

	t.Run("opaque token", func(t *testing.T) {
		_, err := token.Inspect("tok1")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := token.Inspect("  ")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}
