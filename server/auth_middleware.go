package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
	"github.com/jrsteele09/go-timetrack-client/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyClaims stores parsed token claims
	ContextKeyClaims ContextKey = "claims"
)

// Messages the client shows verbatim.
const (
	detailNotAuthenticated   = "Not authenticated"
	detailExpired            = "expired"
	detailInvalidToken       = "Invalid token"
	detailInvalidCredentials = "Invalid credentials"
)

// RequireAuth is middleware that validates a Bearer access token and puts
// its claims on the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeDetail(w, http.StatusUnauthorized, detailNotAuthenticated)
				return
			}

			claims, err := s.tokens.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				if apperrors.Is(err, apperrors.ErrSessionExpired) {
					writeDetail(w, http.StatusUnauthorized, detailExpired)
					return
				}
				writeDetail(w, http.StatusUnauthorized, detailInvalidToken)
				return
			}

			user, err := s.repos.Users.GetByID(claims.Subject)
			if err != nil || user.Blocked {
				writeDetail(w, http.StatusUnauthorized, detailNotAuthenticated)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// claimsFrom returns the claims RequireAuth stored on the context.
func claimsFrom(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}
