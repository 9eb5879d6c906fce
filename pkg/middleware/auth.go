package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dxsocial/backend/internal/apperr"
	jwtutil "github.com/dxsocial/backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

type contextKey string

// UserContextKey is where AuthMiddleware stores the token claims.
const UserContextKey contextKey = "user"

// AuthMiddleware rejects requests without a valid Bearer access token.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apperr.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := jwtutil.ValidateToken(token, secret)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"error": err,
				}).Warn("Rejected invalid access token")
				apperr.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches claims when a valid token is present and never rejects.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if claims, err := jwtutil.ValidateToken(token, secret); err == nil {
					r = r.WithContext(WithUser(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r.Context())
			if claims == nil {
				apperr.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if claims.Role != role {
				apperr.WriteError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying claims.
func WithUser(ctx context.Context, claims *jwtutil.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext returns the authenticated claims, or nil.
func GetUserFromContext(ctx context.Context) *jwtutil.Claims {
	claims, _ := ctx.Value(UserContextKey).(*jwtutil.Claims)
	return claims
}

// ViewerAddress is the caller's wallet address, or "" for anonymous requests.
func ViewerAddress(ctx context.Context) string {
	if claims := GetUserFromContext(ctx); claims != nil {
		return claims.Address
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
