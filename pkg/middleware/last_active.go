package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

// LastActiveUpdater records that a wallet made an authenticated request.
type LastActiveUpdater interface {
	UpdateLastActive(ctx context.Context, address string) error
}

func UpdateLastActiveMiddleware(users LastActiveUpdater) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims := GetUserFromContext(r.Context()); claims != nil {
				if err := users.UpdateLastActive(r.Context(), claims.Address); err != nil {
					logrus.WithError(err).WithField("address", claims.Address).Debug("Failed to update last active")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
