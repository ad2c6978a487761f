package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
)

const (
	// UserHeader carries the Jira username asserted by the fronting auth proxy
	UserHeader = "X-Jira-User"
	// AdminTokenHeader carries the admin API token
	AdminTokenHeader = "X-Admin-Token"
)

// UserAuth requires an authenticated Jira user and stores the username in the request context
func UserAuth(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get(UserHeader))
			if user == "" {
				logger.Debug().Str("path", r.URL.Path).Msg("Request without authenticated user")
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.WithUser(r.Context(), user)))
		})
	}
}

// AdminAuth guards the admin API. With no token configured every admin call is refused.
func AdminAuth(adminToken string, logger zerolog.Logger) func(http.Handler) http.Handler {
	expected := []byte(adminToken)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				writeError(w, http.StatusForbidden, "Admin API is disabled")
				return
			}
			given := r.Header.Get(AdminTokenHeader)
			if given == "" {
				writeError(w, http.StatusUnauthorized, "Admin token required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(given), expected) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Msg("Rejected admin request with invalid token")
				writeError(w, http.StatusForbidden, "Invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
