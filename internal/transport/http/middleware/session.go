package middleware

import (
	"net/http"
	"strings"

	"flexidays/internal/requestctx"
	"flexidays/internal/session"
	"flexidays/internal/transport/http/api"
)

const SessionCookie = "flexidays_session"

// Authenticate resolves the session token from the cookie or the
// Authorization header and attaches the session to the request context.
// Requests without a resolvable session are rejected.
func Authenticate(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				api.Fail(w, http.StatusUnauthorized, "no_session", "session required", GetRequestID(r.Context()))
				return
			}

			s, err := manager.Resolve(r.Context(), token)
			if err != nil {
				api.Fail(w, http.StatusUnauthorized, "no_session", "session expired or unknown", GetRequestID(r.Context()))
				return
			}

			ctx := requestctx.WithSession(r.Context(), s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree on the session role resolved by
// Authenticate. Used to keep the administration surface HR-only.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := requestctx.GetSession(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "no_session", "session required", GetRequestID(r.Context()))
				return
			}
			if s.Role != role {
				api.Fail(w, http.StatusForbidden, "forbidden", "role not allowed", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
