// Package identity resolves the caller's user id for a request.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
)

// UserHeaderName carries the registered user id on API requests.
const UserHeaderName = "X-Crickmate-User-ID"

type contextKey int

const userIDKey contextKey = iota

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Sanitize trims id and returns "" when it is not a plausible user id.
func Sanitize(id string) string {
	id = strings.TrimSpace(id)
	if !userIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// Resolve picks the body value when set, else the id carried in ctx.
func Resolve(ctx context.Context, bodyValue string) string {
	if id := Sanitize(bodyValue); id != "" {
		return id
	}
	return UserIDFromContext(ctx)
}

func userIDFromRequest(r *http.Request) string {
	id := r.Header.Get(UserHeaderName)
	if id == "" {
		id = r.URL.Query().Get("user_id")
	}
	return Sanitize(id)
}

// Middleware stores the header or query user id in the request context.
// Requests without one pass through unchanged.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := userIDFromRequest(r); id != "" {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
