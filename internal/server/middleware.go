package server

import (
	"context"
	"net/http"
	"strconv"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserIDFromContext returns the authenticated user id, or 0 if the
// request was not authenticated.
func UserIDFromContext(ctx context.Context) uint64 {
	id, _ := ctx.Value(userIDKey).(uint64)
	return id
}

// authMiddleware resolves the caller from the X-User-ID header. The
// real authentication protocol lives outside this service; the header
// is the trusted session shim the boundary layer provides.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseUint(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID == 0 {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
