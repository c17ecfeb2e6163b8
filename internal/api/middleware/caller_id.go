package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const CallerIDKey contextKey = "caller_id"

// CallerID reads the opaque X-Caller-ID header into context. The value is
// never validated; it exists only for logs and traces.
func CallerID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID := r.Header.Get("X-Caller-ID")
		if callerID != "" {
			ctx := context.WithValue(r.Context(), CallerIDKey, callerID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// GetCallerID returns the caller ID from context.
func GetCallerID(ctx context.Context) string {
	callerID, _ := ctx.Value(CallerIDKey).(string)
	return callerID
}
