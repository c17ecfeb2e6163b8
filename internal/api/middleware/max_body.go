package middleware

import (
	"net/http"

	"github.com/factfin-ai/factfin/internal/api"
)

// MaxBodyBytes caps the request body at limit bytes. A declared
// Content-Length over the cap is rejected before the body is read;
// chunked bodies are capped by MaxBytesReader during decode.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength != -1 && r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
