package middleware

import "net/http"

// MaxBytes returns middleware that caps request bodies at limit bytes.
// Reads past the limit fail with *http.MaxBytesError. A non-positive limit
// leaves bodies unbounded.
func MaxBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
