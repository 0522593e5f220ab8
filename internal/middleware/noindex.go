package middleware

import "net/http"

// NoIndex marks every response as off limits for search engine crawlers.
// The deployed instances are personal tools, not public sites.
func NoIndex(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Robots-Tag", "noindex, nofollow, nosnippet, noarchive, noimageindex")
		next.ServeHTTP(w, r)
	})
}
