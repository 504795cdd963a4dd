package middlewares

import (
	"net"
	"net/http"

	"adsduit/internal/blocklist"
)

// IPBlock rejects requests from blocked client addresses before anything
// else runs.
func IPBlock(bl *blocklist.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if bl.IsBlocked(r.Context(), ip) {
				http.Error(w, "access denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
