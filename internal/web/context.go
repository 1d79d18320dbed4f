package web

import (
	"net/http"

	"github.com/JonMunkholm/datamaster/internal/core"
)

// withActor records the client address and user agent in the request
// context so table history can name who made each change. RemoteAddr has
// already been resolved by TrustedRealIP.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithActor(r.Context(), core.Actor{
			IP:        r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
