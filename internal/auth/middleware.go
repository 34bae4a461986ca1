package auth

import (
	"net/http"
	"strings"
)

// Middleware verifies a learner bearer token and stores the learner id
// on the request context. With required=false a missing header passes
// through anonymously, but a token that is present must still verify.
func Middleware(a *Service, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				if required {
					http.Error(w, "missing bearer", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithLearner(r.Context(), c.Sub)))
		})
	}
}
