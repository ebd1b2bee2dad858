// pkg/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"subadmin/pkg/hash"
	"subadmin/pkg/jwt"
)

// BasicAuth guards operational endpoints such as /metrics.
// passwordHash is a bcrypt hash; an empty username disables the check.
func BasicAuth(username, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if username == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				!hash.CheckPassword(passwordHash, pass) {
				w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BearerSubject reports whether r carries a bearer token signed with secret
// whose subject is subject.
func BearerSubject(secret, subject string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tok == "" {
			return false
		}
		sub, err := jwt.ParseToken(secret, tok)
		return err == nil && sub == subject
	}
}
