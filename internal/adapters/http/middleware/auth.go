package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuth guards the admin console with one bcrypt-hashed account.
// Paths listed in public skip the check. An empty passwordHash disables
// the check entirely, for local development.
// PRE: passwordHash is empty or a bcrypt hash
// POST: Unauthenticated requests receive 401 with a Basic challenge
func BasicAuth(username string, passwordHash []byte, public ...string) func(http.Handler) http.Handler {
	if len(passwordHash) == 0 {
		slog.Warn("auth_disabled", "reason", "no admin password hash configured")
		return func(next http.Handler) http.Handler { return next }
	}
	open := make(map[string]struct{}, len(public))
	for _, p := range public {
		open[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := open[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				bcrypt.CompareHashAndPassword(passwordHash, []byte(pass)) != nil {
				slog.Warn("auth_failed", "path", r.URL.Path, "ip", clientIP(r))
				w.Header().Set("WWW-Authenticate", `Basic realm="gymops", charset="UTF-8"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashPassword returns the bcrypt hash stored in config for the admin account.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}
