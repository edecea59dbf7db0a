package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/tgrelay/internal/config"
)

// authMiddleware guards relay and status routes with the relay's own
// credentials. Bearer and Basic are both accepted when configured.
func authMiddleware(cfg config.AuthConfig, rs *responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reason := checkCredentials(cfg, r); reason != "" {
				rs.logger.Warn("relay auth rejected",
					"reason", reason,
					"remote", r.RemoteAddr,
					"method", r.Method,
					"path", rs.redactor.Redact(r.URL.Path),
				)
				w.Header().Set("WWW-Authenticate", challenge(cfg))
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: titleUnauthorized, Message: "valid credentials are required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkCredentials returns "" when r carries accepted credentials, or the
// rejection reason for the log.
func checkCredentials(cfg config.AuthConfig, r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "missing authorization header"
	}

	scheme, cred, _ := strings.Cut(header, " ")
	switch {
	case strings.EqualFold(scheme, "Bearer") && cfg.BearerToken != "":
		if secretEqual(strings.TrimSpace(cred), cfg.BearerToken) {
			return ""
		}
	case strings.EqualFold(scheme, "Basic") && cfg.BasicUser != "" && cfg.BasicPass != "":
		user, pass, ok := r.BasicAuth()
		// Both comparisons always run.
		userOK := secretEqual(user, cfg.BasicUser)
		passOK := secretEqual(pass, cfg.BasicPass)
		if ok && userOK && passOK {
			return ""
		}
	default:
		return "unsupported authorization scheme"
	}
	return "invalid credentials"
}

func challenge(cfg config.AuthConfig) string {
	if cfg.BearerToken != "" {
		return `Bearer realm="tgrelay"`
	}
	return `Basic realm="tgrelay"`
}

func secretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
