package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/perflog/perflog/internal/auth"
)

// AdminAuthConfig configures AdminAuth.
type AdminAuthConfig struct {
	TokenHash   string        // Argon2id PHC string; empty disables the check
	Logger      *slog.Logger
	MinDuration time.Duration // failed attempts take at least this long
}

// AdminAuth requires "Authorization: Bearer <admin token>" matching TokenHash.
// Verified tokens are remembered by QuickHash so Argon2 runs once per token.
func AdminAuth(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var verified sync.Map

	return func(next http.Handler) http.Handler {
		if cfg.TokenHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			token := bearerToken(r)
			if reason := checkAdminToken(token, cfg.TokenHash, &verified); reason != "" {
				logger.Warn("admin authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				if wait := cfg.MinDuration - time.Since(start); wait > 0 {
					time.Sleep(wait)
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="perflog"`)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := auth.ContextWithSubject(r.Context(), "admin")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// checkAdminToken returns a failure reason, or "" when token is valid.
func checkAdminToken(token, hash string, verified *sync.Map) string {
	if token == "" {
		return "missing_token"
	}
	if !auth.ValidateTokenFormat(token) {
		return "invalid_format"
	}

	key := auth.QuickHash(token)
	if _, ok := verified.Load(key); ok {
		return ""
	}

	ok, err := auth.VerifyToken(token, hash)
	if err != nil {
		return "invalid_hash"
	}
	if !ok {
		return "mismatch"
	}
	verified.Store(key, struct{}{})
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
