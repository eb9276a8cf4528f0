package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"trustbadge/pkg/requestcontext"
)

// AdminAuth authenticates back-office calls via the X-Admin-Token header.
// When a bcrypt hash is configured the token is verified against it;
// otherwise a constant-time comparison against the plain token is used.
type AdminAuth struct {
	tokenHash  string
	plainToken string
	logger     *slog.Logger
}

func NewAdminAuth(tokenHash, plainToken string, logger *slog.Logger) *AdminAuth {
	return &AdminAuth{tokenHash: tokenHash, plainToken: plainToken, logger: logger}
}

// RequireAdminToken gates admin routes. The admin actor label in context is
// what audit events record as the deciding party.
func (a *AdminAuth) RequireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if !a.valid(token) {
			a.logger.WarnContext(r.Context(), "admin token mismatch",
				"request_id", requestcontext.RequestID(r.Context()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
			return
		}
		ctx := requestcontext.WithAdminActor(r.Context(), "admin")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AdminAuth) valid(token string) bool {
	if token == "" {
		return false
	}
	if a.tokenHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.tokenHash), []byte(token)) == nil
	}
	if a.plainToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.plainToken)) == 1
}
