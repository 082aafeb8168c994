package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/contractsonly/api/internal/model"
)

// ErrCronSecretNotConfigured is returned when neither a secret nor a hash is set
var ErrCronSecretNotConfigured = errors.New("cron secret not configured")

// SecretVerifier checks a presented cron bearer secret
type SecretVerifier interface {
	Verify(secret string) error
}

// StaticSecret verifies against a plaintext secret, or against a bcrypt
// hash when one is set.
type StaticSecret struct {
	secret string
	hash   []byte
}

// NewStaticSecret creates a verifier. The hash wins when both are given.
func NewStaticSecret(secret, hash string) *StaticSecret {
	s := &StaticSecret{secret: secret}
	if hash != "" {
		s.hash = []byte(hash)
	}
	return s
}

// Verify returns nil when the presented secret matches
func (s *StaticSecret) Verify(presented string) error {
	switch {
	case len(s.hash) > 0:
		return bcrypt.CompareHashAndPassword(s.hash, []byte(presented))
	case s.secret != "":
		if subtle.ConstantTimeCompare([]byte(s.secret), []byte(presented)) != 1 {
			return bcrypt.ErrMismatchedHashAndPassword
		}
		return nil
	default:
		return ErrCronSecretNotConfigured
	}
}

// CronAuth returns a middleware that requires "Authorization: Bearer <secret>"
func CronAuth(verifier SecretVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				model.NewUnauthorizedError("missing authorization header").WriteJSON(w)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				model.NewUnauthorizedError("invalid authorization header format").WriteJSON(w)
				return
			}

			if err := verifier.Verify(parts[1]); err != nil {
				if errors.Is(err, ErrCronSecretNotConfigured) {
					slog.Error("cron request rejected: no secret configured",
						slog.String("request_id", GetRequestID(r.Context())),
					)
				} else {
					slog.Warn("cron request rejected",
						slog.String("path", r.URL.Path),
						slog.String("remote_addr", ClientIP(r)),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
				model.NewUnauthorizedError("invalid cron secret").WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
