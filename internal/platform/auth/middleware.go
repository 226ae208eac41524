package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bloomgoods/api/internal/platform/httpx"
)

// Sentinel errors surfaced by token verification.
var (
	ErrTokenMissing = errors.New("auth: bearer token missing")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

const defaultVerifyTimeout = 5 * time.Second

// TokenVerifier validates a raw bearer token and resolves the identity it
// represents.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Authenticator guards HTTP routes with Firebase bearer authentication.
type Authenticator struct {
	verifier      TokenVerifier
	verifyTimeout time.Duration
}

// Option configures the Authenticator.
type Option func(*Authenticator)

// WithVerifyTimeout bounds how long a single token verification may take.
func WithVerifyTimeout(timeout time.Duration) Option {
	return func(a *Authenticator) {
		if timeout > 0 {
			a.verifyTimeout = timeout
		}
	}
}

// NewAuthenticator wires an Authenticator around the supplied verifier.
func NewAuthenticator(verifier TokenVerifier, opts ...Option) (*Authenticator, error) {
	if verifier == nil {
		return nil, errors.New("auth: token verifier is required")
	}
	a := &Authenticator{
		verifier:      verifier,
		verifyTimeout: defaultVerifyTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Require returns middleware that rejects requests lacking a valid bearer
// token. When roles are supplied the identity must carry at least one of them.
func (a *Authenticator) Require(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "missing bearer token", http.StatusUnauthorized))
				return
			}

			verifyCtx, cancel := context.WithTimeout(r.Context(), a.verifyTimeout)
			identity, err := a.verifier.Verify(verifyCtx, token)
			cancel()
			if err != nil {
				switch {
				case errors.Is(err, ErrTokenExpired):
					httpx.WriteError(r.Context(), w, httpx.NewError("token_expired", "token expired", http.StatusUnauthorized))
				default:
					httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "token invalid", http.StatusUnauthorized))
				}
				return
			}

			if len(roles) > 0 && !hasAnyRole(identity, roles) {
				httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "insufficient role", http.StatusForbidden))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func hasAnyRole(identity *Identity, roles []string) bool {
	for _, role := range roles {
		if identity.HasRole(role) {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrTokenMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrTokenInvalid
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}
