package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"custodia/pkg/domain"
)

// TokenValidator validates a bearer token and returns the claims we rely on.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims carries the authenticated principal extracted from the token.
type TokenClaims struct {
	Identity string
}

type contextKeyIdentity struct{}

// GetIdentity retrieves the authenticated caller from the context. It is the
// zero identity when the request was not authenticated.
func GetIdentity(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(contextKeyIdentity{}).(domain.Identity); ok {
		return id
	}
	return domain.Nobody
}

// WithIdentity injects a caller identity into a context. Useful for service
// unit tests that don't run the full HTTP middleware chain.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity{}, id)
}

// RequireAuth validates the Authorization header and stores the caller
// identity in the request context. Requests without a valid bearer token are
// rejected with 401 before reaching any handler.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			claims, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			identity, err := domain.ParseIdentity(claims.Identity)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
