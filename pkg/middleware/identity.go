package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/celldb/celldb/pkg/acl"
	"github.com/celldb/celldb/pkg/httputil"
	"github.com/celldb/celldb/pkg/observability"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity attaches the resolved identity to the context.
func WithIdentity(ctx context.Context, id *acl.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller's identity, or nil for anonymous
// requests.
func IdentityFrom(ctx context.Context) *acl.Identity {
	if id, ok := ctx.Value(identityKey).(*acl.Identity); ok {
		return id
	}
	return nil
}

// IdentityResolver turns a bearer token into an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*acl.Identity, error)
}

// IdentityMiddleware resolves the caller's identity from the Authorization
// header or the session cookie.
type IdentityMiddleware struct {
	resolver IdentityResolver
	logger   *observability.Logger
}

// NewIdentityMiddleware creates the identity middleware.
func NewIdentityMiddleware(resolver IdentityResolver, logger *observability.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{resolver: resolver, logger: logger}
}

// Handler wraps next with identity resolution. Requests without a token
// pass through anonymously; an invalid token is rejected.
func (m *IdentityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := m.resolver.Resolve(r.Context(), token)
		if err != nil {
			m.logger.WithError(err).Debug("token resolution failed")
			httputil.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// extractToken pulls the bearer token from the Authorization header,
// falling back to the session cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}
