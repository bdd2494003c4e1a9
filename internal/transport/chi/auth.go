package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/hirestack/candidex/internal/domain"
)

type tenantCtxKey struct{}

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// ContextWithTenant attaches the resolved tenant to the context.
func ContextWithTenant(ctx context.Context, t domain.Tenant) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, t)
}

// TenantFromContext returns the tenant placed by the auth middleware.
func TenantFromContext(ctx context.Context) (domain.Tenant, bool) {
	t, ok := ctx.Value(tenantCtxKey{}).(domain.Tenant)
	return t, ok
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens and
// resolves the tenant behind each API key. If apiKeys is empty,
// authentication is disabled (pass-through) and requests run as the
// anonymous tenant.
func BearerAuthMiddleware(apiKeys map[string]domain.Tenant) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Auth disabled — pass everything through
		if len(apiKeys) == 0 {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := ContextWithTenant(r.Context(), domain.Tenant{ID: "anonymous", Plan: domain.PlanFree})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			tenant, ok := apiKeys[token]
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}

			ctx := ContextWithTenant(r.Context(), tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
