package middleware

import (
	"context"
	"net/http"
)

const (
	actorKey  = contextKey("actor-id")
	tenantKey = contextKey("tenant-id")

	defaultTenant = "default"
	defaultActor  = "anonymous"
)

// Identity extracts the caller's actor and tenant identity from the
// X-Actor-ID and X-Tenant-ID headers. Credential resolution happens
// upstream; this service only scopes operations by the supplied identity.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get("X-Actor-ID")
		if actor == "" {
			actor = defaultActor
		}
		tenant := r.Header.Get("X-Tenant-ID")
		if tenant == "" {
			tenant = defaultTenant
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, tenantKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActor returns the actor identity from the context.
func GetActor(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok {
		return actor
	}
	return defaultActor
}

// GetTenant returns the tenant identity from the context.
func GetTenant(ctx context.Context) string {
	if tenant, ok := ctx.Value(tenantKey).(string); ok {
		return tenant
	}
	return defaultTenant
}
