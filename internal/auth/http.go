// ABOUTME: HTTP middleware for JWT authentication on API endpoints
// ABOUTME: Extracts JWT from Authorization header and adds identity to context

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/devmesh/realtime-gateway/internal/store"
)

// IdentityStore is the subset of the store the middleware needs.
type IdentityStore interface {
	GetIdentity(ctx context.Context, id string) (*store.Identity, error)
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// buildAuthContext creates an AuthContext from an identity.
func buildAuthContext(identity *store.Identity, adminHandles map[string]bool) *AuthContext {
	return &AuthContext{
		IdentityID: identity.ID,
		Handle:     identity.Handle,
		Admin:      adminHandles[identity.Handle],
	}
}

// HTTPAuthMiddleware creates an HTTP middleware that extracts and validates
// JWT tokens, looks up the identity, and attaches an AuthContext to the
// request context via WithAuth.
func HTTPAuthMiddleware(identities IdentityStore, verifier TokenVerifier, adminHandles map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				http.Error(w, `{"error":"`+errMsg+`"}`, http.StatusUnauthorized)
				return
			}

			identityID, err := verifier.Verify(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			identity, err := identities.GetIdentity(r.Context(), identityID)
			if err != nil {
				http.Error(w, `{"error":"identity not found"}`, http.StatusUnauthorized)
				return
			}

			authCtx := buildAuthContext(identity, adminHandles)
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}

// RequireAdminHTTP creates an HTTP middleware that requires an admin identity.
// Must be used after HTTPAuthMiddleware.
func RequireAdminHTTP() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := FromContext(r.Context())
			if authCtx == nil {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}

			if !authCtx.Admin {
				http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
