// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"thumbforge/internal/identity"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// IdentityKey is the context key for the verified caller identity.
	IdentityKey contextKey = "identity"
)

// LoadIdentity verifies the bearer token against the identity provider and
// stores the resulting identity in the request context. Downstream handlers
// access it via IdentityFromCtx(). This middleware does NOT enforce
// authentication — a missing or invalid token just leaves the context empty.
func LoadIdentity(verifier identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				// Provider unreachable — treat as unauthenticated rather
				// than failing the whole request chain.
				next.ServeHTTP(w, r)
				return
			}

			if id != nil {
				ctx := context.WithValue(r.Context(), IdentityKey, id)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity rejects unauthenticated requests with a 401 JSON body.
// Must be applied after LoadIdentity in the middleware chain.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromCtx(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// IdentityFromCtx extracts the verified identity from the request context.
// Returns nil if the caller is not authenticated.
func IdentityFromCtx(ctx context.Context) *identity.Identity {
	id, _ := ctx.Value(IdentityKey).(*identity.Identity)
	return id
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
