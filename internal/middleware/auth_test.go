// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"thumbforge/internal/identity"
)

// fakeVerifier resolves one known token.
type fakeVerifier struct {
	token string
	id    *identity.Identity
	err   error
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if token == f.token {
		return f.id, nil
	}
	return nil, nil
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := IdentityFromCtx(r.Context()); id != nil {
			w.Write([]byte(id.Subject))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

func TestLoadIdentityValidToken(t *testing.T) {
	v := &fakeVerifier{token: "good-token", id: &identity.Identity{Subject: "sub-1"}}
	handler := LoadIdentity(v)(identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Body.String() != "sub-1" {
		t.Errorf("body = %q, want subject", rr.Body.String())
	}
}

func TestLoadIdentityMissingOrInvalidToken(t *testing.T) {
	v := &fakeVerifier{token: "good-token", id: &identity.Identity{Subject: "sub-1"}}
	handler := LoadIdentity(v)(identityEcho())

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"unknown token", "Bearer bad-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Body.String() != "anonymous" {
				t.Errorf("body = %q, want anonymous", rr.Body.String())
			}
		})
	}
}

func TestLoadIdentityProviderErrorIsNonFatal(t *testing.T) {
	v := &fakeVerifier{err: errors.New("provider down")}
	handler := LoadIdentity(v)(identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "anonymous" {
		t.Errorf("body = %q, want anonymous", rr.Body.String())
	}
}

func TestRequireIdentity(t *testing.T) {
	handler := RequireIdentity(identityEcho())

	// No identity in context: 401 JSON.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	// Identity present: pass through.
	ctx := context.WithValue(context.Background(), IdentityKey, &identity.Identity{Subject: "sub-1"})
	req = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "sub-1" {
		t.Errorf("status = %d body = %q", rr.Code, rr.Body.String())
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"normal", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"empty", "", ""},
		{"scheme only", "Bearer ", ""},
		{"basic auth", "Basic abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
