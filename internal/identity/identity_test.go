// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyActiveSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions/verify" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer api-key" {
			t.Errorf("authorization = %q", got)
		}

		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["token"] != "session-token" {
			t.Errorf("token = %q", req["token"])
		}

		json.NewEncoder(w).Encode(verifyResponse{
			Active:       true,
			Subject:      "sub-1",
			Email:        "u@example.com",
			Entitlements: []string{"plus"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "api-key", nil)
	id, err := c.Verify(context.Background(), "session-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == nil {
		t.Fatal("expected an identity")
	}
	if id.Subject != "sub-1" || id.Email != "u@example.com" {
		t.Errorf("identity = %+v", id)
	}
	if !id.HasEntitlement("plus") || id.HasEntitlement("pro") {
		t.Error("entitlement predicates wrong")
	}
}

func TestVerifyInvalidToken(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload any
	}{
		{"provider 401", http.StatusUnauthorized, map[string]string{"error": "invalid"}},
		{"provider 404", http.StatusNotFound, map[string]string{"error": "unknown"}},
		{"inactive session", http.StatusOK, verifyResponse{Active: false, Subject: "sub-1"}},
		{"missing subject", http.StatusOK, verifyResponse{Active: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.payload)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "api-key", nil)
			id, err := c.Verify(context.Background(), "whatever")
			if err != nil {
				t.Fatalf("invalid tokens must not error: %v", err)
			}
			if id != nil {
				t.Errorf("expected nil identity, got %+v", id)
			}
		})
	}
}

func TestVerifyEmptyTokenShortCircuits(t *testing.T) {
	c := NewClient("http://localhost:1", "api-key", nil)
	id, err := c.Verify(context.Background(), "")
	if err != nil || id != nil {
		t.Errorf("empty token: id=%v err=%v, want nil/nil", id, err)
	}
}

func TestVerifyProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "api-key", nil)
	_, err := c.Verify(context.Background(), "session-token")
	if err == nil {
		t.Fatal("provider 5xx must surface as an error")
	}
}
