// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package identity verifies session tokens against the external identity
// provider and exposes the entitlement predicates used for plan resolution.
// Session handling itself (login, refresh, revocation) belongs to the
// provider; this package only consumes its verification API.
package identity

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Identity describes a verified caller: the provider's stable subject id,
// an optional email, and the set of entitlement keys attached to the session.
type Identity struct {
	Subject      string   `json:"subject"`
	Email        string   `json:"email,omitempty"`
	Entitlements []string `json:"entitlements,omitempty"`
}

// HasEntitlement reports whether the session carries the named entitlement.
func (id *Identity) HasEntitlement(name string) bool {
	for _, e := range id.Entitlements {
		if e == name {
			return true
		}
	}
	return false
}

// Verifier resolves a bearer session token to an Identity. A nil Identity
// with a nil error means the token is invalid or expired.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

const (
	// cachePrefix namespaces verification results in Valkey.
	cachePrefix = "identity:"

	// cacheTTL bounds how stale a cached verification may be. Short on
	// purpose: entitlement changes (upgrades) should take effect quickly.
	cacheTTL = 60 * time.Second
)

// Client verifies session tokens over the provider's HTTP API, caching
// positive results in Valkey for a short TTL.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *redis.Client // optional; nil disables caching
}

// NewClient creates an identity client. cache may be nil to disable the
// verification cache (every request then hits the provider).
func NewClient(baseURL, apiKey string, cache *redis.Client) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

// verifyResponse is the provider's session verification payload.
type verifyResponse struct {
	Active       bool     `json:"active"`
	Subject      string   `json:"subject"`
	Email        string   `json:"email"`
	Entitlements []string `json:"entitlements"`
}

// Verify resolves a session token. Invalid or expired tokens return
// (nil, nil); transport and provider errors return a non-nil error.
func (c *Client) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}

	key := cachePrefix + tokenHash(token)
	if id := c.cached(ctx, key); id != nil {
		return id, nil
	}

	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("identity marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/sessions/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("identity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("identity read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// Verified below.
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("identity API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("identity unmarshal: %w", err)
	}
	if !result.Active || result.Subject == "" {
		return nil, nil
	}

	id := &Identity{
		Subject:      result.Subject,
		Email:        result.Email,
		Entitlements: result.Entitlements,
	}
	c.store(ctx, key, id)
	return id, nil
}

// cached returns a previously verified identity, or nil on any miss/error.
func (c *Client) cached(ctx context.Context, key string) *Identity {
	if c.cache == nil {
		return nil
	}
	payload, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var id Identity
	if err := json.Unmarshal(payload, &id); err != nil {
		return nil
	}
	return &id
}

// store caches a verified identity. Cache failures are ignored — the
// provider remains the source of truth.
func (c *Client) store(ctx context.Context, key string, id *Identity) {
	if c.cache == nil {
		return
	}
	payload, err := json.Marshal(id)
	if err != nil {
		return
	}
	c.cache.Set(ctx, key, payload, cacheTTL)
}

// tokenHash derives the cache key from the token so raw session tokens are
// never stored in Valkey.
func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
