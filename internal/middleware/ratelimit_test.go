package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"thumbforge/internal/identity"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, 1*time.Second)
	defer rl.Stop()

	// First 3 requests should be allowed.
	for i := 0; i < 3; i++ {
		if !rl.allow("caller-a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	// 4th request should be denied.
	if rl.allow("caller-a") {
		t.Error("4th request should be rate-limited")
	}

	// Different caller should still be allowed.
	if !rl.allow("caller-b") {
		t.Error("different caller should be allowed")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)
	defer rl.Stop()

	rl.allow("caller-a")
	rl.allow("caller-a")

	if rl.allow("caller-a") {
		t.Error("should be rate-limited")
	}

	// Wait for the window to expire.
	time.Sleep(150 * time.Millisecond)

	if !rl.allow("caller-a") {
		t.Error("should be allowed after window expires")
	}
}

func TestRateLimiterMiddlewareKeysOnSubject(t *testing.T) {
	rl := NewRateLimiter(1, 1*time.Second)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	authed := func(subject, addr string) *httptest.ResponseRecorder {
		ctx := context.WithValue(context.Background(), IdentityKey, &identity.Identity{Subject: subject})
		req := httptest.NewRequest(http.MethodPost, "/api/thumbnails", nil).WithContext(ctx)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	// Same subject from two different addresses shares one budget.
	if rr := authed("sub-1", "10.0.0.1:1111"); rr.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rr.Code)
	}
	if rr := authed("sub-1", "10.0.0.2:2222"); rr.Code != http.StatusTooManyRequests {
		t.Errorf("same subject, new address: status %d, want 429", rr.Code)
	}

	// A different subject is unaffected.
	if rr := authed("sub-2", "10.0.0.1:1111"); rr.Code != http.StatusOK {
		t.Errorf("different subject: status %d, want 200", rr.Code)
	}
}

func TestRateLimiterMiddlewareAnonymousFallsBackToIP(t *testing.T) {
	rl := NewRateLimiter(1, 1*time.Second)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/thumbnails", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/thumbnails", nil)
	req.RemoteAddr = "192.168.1.1:54321"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request from same IP: status %d, want 429", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{
			name:       "x-forwarded-for single",
			xff:        "10.0.0.1",
			remoteAddr: "192.168.1.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "x-forwarded-for multiple",
			xff:        "10.0.0.1, 172.16.0.1, 192.168.1.1",
			remoteAddr: "192.168.1.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "x-real-ip",
			xri:        "10.0.0.2",
			remoteAddr: "192.168.1.1:1234",
			want:       "10.0.0.2",
		},
		{
			name:       "remote addr only",
			remoteAddr: "192.168.1.1:1234",
			want:       "192.168.1.1",
		},
		{
			name:       "remote addr no port",
			remoteAddr: "192.168.1.1",
			want:       "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			got := clientIP(req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5, 50*time.Millisecond)
	defer rl.Stop()

	rl.allow("caller-a")
	rl.allow("caller-b")

	// Wait for entries to expire.
	time.Sleep(100 * time.Millisecond)

	rl.cleanup()

	rl.mu.RLock()
	count := len(rl.clients)
	rl.mu.RUnlock()

	if count != 0 {
		t.Errorf("cleanup should remove expired entries, got %d", count)
	}
}
