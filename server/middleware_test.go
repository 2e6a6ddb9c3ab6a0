package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("1.1.1.1") || !l.Allow("1.1.1.1") {
		t.Fatal("burst should be allowed")
	}
	if l.Allow("1.1.1.1") {
		t.Error("third request within the window must be rejected")
	}
	if !l.Allow("2.2.2.2") {
		t.Error("limits are per client")
	}

	now = now.Add(30 * time.Second)
	if !l.Allow("1.1.1.1") {
		t.Error("one token should refill after half the window")
	}

	now = now.Add(10 * time.Minute)
	l.Allow("3.3.3.3")
	if _, ok := l.visitors["2.2.2.2"]; ok {
		t.Error("idle visitors should be swept")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(1, time.Hour)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/music/tracks", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := send(); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name    string
		proxies TrustedProxies
		remote  string
		fwd     string
		want    string
	}{
		{"NoProxies", nil, "192.168.1.5:1234", "", "192.168.1.5"},
		{"NoProxiesIgnoresHeader", nil, "192.168.1.5:1234", "203.0.113.9", "192.168.1.5"},
		{"UntrustedPeer", proxies, "198.51.100.7:80", "203.0.113.9", "198.51.100.7"},
		{"TrustedPeer", proxies, "10.0.0.2:80", "203.0.113.9", "203.0.113.9"},
		{"SkipsTrustedHops", proxies, "10.0.0.2:80", "203.0.113.9, 10.1.1.1", "203.0.113.9"},
		{"SpoofedLeftmost", proxies, "10.0.0.2:80", "1.2.3.4, 203.0.113.9", "203.0.113.9"},
		{"SingleAddressProxy", proxies, "192.168.1.1:80", "203.0.113.9", "203.0.113.9"},
		{"TrustedPeerNoHeader", proxies, "10.0.0.2:80", "", "10.0.0.2"},
		{"AllHopsTrusted", proxies, "10.0.0.2:80", "10.3.3.3", "10.3.3.3"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = c.remote
			if c.fwd != "" {
				req.Header.Set("X-Forwarded-For", c.fwd)
			}
			if got := c.proxies.ClientIP(req); got != c.want {
				t.Errorf("ClientIP() = %s, want %s", got, c.want)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	if _, err := ParseTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Error("expected error for invalid address")
	}
	if _, err := ParseTrustedProxies([]string{"10.0.0.0/99"}); err == nil {
		t.Error("expected error for invalid CIDR")
	}
	p, err := ParseTrustedProxies([]string{" ", "::1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p) != 1 || !p.contains("::1") {
		t.Errorf("unexpected proxies %v", p)
	}
}

func TestRateLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	l := NewRateLimiter(2, time.Hour)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	limited := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/music/tracks", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 48 {
		t.Errorf("expected 48 limited requests from one peer, got %d", limited)
	}
}
