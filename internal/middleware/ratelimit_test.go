package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hairfit/internal/infra/identity"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{
			name:       "single ip",
			header:     "203.0.113.1",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "multiple ips use first",
			header:     " 203.0.113.1 , 198.51.100.2 ",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "invalid forwarded falls back",
			header:     "invalid",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "empty forwarded uses remote host",
			header:     "",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "ipv6 forwarded",
			header:     "2001:db8::1",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::1",
		},
		{
			name:       "ipv6 remote fallback",
			header:     "invalid",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::2",
		},
		{
			name:       "remote without port",
			header:     "invalid",
			remoteAddr: "203.0.113.1",
			want:       "203.0.113.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if ok, _ := l.Allow(context.Background(), "k"); ok != want {
			t.Fatalf("call %d allowed = %v, want %v", i, ok, want)
		}
	}
	if ok, _ := l.Allow(context.Background(), "other"); !ok {
		t.Fatalf("separate keys should have separate budgets")
	}
	now = now.Add(time.Minute + time.Second)
	if ok, _ := l.Allow(context.Background(), "k"); !ok {
		t.Fatalf("new window should admit")
	}
}

type stubLimiter struct {
	ok   bool
	err  error
	keys []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.ok, s.err
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("rejects over budget", func(t *testing.T) {
		lim := &stubLimiter{ok: false}
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(ContextWithIdentity(req.Context(), identity.Identity{UserID: "u1"}))
		RateLimit(lim, time.Minute, zerolog.Nop())(next).ServeHTTP(rr, req)
		if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
			t.Fatalf("status=%d retry-after=%q", rr.Code, rr.Header().Get("Retry-After"))
		}
		if lim.keys[0] != "user:u1" {
			t.Fatalf("key = %q, want user:u1", lim.keys[0])
		}
	})

	t.Run("fails open", func(t *testing.T) {
		lim := &stubLimiter{ok: true, err: errors.New("redis down")}
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "198.51.100.10:1234"
		RateLimit(lim, time.Minute, zerolog.Nop())(next).ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rr.Code)
		}
		if lim.keys[0] != "ip:198.51.100.10" {
			t.Fatalf("key = %q", lim.keys[0])
		}
	})
}

func TestRedisLimiterUnreachableAdmits(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	l := NewRedisLimiter(client, "ratelimit", 1, time.Minute)
	ok, err := l.Allow(context.Background(), "user:u1")
	if err == nil || !ok {
		t.Fatalf("Allow() = %v, %v; want true with error", ok, err)
	}
}

func TestRedisLimiterWindowKey(t *testing.T) {
	l := NewRedisLimiter(nil, "rl", 1, time.Minute)
	l.now = func() time.Time { return time.Unix(120, 0) }
	if got := l.windowKey("ip:1.2.3.4"); got != "rl:ip:1.2.3.4:2" {
		t.Fatalf("windowKey = %q", got)
	}
}
