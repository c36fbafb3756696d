package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Simplici0/decorquote/internal/config"
)

func TestIPLimiter_BurstAndRefill(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(config.RateLimitConfig{Requests: 3, Window: 3 * time.Minute}, msgRateLimited)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"), "clients are limited independently")

	now = now.Add(time.Minute)
	assert.True(t, l.allow("10.0.0.1"), "one token refills per window/requests")
	assert.False(t, l.allow("10.0.0.1"))
}

func TestIPLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute}, msgRateLimited)
	l.now = func() time.Time { return now }

	l.allow("a")
	l.allow("b")
	assert.Len(t, l.clients, 2)

	now = now.Add(2 * time.Minute)
	l.allow("c")
	assert.Len(t, l.clients, 1)
}

func TestIPLimiter_Disabled(t *testing.T) {
	l := newIPLimiter(config.RateLimitConfig{}, msgRateLimited)
	for i := 0; i < 100; i++ {
		assert.True(t, l.allow("x"))
	}
}

func TestIPLimiter_Middleware(t *testing.T) {
	l := newIPLimiter(config.RateLimitConfig{Requests: 1, Window: time.Hour}, msgRateLimited)
	h := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req.RemoteAddr = "198.51.100.1:9999"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "port is ignored")
	assert.Contains(t, rec.Body.String(), msgRateLimited)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"bearer":       {"Bearer abc.def", "abc.def", true},
		"lowercase":    {"bearer abc.def", "abc.def", true},
		"missing":      {"", "", false},
		"other scheme": {"Basic abc", "", false},
		"empty token":  {"Bearer  ", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			token, ok := bearerToken(req)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}
