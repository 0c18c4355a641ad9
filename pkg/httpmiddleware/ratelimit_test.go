package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func doFrom(h http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/buy/1", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_OverLimit(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	h := NewLimiter(RateLimitConfig{Max: 2, Window: time.Minute, Now: c.Now}).Middleware()(okHandler())

	for i := range 2 {
		w := doFrom(h, "10.0.0.1:9999")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := doFrom(h, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())

	// Other clients keep their own budget.
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.2:1234").Code)

	c.now = c.now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:9999").Code, "new window")
}

func TestRateLimit_Disabled(t *testing.T) {
	h := NewLimiter(RateLimitConfig{}).Middleware()(okHandler())
	for range 10 {
		w := doFrom(h, "10.0.0.1:1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestLimiter_Sweep(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(RateLimitConfig{Max: 1, Window: time.Second, Now: c.Now})

	ok, _, _ := l.Allow("a")
	require.True(t, ok)
	l.Sweep()
	assert.Len(t, l.windows, 1)

	c.now = c.now.Add(2 * time.Second)
	l.Sweep()
	assert.Empty(t, l.windows)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{name: "remote addr", remote: "192.168.1.1:4444", want: "192.168.1.1"},
		{name: "forwarded for", header: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, remote: "10.0.0.1:1", want: "203.0.113.50"},
		{name: "real ip", header: map[string]string{"X-Real-IP": "198.51.100.7"}, remote: "10.0.0.1:1", want: "198.51.100.7"},
		{name: "no port", remote: "unix", want: "unix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
