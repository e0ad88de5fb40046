package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = c.now
	return rl, c
}

func TestTakeWithinWindow(t *testing.T) {
	rl, c := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		d := rl.Take("10.0.0.1")
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	c.t = c.t.Add(20 * time.Second)
	d := rl.Take("10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	assert.True(t, rl.Allow("10.0.0.2"), "clients are counted separately")

	c.t = c.t.Add(40 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "new window")
	assert.Equal(t, int64(1), rl.Rejected())
}

func TestSteadyTrafficDoesNotSlideWindow(t *testing.T) {
	rl, c := newTestLimiter(t, 2)

	rl.Allow("ip")
	c.t = c.t.Add(40 * time.Second)
	rl.Allow("ip")
	c.t = c.t.Add(40 * time.Second)
	assert.True(t, rl.Allow("ip"))
}

func TestDropIdle(t *testing.T) {
	rl, c := newTestLimiter(t, 5)
	rl.Allow("a")
	c.t = c.t.Add(11 * time.Minute)
	rl.Allow("b")

	assert.Equal(t, 1, rl.dropIdle())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestMiddleware(t *testing.T) {
	rl, c := newTestLimiter(t, 1)
	handler := rl.Middleware(func(*http.Request) string { return "ip" }, []string{http.MethodPost}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(method, "/api/transactions", nil))
		return rr
	}

	rr := do(http.MethodPost)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	c.t = c.t.Add(30*time.Second + 500*time.Millisecond)
	rr = do(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		rr = do(http.MethodGet)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"), "GET is not counted")
	}
}

func TestMiddlewareCustomRejection(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	called := 0
	handler := rl.Middleware(func(*http.Request) string { return "ip" }, nil, func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Equal(t, 2, called, "empty method list counts everything")
}
