package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginRateLimiterBlocksAfterLimit(t *testing.T) {
	limiter := NewLoginRateLimiter(3, time.Minute)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, request("203.0.113.9").Code)
	}

	rec := request("203.0.113.9")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many attempts. Try again later.", decodeEnvelope(t, rec).Message)

	// Other clients are unaffected.
	assert.Equal(t, http.StatusOK, request("203.0.113.10").Code)
}

func TestLoginRateLimiterWindowSlides(t *testing.T) {
	limiter := NewLoginRateLimiter(1, 10*time.Millisecond)

	now := time.Now().UTC()
	allowed, _ := limiter.allow("1.2.3.4", now)
	assert.True(t, allowed)

	allowed, retryAfter := limiter.allow("1.2.3.4", now)
	assert.False(t, allowed)
	assert.Positive(t, retryAfter)

	allowed, _ = limiter.allow("1.2.3.4", now.Add(20*time.Millisecond))
	assert.True(t, allowed)
}
