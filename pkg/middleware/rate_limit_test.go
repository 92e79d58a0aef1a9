package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// the limiter store is package-global and keyed by client IP, so each test
// uses its own address to keep buckets independent
func limitedRequest(target, addr string) *http.Request {
	req := httptest.NewRequest("GET", target, nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2)) // generous rate
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// two quick requests should pass
	w := httptest.NewRecorder()
	r.ServeHTTP(w, limitedRequest("/ok", "10.1.0.1:1234"))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, limitedRequest("/ok", "10.1.0.1:1234"))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, w2.Code)
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	// very low rate to force rejections
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// first request -> allowed
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, limitedRequest("/limited", "10.1.0.2:1234"))
	require.Equal(t, http.StatusOK, w1.Code)

	// immediate second request -> should be rate-limited
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, limitedRequest("/limited", "10.1.0.2:1234"))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
	require.Equal(t, "1", w2.Header().Get("Retry-After"))

	// wait long enough to replenish one token and it should be allowed
	time.Sleep(2100 * time.Millisecond)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, limitedRequest("/limited", "10.1.0.2:1234"))
	require.Equal(t, http.StatusOK, w3.Code)
}

func TestRateLimitMiddleware_UsesSubjectWhenPresent(t *testing.T) {
	r := gin.New()
	// middleware that injects claims before the rate limiter
	r.Use(func(c *gin.Context) {
		c.Set("claims", map[string]interface{}{"sub": "user-123"})
		c.Next()
	})
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// first request allowed
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, limitedRequest("/u", "10.1.0.3:1234"))
	require.Equal(t, http.StatusOK, w1.Code)

	// immediate second request => rejected for same subject
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, limitedRequest("/u", "10.1.0.4:1234"))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
}
