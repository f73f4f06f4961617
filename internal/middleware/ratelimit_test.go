package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRouter(t *testing.T, rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(rl.Stop)
	router := gin.New()
	router.Use(pre...)
	router.Use(rl.Middleware())
	router.GET("/api/v1/skills", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func hit(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/skills", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstThenRejects(t *testing.T) {
	router := limitedRouter(t, NewRateLimiter(1, 2))

	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1:1001").Code)

	w := hit(router, "10.0.0.1:1002")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"too_many_requests"`)
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
}

func TestRateLimit_RejectedRequestsDoNotConsumeTokens(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	router := limitedRouter(t, rl)

	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.9:1").Code)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusTooManyRequests, hit(router, "10.0.0.9:1").Code)
	}
	limiter := rl.limiterFor("ip:10.0.0.9", time.Now())
	assert.Greater(t, limiter.Tokens(), -1.0)
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	router := limitedRouter(t, NewRateLimiter(1, 1))

	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "10.0.0.1:2").Code)
	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.2:1").Code)
}

func TestRateLimit_ByUserSeparatesAccountsBehindOneAddress(t *testing.T) {
	asUser := func(c *gin.Context) {
		if id, err := strconv.Atoi(c.GetHeader("X-User")); err == nil {
			c.Set(ContextUserID, uint(id))
		}
	}
	router := limitedRouter(t, NewKeyedRateLimiter(1, 1, ByUser), asUser)

	send := func(user string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/skills", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		if user != "" {
			req.Header.Set("X-User", user)
		}
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("1"))
	assert.Equal(t, http.StatusTooManyRequests, send("1"))
	assert.Equal(t, http.StatusOK, send("2"))
	assert.Equal(t, http.StatusOK, send(""), "anonymous callers use the address bucket")
	assert.Equal(t, http.StatusTooManyRequests, send(""))
}

func TestRateLimit_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	rl.Stop()
}
