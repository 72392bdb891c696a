package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rateLimitedRouter(maxAttempts int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	limiter := LoginRateLimit(maxAttempts, window)
	r.POST("/api/v1/auth/login", limiter, func(c *gin.Context) {
		c.JSON(200, gin.H{"code": 200})
	})
	return r
}

func attemptLogin(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	req.Header.Set("X-Real-IP", ip)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginRateLimit_BlocksAfterMaxAttempts(t *testing.T) {
	r := rateLimitedRouter(2, 200*time.Millisecond)

	assert.Equal(t, 200, attemptLogin(r, "192.168.1.1").Code)
	assert.Equal(t, 200, attemptLogin(r, "192.168.1.1").Code)

	// 第 3 次超限，返回统一响应格式
	w := attemptLogin(r, "192.168.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":429`)
	assert.Contains(t, w.Body.String(), "频繁")
}

func TestLoginRateLimit_PerIPIsolation(t *testing.T) {
	r := rateLimitedRouter(1, 200*time.Millisecond)

	assert.Equal(t, 200, attemptLogin(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, attemptLogin(r, "10.0.0.1").Code)

	// 另一个 IP 不受影响
	assert.Equal(t, 200, attemptLogin(r, "10.0.0.2").Code)
}

func TestLoginRateLimit_WindowExpiry(t *testing.T) {
	r := rateLimitedRouter(1, 50*time.Millisecond)

	assert.Equal(t, 200, attemptLogin(r, "10.0.0.3").Code)
	assert.Equal(t, http.StatusTooManyRequests, attemptLogin(r, "10.0.0.3").Code)

	// 窗口滑过后恢复
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 200, attemptLogin(r, "10.0.0.3").Code)
}
