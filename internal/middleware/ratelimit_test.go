package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecosync/bill-server-go/internal/config"
)

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{HTTPRateLimit: config.HTTPRateLimitConfig{
		RequestsPerMinute: 1,
		CacheSize:         10,
		CacheTTLSeconds:   int(time.Minute.Seconds()),
	}}

	router := gin.New()
	router.Use(RateLimit(cfg))
	router.POST("/chat-reply/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRequest(http.MethodPost, "/chat-reply/", nil)
	first.RemoteAddr = "1.2.3.4:1234"
	firstResp := httptest.NewRecorder()
	router.ServeHTTP(firstResp, first)
	if firstResp.Code != http.StatusOK {
		t.Fatalf("expected ok, got %d", firstResp.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/chat-reply/", nil)
	second.RemoteAddr = "1.2.3.4:1234"
	secondResp := httptest.NewRecorder()
	router.ServeHTTP(secondResp, second)
	if secondResp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rate limit, got %d", secondResp.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}

	router := gin.New()
	router.Use(RateLimit(cfg))
	router.POST("/chat-reply/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 5 {
		req := httptest.NewRequest(http.MethodPost, "/chat-reply/", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected ok with limit disabled, got %d", resp.Code)
		}
	}
}

func TestRateLimitSkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{HTTPRateLimit: config.HTTPRateLimitConfig{
		RequestsPerMinute: 1,
		CacheSize:         10,
		CacheTTLSeconds:   60,
	}}

	router := gin.New()
	router.Use(RateLimit(cfg))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected health to bypass rate limit, got %d", resp.Code)
		}
	}
}

func TestRateLimitIdentityPrefersAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	c.Request.Header.Set("X-API-Key", "secret")
	c.Request.Header.Set("X-Forwarded-For", "9.9.9.9")

	identity := rateLimitIdentity(c)
	if identity[:4] != "key:" {
		t.Fatalf("expected key identity, got %q", identity)
	}
}

func TestRateLimitIdentityForwardedFor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	c.Request.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")

	if identity := rateLimitIdentity(c); identity != "ip:9.9.9.9" {
		t.Fatalf("expected forwarded ip identity, got %q", identity)
	}
}
