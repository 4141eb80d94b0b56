package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ecosync/bill-server-go/internal/config"
)

func TestHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Gemini: config.GeminiConfig{
			APIKeys:      []string{"test-key"},
			DefaultModel: "gemini-3-flash-preview",
		},
	}

	router := gin.New()
	RegisterHealthRoutes(router, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}

	var payload map[string]any
	decodeBody(t, resp, &payload)
	if payload["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", payload["status"])
	}
}

func TestHealthModels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Gemini: config.GeminiConfig{
			APIKeys:      []string{"test-key"},
			DefaultModel: "gemini-3-flash-preview",
			ExtractModel: "gemini-3-pro-preview",
			Temperature:  0.2,
		},
		HTTP: config.HTTPConfig{HTTP2Enabled: true},
	}

	router := gin.New()
	RegisterHealthRoutes(router, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health/models", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}

	var payload ModelConfigResponse
	decodeBody(t, resp, &payload)
	if payload.ModelExtract != "gemini-3-pro-preview" {
		t.Fatalf("model_extract = %q", payload.ModelExtract)
	}
	if payload.ModelChat != "gemini-3-flash-preview" {
		t.Fatalf("model_chat = %q", payload.ModelChat)
	}
	if payload.TransportMode != "h2c" {
		t.Fatalf("transport_mode = %q", payload.TransportMode)
	}
	// gemini-3 모델은 온도 하한 1.0 이 적용된다
	if payload.Temperature != 1.0 {
		t.Fatalf("temperature = %v", payload.Temperature)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterHealthRoutes(router, &config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
