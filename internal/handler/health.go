package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/health"
)

// ModelConfigResponse: 모델 설정 응답입니다.
type ModelConfigResponse struct {
	ModelDefault          string  `json:"model_default"`
	ModelExtract          string  `json:"model_extract"`
	ModelRecommend        string  `json:"model_recommend"`
	ModelChat             string  `json:"model_chat"`
	Temperature           float64 `json:"temperature"`
	ConfiguredTemperature float64 `json:"configured_temperature"`
	TimeoutSeconds        int     `json:"timeout_seconds"`
	HTTP2Enabled          bool    `json:"http2_enabled"`
	TransportMode         string  `json:"transport_mode"`
}

// RegisterHealthRoutes: 상태 확인 라우트를 등록합니다.
func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config) {
	router.GET("/health", func(c *gin.Context) {
		// Liveness: 외부 의존성(Valkey/DB 등) 상태로 인해 다운 판정되지 않도록 shallow로 유지합니다.
		payload := health.Collect(c.Request.Context(), cfg, false)
		c.JSON(http.StatusOK, payload)
	})

	router.GET("/health/ready", func(c *gin.Context) {
		payload := health.Collect(c.Request.Context(), cfg, true)
		status := http.StatusOK
		if payload.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, payload)
	})

	// Prometheus 메트릭 (장기 히스토리 분석용)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health/models", func(c *gin.Context) {
		defaultModel := cfg.Gemini.DefaultModel
		transportMode := "h1"
		if cfg.HTTP.HTTP2Enabled {
			transportMode = "h2c"
		}

		c.JSON(http.StatusOK, ModelConfigResponse{
			ModelDefault:          defaultModel,
			ModelExtract:          cfg.Gemini.ModelForTask("extract"),
			ModelRecommend:        cfg.Gemini.ModelForTask("recommend"),
			ModelChat:             cfg.Gemini.ModelForTask("chat"),
			Temperature:           cfg.Gemini.TemperatureForModel(defaultModel),
			ConfiguredTemperature: cfg.Gemini.Temperature,
			TimeoutSeconds:        cfg.Gemini.TimeoutSeconds,
			HTTP2Enabled:          cfg.HTTP.HTTP2Enabled,
			TransportMode:         transportMode,
		})
	})
}
