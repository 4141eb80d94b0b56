package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecosync/bill-server-go/internal/audit"
	"github.com/ecosync/bill-server-go/internal/httperror"
)

// AnalysesResponse 는 분석 이력 응답 본문이다.
type AnalysesResponse struct {
	Analyses []audit.BillAnalysis `json:"analyses"`
	Count    int                  `json:"count"`
}

// AnalysesHandler 는 고지서 분석 이력 API 핸들러다.
type AnalysesHandler struct {
	audits audit.Store
	logger *slog.Logger
}

// NewAnalysesHandler 는 분석 이력 핸들러를 생성한다.
func NewAnalysesHandler(audits audit.Store, logger *slog.Logger) *AnalysesHandler {
	return &AnalysesHandler{
		audits: audits,
		logger: logger,
	}
}

// RegisterRoutes 는 분석 이력 라우트를 등록한다.
func (h *AnalysesHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/analyses", h.handleList)
}

func (h *AnalysesHandler) handleList(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(c, httperror.NewInvalidInput("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	analyses, err := h.audits.ListAnalyses(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Warn("analyses_request_failed", "err", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnalysesResponse{
		Analyses: analyses,
		Count:    len(analyses),
	})
}
