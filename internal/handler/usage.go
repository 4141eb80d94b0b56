package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/httperror"
	"github.com/ecosync/bill-server-go/internal/usage"
)

// TaskUsageResponse: 일자/작업별 사용량 응답입니다.
type TaskUsageResponse struct {
	UsageDate       string `json:"usage_date"`
	Task            string `json:"task"`
	InputTokens     int64  `json:"input_tokens"`
	OutputTokens    int64  `json:"output_tokens"`
	TotalTokens     int64  `json:"total_tokens"`
	ReasoningTokens int64  `json:"reasoning_tokens"`
	RequestCount    int64  `json:"request_count"`
}

// UsageListResponse: 사용량 목록 응답입니다.
type UsageListResponse struct {
	Usages            []TaskUsageResponse `json:"usages"`
	TotalInputTokens  int64               `json:"total_input_tokens"`
	TotalOutputTokens int64               `json:"total_output_tokens"`
	TotalTokens       int64               `json:"total_tokens"`
	TotalRequestCount int64               `json:"total_request_count"`
	Model             string              `json:"model"`
}

// TotalUsageResponse: 합계 사용량 응답입니다.
type TotalUsageResponse struct {
	InputTokens     int64  `json:"input_tokens"`
	OutputTokens    int64  `json:"output_tokens"`
	TotalTokens     int64  `json:"total_tokens"`
	ReasoningTokens int64  `json:"reasoning_tokens"`
	RequestCount    int64  `json:"request_count"`
	Model           string `json:"model"`
}

// UsageHandler: 토큰 사용량 API 핸들러입니다.
type UsageHandler struct {
	cfg    *config.Config
	store  usage.Store
	logger *slog.Logger
}

// NewUsageHandler: 사용량 핸들러를 생성합니다.
func NewUsageHandler(cfg *config.Config, store usage.Store, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes: 사용량 라우트를 등록합니다.
func (h *UsageHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/llm/usage")
	group.GET("/daily", h.handleDaily)
	group.GET("/recent", h.handleRecent)
	group.GET("/total", h.handleTotal)
}

func (h *UsageHandler) handleDaily(c *gin.Context) {
	rows, err := h.store.GetDailyUsage(c.Request.Context(), time.Time{})
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.buildUsageListResponse(rows))
}

func (h *UsageHandler) handleRecent(c *gin.Context) {
	days, ok := parseDays(c, 7)
	if !ok {
		return
	}

	rows, err := h.store.GetRecentUsage(c.Request.Context(), days)
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.buildUsageListResponse(rows))
}

func (h *UsageHandler) handleTotal(c *gin.Context) {
	days, ok := parseDays(c, 30)
	if !ok {
		return
	}

	total, err := h.store.GetTotalUsage(c.Request.Context(), days)
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, TotalUsageResponse{
		InputTokens:     total.InputTokens,
		OutputTokens:    total.OutputTokens,
		TotalTokens:     total.TotalTokens(),
		ReasoningTokens: total.ReasoningTokens,
		RequestCount:    total.RequestCount,
		Model:           h.cfg.Gemini.DefaultModel,
	})
}

func (h *UsageHandler) buildUsageListResponse(rows []usage.DailyUsage) UsageListResponse {
	response := UsageListResponse{
		Usages: make([]TaskUsageResponse, 0, len(rows)),
		Model:  h.cfg.Gemini.DefaultModel,
	}

	for _, row := range rows {
		response.Usages = append(response.Usages, TaskUsageResponse{
			UsageDate:       row.UsageDate.Format("2006-01-02"),
			Task:            row.Task,
			InputTokens:     row.InputTokens,
			OutputTokens:    row.OutputTokens,
			TotalTokens:     row.TotalTokens(),
			ReasoningTokens: row.ReasoningTokens,
			RequestCount:    row.RequestCount,
		})
		response.TotalInputTokens += row.InputTokens
		response.TotalOutputTokens += row.OutputTokens
		response.TotalTokens += row.TotalTokens()
		response.TotalRequestCount += row.RequestCount
	}

	return response
}

func parseDays(c *gin.Context, defaultDays int) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return defaultDays, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		writeError(c, httperror.NewInvalidInput("days must be a positive integer"))
		return 0, false
	}
	return parsed, true
}

func (h *UsageHandler) logError(err error) {
	if err == nil {
		return
	}
	h.logger.Warn("usage_request_failed", "err", err)
}
