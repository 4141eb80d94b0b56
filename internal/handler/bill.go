package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecosync/bill-server-go/internal/audit"
	"github.com/ecosync/bill-server-go/internal/bill"
	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/handler/shared"
	"github.com/ecosync/bill-server-go/internal/httperror"
	"github.com/ecosync/bill-server-go/internal/session"
)

// defaultUserID 는 user_id 미지정 요청이 공유하는 세션 키다.
const defaultUserID = "default_user"

// billMode 는 고지서 처리 모드다. 경계에서 한 번만 해석한다.
type billMode int

const (
	modeBudget billMode = iota
	modeChat
)

// invalidModeMessage 는 알 수 없는 mode 값에 대한 데이터 수준 오류 본문이다.
const invalidModeMessage = "Invalid mode. Use 'budget' or 'chat'."

func parseBillMode(raw string) (billMode, bool) {
	switch raw {
	case "budget":
		return modeBudget, true
	case "chat":
		return modeChat, true
	default:
		return 0, false
	}
}

// BudgetResponse 는 budget 모드 응답 본문이다.
type BudgetResponse struct {
	Mode             string  `json:"mode"`
	OriginalCredits  float64 `json:"original_credits"`
	TargetCredits    float64 `json:"target_credits"`
	ReductionPercent int     `json:"reduction_percent"`
	Recommendations  string  `json:"recommendations"`
	Message          string  `json:"message"`
}

// ChatStartResponse 는 chat 모드 응답 본문이다.
type ChatStartResponse struct {
	Mode    string `json:"mode"`
	Message string `json:"message"`
}

// BillHandler 는 고지서 업로드 엔드포인트 핸들러다.
type BillHandler struct {
	cfg      *config.Config
	engine   *bill.Engine
	sessions *session.Manager
	audits   audit.Store
	logger   *slog.Logger
}

// NewBillHandler 는 고지서 핸들러를 생성한다.
func NewBillHandler(
	cfg *config.Config,
	engine *bill.Engine,
	sessions *session.Manager,
	audits audit.Store,
	logger *slog.Logger,
) *BillHandler {
	return &BillHandler{
		cfg:      cfg,
		engine:   engine,
		sessions: sessions,
		audits:   audits,
		logger:   logger,
	}
}

// RegisterRoutes 는 고지서 라우트를 등록한다.
func (h *BillHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/bill-handler/", h.handleBill)
}

func (h *BillHandler) handleBill(c *gin.Context) {
	maxBytes := h.cfg.Upload.MaxSizeBytes()
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	doc, err := h.readDocument(c)
	if err != nil {
		writeError(c, err)
		return
	}

	// mode 해석은 업로드 검증 다음, 세션 변이 이전에 끝낸다.
	// 잘못된 mode 는 세션에 아무 흔적도 남기지 않는다.
	mode, ok := parseBillMode(c.PostForm("mode"))
	if !ok {
		c.JSON(http.StatusOK, shared.DataError{Error: invalidModeMessage})
		return
	}

	reductionPercent, err := shared.FormIntDefault(c, "reduction_percent", 0)
	if err != nil {
		writeError(c, httperror.NewInvalidInput("reduction_percent must be an integer"))
		return
	}

	userID := shared.FormValueDefault(c, "user_id", defaultUserID)

	switch mode {
	case modeBudget:
		h.handleBudgetMode(c, doc, userID, reductionPercent)
	case modeChat:
		h.handleChatMode(c, doc, userID)
	}
}

func (h *BillHandler) handleBudgetMode(c *gin.Context, doc *bill.Document, userID string, reductionPercent int) {
	ctx := c.Request.Context()

	extraction := h.engine.ExtractUsage(ctx, *doc)
	budget := bill.ComputeBudget(extraction.UsageKWH, float64(reductionPercent))

	recommendations, err := h.engine.Recommend(ctx, *doc, extraction.UsageKWH)
	if err != nil {
		writeError(c, err)
		return
	}

	seed := bill.BudgetSeedMessage(extraction.UsageKWH, budget, recommendations)
	if _, err := h.sessions.Start(ctx, session.StartRequest{
		UserID:     userID,
		Mode:       "budget",
		UsageKWH:   extraction.UsageKWH,
		SeedText:   seed,
		Attachment: doc.Attachment(),
	}); err != nil {
		writeError(c, err)
		return
	}

	h.saveAnalysis(c, doc, userID, "budget", extraction, budget)

	h.logger.Info("bill_budget_computed",
		"user_id", userID,
		"usage_kwh", extraction.UsageKWH,
		"parsed", extraction.Parsed,
		"reduction_percent", reductionPercent,
	)

	c.JSON(http.StatusOK, BudgetResponse{
		Mode:             "budget",
		OriginalCredits:  budget.OriginalCredits,
		TargetCredits:    budget.TargetCredits,
		ReductionPercent: reductionPercent,
		Recommendations:  recommendations,
		Message:          "Budget computed and chat session started. Use /chat-reply to continue.",
	})
}

func (h *BillHandler) handleChatMode(c *gin.Context, doc *bill.Document, userID string) {
	ctx := c.Request.Context()

	if _, err := h.sessions.Start(ctx, session.StartRequest{
		UserID:     userID,
		Mode:       "chat",
		SeedText:   bill.ChatSeedMessage,
		Attachment: doc.Attachment(),
	}); err != nil {
		writeError(c, err)
		return
	}

	h.saveAnalysis(c, doc, userID, "chat", bill.Extraction{}, bill.Budget{})

	c.JSON(http.StatusOK, ChatStartResponse{
		Mode:    "chat",
		Message: "Chat session started. Use /chat-reply to continue.",
	})
}

// readDocument 는 multipart 업로드에서 고지서를 요청 메모리로 읽는다.
// 임시 파일은 만들지 않는다.
func (h *BillHandler) readDocument(c *gin.Context) (*bill.Document, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, httperror.NewMissingField("file")
		}
		return nil, httperror.NewUploadError(fmt.Sprintf("cannot read upload: %v", err))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, httperror.NewUploadError(fmt.Sprintf("cannot open upload: %v", err))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, httperror.NewUploadError(fmt.Sprintf("cannot read upload: %v", err))
	}

	doc := &bill.Document{
		Filename: fileHeader.Filename,
		MIMEType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	}
	if err := doc.Validate(); err != nil {
		return nil, httperror.NewUploadError(err.Error())
	}
	return doc, nil
}

// saveAnalysis 는 감사 기록을 남긴다. 저장 실패는 응답을 막지 않는다.
func (h *BillHandler) saveAnalysis(c *gin.Context, doc *bill.Document, userID, mode string, extraction bill.Extraction, budget bill.Budget) {
	if h.audits == nil {
		return
	}

	record := &audit.BillAnalysis{
		UserID:           userID,
		Filename:         doc.Filename,
		MIMEType:         doc.MIMEType,
		Mode:             mode,
		UsageKWH:         extraction.UsageKWH,
		OriginalCredits:  budget.OriginalCredits,
		TargetCredits:    budget.TargetCredits,
		ReductionPercent: budget.ReductionPercent,
		Parsed:           extraction.Parsed,
		CreatedAt:        time.Now(),
	}
	if err := h.audits.SaveAnalysis(c.Request.Context(), record); err != nil {
		shared.LogError(h.logger, "bill_audit", err)
	}
}
