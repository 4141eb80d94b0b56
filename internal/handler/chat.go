package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/guard"
	"github.com/ecosync/bill-server-go/internal/handler/shared"
	"github.com/ecosync/bill-server-go/internal/httperror"
	"github.com/ecosync/bill-server-go/internal/session"
)

// noSessionMessage 는 세션 없는 사용자의 데이터 수준 오류 본문이다.
const noSessionMessage = "No active chat session for this user."

// ChatReplyResponse 는 채팅 응답 본문이다.
type ChatReplyResponse struct {
	Reply string `json:"reply"`
}

// ChatHandler 는 후속 채팅 엔드포인트 핸들러다.
type ChatHandler struct {
	cfg      *config.Config
	sessions *session.Manager
	guard    guard.Guard
	logger   *slog.Logger
}

// NewChatHandler 는 채팅 핸들러를 생성한다.
func NewChatHandler(
	cfg *config.Config,
	sessions *session.Manager,
	injectionGuard guard.Guard,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		cfg:      cfg,
		sessions: sessions,
		guard:    injectionGuard,
		logger:   logger,
	}
}

// RegisterRoutes 는 채팅 라우트를 등록한다.
func (h *ChatHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/chat-reply/", h.handleReply)
}

func (h *ChatHandler) handleReply(c *gin.Context) {
	userID := strings.TrimSpace(c.PostForm("user_id"))
	if userID == "" {
		writeError(c, httperror.NewMissingField("user_id"))
		return
	}

	message := strings.TrimSpace(c.PostForm("message"))
	if message == "" {
		writeError(c, httperror.NewMissingField("message"))
		return
	}

	ctx := c.Request.Context()

	// 메시지는 시드된 LLM 문맥으로 그대로 흘러가므로 먼저 가드를 거친다.
	if h.guard != nil {
		if err := h.guard.EnsureSafe(message); err != nil {
			h.logger.Warn("chat_message_blocked", "user_id", userID)
			writeError(c, err)
			return
		}
	}

	resp, err := h.sessions.Reply(ctx, userID, message)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusOK, shared.DataError{Error: noSessionMessage})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChatReplyResponse{Reply: resp.Reply})
}
