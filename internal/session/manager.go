package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/gemini"
	"github.com/ecosync/bill-server-go/internal/llm"
)

// Manager 는 사용자별 채팅 세션을 관리한다.
// 같은 사용자에 대한 시작/응답은 keyedMutex 로 직렬화된다.
type Manager struct {
	store  Storage
	llm    gemini.LLM
	cfg    *config.Config
	logger *slog.Logger
	locks  *keyedMutex
}

// NewManager 세션 관리자 생성
func NewManager(
	store Storage,
	llmClient gemini.LLM,
	cfg *config.Config,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		store:  store,
		llm:    llmClient,
		cfg:    cfg,
		logger: logger,
		locks:  newKeyedMutex(),
	}
}

// StartRequest 세션 시작 요청
type StartRequest struct {
	UserID     string
	Mode       string
	UsageKWH   float64
	SeedText   string
	Attachment *llm.Attachment
}

// ReplyResponse 세션 채팅 응답
type ReplyResponse struct {
	Reply        string    `json:"reply"`
	Model        string    `json:"model"`
	Usage        llm.Usage `json:"usage"`
	MessageCount int       `json:"message_count"`
}

// Info 는 세션 정보 응답이다.
type Info struct {
	UserID       string             `json:"user_id"`
	Mode         string             `json:"mode"`
	UsageKWH     float64            `json:"usage_kwh,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	MessageCount int                `json:"message_count"`
	History      []llm.HistoryEntry `json:"history,omitempty"`
}

// Start 는 사용자 세션을 시드 턴 하나로 새로 시작한다.
// 같은 사용자의 기존 세션과 히스토리는 덮어쓴다 (last-write-wins).
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Meta, error) {
	unlock := m.locks.Lock(req.UserID)
	defer unlock()

	now := time.Now()
	meta := Meta{
		UserID:       req.UserID,
		Mode:         req.Mode,
		UsageKWH:     req.UsageKWH,
		CreatedAt:    now,
		UpdatedAt:    now,
		MessageCount: 1,
	}
	seed := llm.HistoryEntry{
		Role:       "user",
		Content:    req.SeedText,
		Attachment: req.Attachment,
	}

	if err := m.store.ReplaceSession(ctx, meta, seed); err != nil {
		return nil, err
	}

	m.logger.Debug("session_started", "user_id", req.UserID, "mode", req.Mode)
	return &meta, nil
}

// Reply 는 기존 세션에서 후속 메시지를 처리한다.
// 성공 시 히스토리에 사용자/모델 턴 두 개가 추가된다.
func (m *Manager) Reply(ctx context.Context, userID string, message string) (*ReplyResponse, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	meta, err := m.store.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := m.store.GetHistory(ctx, userID)
	if err != nil {
		history = make([]llm.HistoryEntry, 0)
	}

	result, model, err := m.llm.ChatWithUsage(ctx, gemini.Request{
		Prompt:  message,
		History: history,
		Task:    "chat",
	})
	if err != nil {
		return nil, fmt.Errorf("chat with usage: %w", err)
	}

	userEntry := llm.HistoryEntry{Role: "user", Content: message}
	assistantEntry := llm.HistoryEntry{Role: "assistant", Content: result.Text}

	if err := m.store.AppendHistory(ctx, userID, userEntry, assistantEntry); err != nil {
		m.logger.Warn("history_append_failed", "user_id", userID, "err", err)
	}

	meta.MessageCount += 2
	meta.UpdatedAt = time.Now()
	if err := m.store.UpdateSession(ctx, *meta); err != nil {
		m.logger.Warn("session_update_failed", "user_id", userID, "err", err)
	}

	return &ReplyResponse{
		Reply:        result.Text,
		Model:        model,
		Usage:        result.Usage,
		MessageCount: meta.MessageCount,
	}, nil
}

// Get 세션 정보 조회
func (m *Manager) Get(ctx context.Context, userID string) (*Info, error) {
	meta, err := m.store.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := m.store.GetHistory(ctx, userID)
	if err != nil {
		history = nil // 히스토리 조회 실패해도 메타는 반환
	}

	return &Info{
		UserID:       meta.UserID,
		Mode:         meta.Mode,
		UsageKWH:     meta.UsageKWH,
		CreatedAt:    meta.CreatedAt,
		UpdatedAt:    meta.UpdatedAt,
		MessageCount: meta.MessageCount,
		History:      history,
	}, nil
}

// Delete 세션 삭제
func (m *Manager) Delete(ctx context.Context, userID string) error {
	unlock := m.locks.Lock(userID)
	defer unlock()

	if err := m.store.DeleteSession(ctx, userID); err != nil {
		return err
	}

	m.logger.Debug("session_deleted", "user_id", userID)
	return nil
}

// Count 현재 세션 수
func (m *Manager) Count(ctx context.Context) int {
	count, err := m.store.SessionCount(ctx)
	if err != nil {
		return 0
	}
	return count
}
