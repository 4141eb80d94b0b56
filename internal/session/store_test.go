package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"

	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/llm"
)

func newTestStore(t *testing.T, historyMaxPairs int) (*Store, *miniredis.Miniredis) {
	mini := miniredis.RunT(t)
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{URL: "redis://" + mini.Addr(), Enabled: true, DisableCache: true},
		Session: config.SessionConfig{
			SessionTTLMinutes: 1,
			HistoryMaxPairs:   historyMaxPairs,
		},
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		mini.Close()
	})
	return store, mini
}

func seedEntry(content string) llm.HistoryEntry {
	return llm.HistoryEntry{Role: "user", Content: content}
}

func TestNewStoreDisabled(t *testing.T) {
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{Enabled: false, Required: true},
	}
	if _, err := NewStore(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewStoreFallsBackToMemoryWhenValkeyDisabled(t *testing.T) {
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{Enabled: false, Required: false},
		Session: config.SessionConfig{
			SessionTTLMinutes: 1,
			HistoryMaxPairs:   2,
		},
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("expected memory store, got error: %v", err)
	}

	now := time.Now()
	meta := Meta{UserID: "u1", Mode: "budget", UsageKWH: 300, CreatedAt: now, UpdatedAt: now, MessageCount: 1}
	if err := store.ReplaceSession(context.Background(), meta, seedEntry("seed")); err != nil {
		t.Fatalf("replace session: %v", err)
	}

	loaded, err := store.GetSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.UserID != "u1" || loaded.Mode != "budget" || loaded.UsageKWH != 300 {
		t.Fatalf("unexpected session: %+v", loaded)
	}

	if err := store.AppendHistory(context.Background(), "u1", seedEntry("follow-up")); err != nil {
		t.Fatalf("append history: %v", err)
	}
	history, err := store.GetHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected seed + follow-up, got %d", len(history))
	}

	if err := store.DeleteSession(context.Background(), "u1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.GetSession(context.Background(), "u1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewStoreMiniredisRequiresDisableCache(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{URL: "redis://" + mini.Addr(), Enabled: true, DisableCache: false},
		Session: config.SessionConfig{
			SessionTTLMinutes: 1,
			HistoryMaxPairs:   1,
		},
	}
	if _, err := NewStore(cfg); err == nil {
		t.Fatalf("expected error")
	} else if !errors.Is(err, valkey.ErrNoCache) {
		t.Fatalf("expected valkey.ErrNoCache, got: %v", err)
	}
}

func TestStoreCRUD(t *testing.T) {
	store, _ := newTestStore(t, 2)

	now := time.Now()
	meta := Meta{UserID: "u1", Mode: "chat", CreatedAt: now, UpdatedAt: now, MessageCount: 1}
	if err := store.ReplaceSession(context.Background(), meta, seedEntry("seed")); err != nil {
		t.Fatalf("replace session: %v", err)
	}

	loaded, err := store.GetSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.UserID != "u1" || loaded.Mode != "chat" {
		t.Fatalf("unexpected session: %+v", loaded)
	}

	loaded.MessageCount = 3
	if err := store.UpdateSession(context.Background(), *loaded); err != nil {
		t.Fatalf("update session: %v", err)
	}
	reloaded, err := store.GetSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get session after update: %v", err)
	}
	if reloaded.MessageCount != 3 {
		t.Fatalf("message count = %d", reloaded.MessageCount)
	}

	if err := store.DeleteSession(context.Background(), "u1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.GetSession(context.Background(), "u1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReplaceSessionDropsHistory(t *testing.T) {
	store, _ := newTestStore(t, 10)

	now := time.Now()
	meta := Meta{UserID: "u1", Mode: "budget", CreatedAt: now, UpdatedAt: now, MessageCount: 1}
	if err := store.ReplaceSession(context.Background(), meta, seedEntry("first seed")); err != nil {
		t.Fatalf("replace session: %v", err)
	}
	if err := store.AppendHistory(context.Background(), "u1",
		seedEntry("question"),
		llm.HistoryEntry{Role: "assistant", Content: "answer"},
	); err != nil {
		t.Fatalf("append history: %v", err)
	}

	meta.Mode = "chat"
	if err := store.ReplaceSession(context.Background(), meta, seedEntry("second seed")); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	history, err := store.GetHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "second seed" {
		t.Fatalf("old history should be dropped, got %+v", history)
	}

	loaded, err := store.GetSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.Mode != "chat" {
		t.Fatalf("meta should be overwritten, mode = %q", loaded.Mode)
	}
}

func TestStoreHistoryTrim(t *testing.T) {
	store, _ := newTestStore(t, 1)

	now := time.Now()
	meta := Meta{UserID: "u1", CreatedAt: now, UpdatedAt: now, MessageCount: 1}
	if err := store.ReplaceSession(context.Background(), meta, seedEntry("seed")); err != nil {
		t.Fatalf("replace session: %v", err)
	}

	entries := []llm.HistoryEntry{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "four"},
	}
	if err := store.AppendHistory(context.Background(), "u1", entries...); err != nil {
		t.Fatalf("append history: %v", err)
	}

	history, err := store.GetHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	// maxPairs=1 이면 시드 턴 + 최근 2턴만 유지된다
	if len(history) != 3 {
		t.Fatalf("expected trimmed history, got %d", len(history))
	}
	if history[0].Content != "seed" || history[1].Content != "three" || history[2].Content != "four" {
		t.Fatalf("unexpected history order: %+v", history)
	}
}

func TestStoreTrimKeepsSeedAttachment(t *testing.T) {
	store, _ := newTestStore(t, 1)

	now := time.Now()
	meta := Meta{UserID: "u1", Mode: "budget", CreatedAt: now, UpdatedAt: now, MessageCount: 1}
	seed := llm.HistoryEntry{
		Role:    "user",
		Content: "bill context",
		Attachment: &llm.Attachment{
			MIMEType: "application/pdf",
			Data:     []byte("%PDF-1.4 bill"),
			Filename: "bill.pdf",
		},
	}
	if err := store.ReplaceSession(context.Background(), meta, seed); err != nil {
		t.Fatalf("replace session: %v", err)
	}

	// 트림 한도를 넘겨도 시드 턴과 첨부는 남아야 한다
	for _, turn := range []string{"q1", "a1", "q2", "a2"} {
		if err := store.AppendHistory(context.Background(), "u1", seedEntry(turn)); err != nil {
			t.Fatalf("append history: %v", err)
		}
	}

	history, err := store.GetHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected seed + 2 turns, got %d", len(history))
	}
	if history[0].Content != "bill context" {
		t.Fatalf("seed should survive trim, got %+v", history[0])
	}
	if history[0].Attachment == nil || history[0].Attachment.Filename != "bill.pdf" {
		t.Fatalf("seed attachment should survive trim, got %+v", history[0].Attachment)
	}
	if history[1].Content != "q2" || history[2].Content != "a2" {
		t.Fatalf("unexpected trailing turns: %+v", history)
	}
}

func TestMemoryStoreTrimKeepsSeed(t *testing.T) {
	cfg := &config.Config{
		SessionStore: config.SessionStoreConfig{Enabled: false, Required: false},
		Session: config.SessionConfig{
			SessionTTLMinutes: 1,
			HistoryMaxPairs:   1,
		},
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("expected memory store, got error: %v", err)
	}

	now := time.Now()
	meta := Meta{UserID: "u1", CreatedAt: now, UpdatedAt: now, MessageCount: 1}
	if err := store.ReplaceSession(context.Background(), meta, seedEntry("seed")); err != nil {
		t.Fatalf("replace session: %v", err)
	}
	for _, turn := range []string{"q1", "a1", "q2", "a2"} {
		if err := store.AppendHistory(context.Background(), "u1", seedEntry(turn)); err != nil {
			t.Fatalf("append history: %v", err)
		}
	}

	history, err := store.GetHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(history) != 3 || history[0].Content != "seed" || history[1].Content != "q2" || history[2].Content != "a2" {
		t.Fatalf("unexpected history after trim: %+v", history)
	}
}

func TestStoreSessionCountAndPing(t *testing.T) {
	store, _ := newTestStore(t, 1)

	now := time.Now()
	for _, userID := range []string{"u1", "u2"} {
		meta := Meta{UserID: userID, CreatedAt: now, UpdatedAt: now, MessageCount: 1}
		if err := store.ReplaceSession(context.Background(), meta, seedEntry("seed")); err != nil {
			t.Fatalf("replace session: %v", err)
		}
	}

	count, err := store.SessionCount(context.Background())
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 sessions, got %d", count)
	}

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}
