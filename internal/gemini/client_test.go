package gemini

import (
	"testing"

	"google.golang.org/genai"

	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/llm"
	"github.com/ecosync/bill-server-go/internal/metrics"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	cfg := &config.Config{
		Gemini: config.GeminiConfig{
			APIKeys:      []string{"key-a", "key-b"},
			DefaultModel: "gemini-3-flash-preview",
			ExtractModel: "gemini-3-flash-lite-preview",
		},
	}
	client, err := NewClient(cfg, metrics.NewStore(nil), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(nil, metrics.NewStore(nil), nil); err == nil {
		t.Fatal("nil config should fail")
	}
	if _, err := NewClient(&config.Config{}, nil, nil); err == nil {
		t.Fatal("nil metrics store should fail")
	}
}

func TestResolveModel(t *testing.T) {
	c := testClient(t)

	model, err := c.resolveModel("", "extract")
	if err != nil || model != "gemini-3-flash-lite-preview" {
		t.Fatalf("extract model = %q, %v", model, err)
	}

	model, err = c.resolveModel("", "chat")
	if err != nil || model != "gemini-3-flash-preview" {
		t.Fatalf("chat model = %q, %v", model, err)
	}

	if _, err := c.resolveModel("gemini-2.0-flash", "chat"); err != ErrInvalidModel {
		t.Fatalf("old model should be invalid, got %v", err)
	}

	model, err = c.resolveModel("gemini-3-pro-preview", "chat")
	if err != nil || model != "gemini-3-pro-preview" {
		t.Fatalf("override model = %q, %v", model, err)
	}
}

func TestBuildContentsWithAttachment(t *testing.T) {
	attachment := &llm.Attachment{MIMEType: "application/pdf", Data: []byte{0x25, 0x50}}
	history := []llm.HistoryEntry{
		{Role: "user", Content: "seed", Attachment: attachment},
		{Role: "assistant", Content: "ack"},
	}

	contents := buildContents("question", nil, history)
	if len(contents) != 3 {
		t.Fatalf("contents = %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser || len(contents[0].Parts) != 2 {
		t.Fatalf("seed turn should carry attachment + text, parts=%d", len(contents[0].Parts))
	}
	if contents[0].Parts[0].InlineData == nil || contents[0].Parts[0].InlineData.MIMEType != "application/pdf" {
		t.Fatal("attachment should be inline data")
	}
	if contents[1].Role != genai.RoleModel {
		t.Fatalf("assistant turn role = %q", contents[1].Role)
	}
	if contents[2].Parts[0].Text != "question" {
		t.Fatalf("final turn text = %q", contents[2].Parts[0].Text)
	}
}

func TestBuildContentsCurrentAttachment(t *testing.T) {
	attachment := &llm.Attachment{MIMEType: "image/png", Data: []byte{1, 2, 3}}
	contents := buildContents("read this bill", attachment, nil)
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	if len(contents[0].Parts) != 2 {
		t.Fatalf("parts = %d", len(contents[0].Parts))
	}
}

func TestSelectClientRotatesKeys(t *testing.T) {
	c := testClient(t)
	if c.apiKeyIdx != 0 {
		t.Fatalf("initial index = %d", c.apiKeyIdx)
	}

	// 키 순환 인덱스만 검증한다. 실제 클라이언트 생성은 네트워크가 필요 없다.
	c.mu.Lock()
	first := c.apiKeys[c.apiKeyIdx%len(c.apiKeys)]
	c.apiKeyIdx++
	second := c.apiKeys[c.apiKeyIdx%len(c.apiKeys)]
	c.mu.Unlock()

	if first == second {
		t.Fatalf("keys should rotate, got %q twice", first)
	}
}

func TestNormalizeThinkingLevel(t *testing.T) {
	if level, ok := normalizeThinkingLevel("HIGH"); !ok || level != genai.ThinkingLevelHigh {
		t.Fatalf("high = %v, %v", level, ok)
	}
	if _, ok := normalizeThinkingLevel("none"); ok {
		t.Fatal("none should disable thinking")
	}
	if _, ok := normalizeThinkingLevel("bogus"); ok {
		t.Fatal("unknown level should disable thinking")
	}
}

func TestExtractUsageNil(t *testing.T) {
	if got := extractUsage(nil); got != (llm.Usage{}) {
		t.Fatalf("nil response usage = %+v", got)
	}
}
