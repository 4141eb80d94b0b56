package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/llm"
	"github.com/ecosync/bill-server-go/internal/metrics"
	"github.com/ecosync/bill-server-go/internal/usage"
)

var (
	// ErrMissingAPIKey 는 Gemini API 키가 없을 때 반환된다.
	ErrMissingAPIKey = errors.New("missing gemini api key")
	// ErrInvalidModel 는 지원하지 않는 모델일 때 반환된다.
	ErrInvalidModel = errors.New("invalid model")
)

// Request 는 Gemini 요청 데이터다.
// Attachment 는 현재 턴에 첨부할 고지서 문서이고, History 항목의
// 첨부는 buildContents 에서 함께 전송된다.
type Request struct {
	Prompt       string
	SystemPrompt string
	History      []llm.HistoryEntry
	Attachment   *llm.Attachment
	Model        string
	Task         string
}

// Client 는 Gemini 호출을 담당한다.
// API 키를 라운드로빈으로 순환하며 키별 클라이언트를 재사용한다.
type Client struct {
	cfg           *config.Config
	metrics       *metrics.Store
	usageRecorder *usage.Recorder
	mu            sync.Mutex
	clients       map[string]*genai.Client
	apiKeys       []string
	apiKeyIdx     int
}

// NewClient 는 Gemini 클라이언트를 생성한다.
func NewClient(cfg *config.Config, metricsStore *metrics.Store, usageRecorder *usage.Recorder) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if metricsStore == nil {
		return nil, errors.New("metrics store is nil")
	}
	return &Client{
		cfg:           cfg,
		metrics:       metricsStore,
		usageRecorder: usageRecorder,
		clients:       make(map[string]*genai.Client),
		apiKeys:       cfg.Gemini.APIKeys,
	}, nil
}

// Generate 는 단발성 텍스트 요청을 수행한다.
// 고지서 사용량 추출과 절감 제안 생성에 사용한다.
func (c *Client) Generate(ctx context.Context, req Request) (string, string, error) {
	start := time.Now()
	response, model, err := c.generate(ctx, req)
	if err != nil {
		c.metrics.RecordError(req.Task, time.Since(start))
		return "", model, err
	}

	usage := extractUsage(response)
	c.metrics.RecordSuccess(req.Task, time.Since(start), usage)
	c.recordUsage(ctx, req.Task, usage)
	return response.Text(), model, nil
}

// ChatWithUsage 는 텍스트 응답과 사용량을 함께 반환한다.
func (c *Client) ChatWithUsage(ctx context.Context, req Request) (llm.ChatResult, string, error) {
	start := time.Now()
	response, model, err := c.generate(ctx, req)
	if err != nil {
		c.metrics.RecordError(req.Task, time.Since(start))
		return llm.ChatResult{}, model, err
	}

	textParts, thoughtParts := extractParts(response)
	text := strings.Join(textParts, "")
	reasoning := strings.Join(thoughtParts, "\n")
	usage := extractUsage(response)
	result := llm.ChatResult{
		Text:         text,
		Usage:        usage,
		Reasoning:    reasoning,
		HasReasoning: reasoning != "",
	}

	c.metrics.RecordSuccess(req.Task, time.Since(start), usage)
	c.recordUsage(ctx, req.Task, usage)
	return result, model, nil
}

func (c *Client) recordUsage(ctx context.Context, task string, usage llm.Usage) {
	if c.usageRecorder == nil {
		return
	}
	c.usageRecorder.Record(ctx, task, int64(usage.InputTokens), int64(usage.OutputTokens), int64(usage.ReasoningTokens))
}

func (c *Client) generate(ctx context.Context, req Request) (*genai.GenerateContentResponse, string, error) {
	client, err := c.selectClient(ctx)
	if err != nil {
		return nil, "", err
	}

	model, err := c.resolveModel(req.Model, req.Task)
	if err != nil {
		return nil, model, err
	}

	config := c.buildGenerateConfig(req.SystemPrompt, req.Task, model)
	contents := buildContents(req.Prompt, req.Attachment, req.History)
	response, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, model, fmt.Errorf("generate content: %w", err)
	}
	return response, model, nil
}

func (c *Client) selectClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.apiKeys) == 0 {
		return nil, ErrMissingAPIKey
	}

	key := c.apiKeys[c.apiKeyIdx%len(c.apiKeys)]
	c.apiKeyIdx++
	if client, ok := c.clients[key]; ok {
		return client, nil
	}

	timeout := time.Duration(c.cfg.Gemini.TimeoutSeconds) * time.Second
	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			Timeout: genai.Ptr(timeout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c.clients[key] = client
	return client, nil
}

func (c *Client) resolveModel(modelOverride string, task string) (string, error) {
	model := modelOverride
	if model == "" {
		model = c.cfg.Gemini.ModelForTask(task)
	}
	if model == "" {
		return "", ErrInvalidModel
	}
	if !isGemini3(model) {
		return model, ErrInvalidModel
	}
	return model, nil
}

func (c *Client) buildGenerateConfig(systemPrompt string, task string, model string) *genai.GenerateContentConfig {
	temperature := float32(c.cfg.Gemini.TemperatureForModel(model))
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(c.cfg.Gemini.MaxOutputTokens),
	}

	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	if thinkingLevel, ok := normalizeThinkingLevel(c.cfg.Gemini.Thinking.Level(task)); ok {
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingLevel:   thinkingLevel,
		}
	}

	return config
}

func buildContents(prompt string, attachment *llm.Attachment, history []llm.HistoryEntry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, entry := range history {
		var role genai.Role = genai.RoleUser
		if strings.EqualFold(entry.Role, "assistant") {
			role = genai.RoleModel
		}
		contents = append(contents, contentFrom(entry.Content, entry.Attachment, role))
	}
	contents = append(contents, contentFrom(prompt, attachment, genai.RoleUser))
	return contents
}

func contentFrom(text string, attachment *llm.Attachment, role genai.Role) *genai.Content {
	if attachment == nil || len(attachment.Data) == 0 {
		return genai.NewContentFromText(text, role)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(attachment.Data, attachment.MIMEType),
	}
	if text != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}
	return genai.NewContentFromParts(parts, role)
}

func normalizeThinkingLevel(level string) (genai.ThinkingLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return genai.ThinkingLevelLow, true
	case "medium":
		return genai.ThinkingLevelMedium, true
	case "high":
		return genai.ThinkingLevelHigh, true
	case "minimal":
		return genai.ThinkingLevelMinimal, true
	case "none", "":
		return "", false
	default:
		return "", false
	}
}

func extractParts(response *genai.GenerateContentResponse) ([]string, []string) {
	if response == nil || len(response.Candidates) == 0 {
		return nil, nil
	}
	content := response.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return nil, nil
	}

	texts := make([]string, 0)
	thoughts := make([]string, 0)
	for _, part := range content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if part.Thought {
			thoughts = append(thoughts, part.Text)
			continue
		}
		texts = append(texts, part.Text)
	}
	return texts, thoughts
}

func extractUsage(response *genai.GenerateContentResponse) llm.Usage {
	if response == nil || response.UsageMetadata == nil {
		return llm.Usage{}
	}
	usage := response.UsageMetadata
	return llm.Usage{
		InputTokens:     int(usage.PromptTokenCount),
		OutputTokens:    int(usage.CandidatesTokenCount) + int(usage.ThoughtsTokenCount),
		TotalTokens:     int(usage.TotalTokenCount),
		ReasoningTokens: int(usage.ThoughtsTokenCount),
	}
}

func isGemini3(model string) bool {
	return strings.Contains(strings.ToLower(model), "gemini-3")
}
