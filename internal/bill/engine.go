package bill

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ecosync/bill-server-go/internal/gemini"
)

// Extraction 은 고지서 사용량 추출 결과다.
// 추출 실패 시 UsageKWH 는 0, Parsed 는 false 로 열린 채 진행한다.
type Extraction struct {
	UsageKWH float64
	Parsed   bool
	Raw      string
}

// Engine 은 고지서 분석 파이프라인을 담당한다.
type Engine struct {
	llm    gemini.LLM
	logger *slog.Logger
}

// NewEngine 은 분석 엔진을 생성한다.
func NewEngine(client gemini.LLM, logger *slog.Logger) (*Engine, error) {
	if client == nil {
		return nil, errors.New("llm client is nil")
	}
	return &Engine{llm: client, logger: logger}, nil
}

// ExtractUsage 는 고지서에서 총 사용량(kWh)을 추출합니다.
// LLM 오류와 숫자 해석 실패는 모두 사용량 0 으로 처리한다.
func (e *Engine) ExtractUsage(ctx context.Context, doc Document) Extraction {
	response, model, err := e.llm.Generate(ctx, gemini.Request{
		Prompt:     extractPrompt,
		Attachment: doc.Attachment(),
		Task:       "extract",
	})
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("usage_extract_failed", "model", model, "filename", doc.Filename, "err", err)
		}
		return Extraction{}
	}

	usage, parsed := parseUsage(response)
	if !parsed && e.logger != nil {
		e.logger.Warn("usage_parse_failed", "model", model, "response", trimResponse(response))
	}
	return Extraction{UsageKWH: usage, Parsed: parsed, Raw: strings.TrimSpace(response)}
}

// Recommend 는 사용량에 맞는 절감 제안을 생성합니다.
func (e *Engine) Recommend(ctx context.Context, doc Document, usageKWH float64) (string, error) {
	response, model, err := e.llm.Generate(ctx, gemini.Request{
		Prompt:     recommendPrompt(usageKWH),
		Attachment: doc.Attachment(),
		Task:       "recommend",
	})
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("recommend_failed", "model", model, "err", err)
		}
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// parseUsage 는 LLM 응답에서 사용량 숫자를 해석합니다.
// 공백 제거 후 응답 전체가 숫자일 때만 인정한다.
// 숫자 주변에 설명 문장이 섞인 응답은 사용량 0 으로 연다.
func parseUsage(response string) (float64, bool) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func trimResponse(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 80 {
		return value
	}
	return value[:80]
}
