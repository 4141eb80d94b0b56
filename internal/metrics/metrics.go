package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecosync/bill-server-go/internal/llm"
)

type taskStats struct {
	calls           int64
	errors          int64
	inputTokens     int64
	outputTokens    int64
	reasoningTokens int64
	durationMs      int64
}

// Store 는 LLM 호출 통계를 작업 유형별로 저장한다.
// 내부 집계와 Prometheus 수집기를 함께 갱신한다.
type Store struct {
	extract   taskStats
	recommend taskStats
	chat      taskStats
	other     taskStats

	promRequests *prometheus.CounterVec
	promErrors   *prometheus.CounterVec
	promTokens   *prometheus.CounterVec
	promDuration *prometheus.HistogramVec
}

// NewStore 는 통계 저장소를 생성하고 수집기를 등록한다.
// registerer 가 nil 이면 Prometheus 연동 없이 동작한다.
func NewStore(registerer prometheus.Registerer) *Store {
	s := &Store{
		promRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total LLM requests by task.",
		}, []string{"task"}),
		promErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_request_errors_total",
			Help: "Total failed LLM requests by task.",
		}, []string{"task"}),
		promTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens by task and kind.",
		}, []string{"task", "kind"}),
		promDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM request duration by task.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
	}
	if registerer != nil {
		registerer.MustRegister(s.promRequests, s.promErrors, s.promTokens, s.promDuration)
	}
	return s
}

// RecordSuccess 는 성공 호출 통계를 기록한다.
func (s *Store) RecordSuccess(task string, duration time.Duration, usage llm.Usage) {
	stats := s.statsFor(task)
	atomic.AddInt64(&stats.calls, 1)
	atomic.AddInt64(&stats.inputTokens, int64(usage.InputTokens))
	atomic.AddInt64(&stats.outputTokens, int64(usage.OutputTokens))
	atomic.AddInt64(&stats.reasoningTokens, int64(usage.ReasoningTokens))
	atomic.AddInt64(&stats.durationMs, duration.Milliseconds())

	label := taskLabel(task)
	s.promRequests.WithLabelValues(label).Inc()
	s.promTokens.WithLabelValues(label, "input").Add(float64(usage.InputTokens))
	s.promTokens.WithLabelValues(label, "output").Add(float64(usage.OutputTokens))
	s.promTokens.WithLabelValues(label, "reasoning").Add(float64(usage.ReasoningTokens))
	s.promDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordError 는 실패 호출 통계를 기록한다.
func (s *Store) RecordError(task string, duration time.Duration) {
	stats := s.statsFor(task)
	atomic.AddInt64(&stats.calls, 1)
	atomic.AddInt64(&stats.errors, 1)
	atomic.AddInt64(&stats.durationMs, duration.Milliseconds())

	label := taskLabel(task)
	s.promRequests.WithLabelValues(label).Inc()
	s.promErrors.WithLabelValues(label).Inc()
	s.promDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// UsageTotals 는 전체 누적 사용량을 반환한다.
func (s *Store) UsageTotals() llm.Usage {
	var input, output, reasoning int64
	for _, stats := range s.allStats() {
		input += atomic.LoadInt64(&stats.inputTokens)
		output += atomic.LoadInt64(&stats.outputTokens)
		reasoning += atomic.LoadInt64(&stats.reasoningTokens)
	}
	return llm.Usage{
		InputTokens:     int(input),
		OutputTokens:    int(output),
		TotalTokens:     int(input + output),
		ReasoningTokens: int(reasoning),
	}
}

// Snapshot 는 통계 스냅샷을 반환한다.
func (s *Store) Snapshot() map[string]float64 {
	out := make(map[string]float64, 32)
	var totalCalls, totalErrors, totalDurationMs int64

	for task, stats := range map[string]*taskStats{
		"extract":   &s.extract,
		"recommend": &s.recommend,
		"chat":      &s.chat,
		"other":     &s.other,
	} {
		calls := atomic.LoadInt64(&stats.calls)
		errors := atomic.LoadInt64(&stats.errors)
		input := atomic.LoadInt64(&stats.inputTokens)
		output := atomic.LoadInt64(&stats.outputTokens)
		durationMs := atomic.LoadInt64(&stats.durationMs)

		totalCalls += calls
		totalErrors += errors
		totalDurationMs += durationMs

		out[task+"_calls"] = float64(calls)
		out[task+"_errors"] = float64(errors)
		out[task+"_tokens"] = float64(input + output)
	}

	avgDuration := 0.0
	if totalCalls > 0 {
		avgDuration = float64(totalDurationMs) / float64(totalCalls)
	}

	totals := s.UsageTotals()
	out["total_calls"] = float64(totalCalls)
	out["total_errors"] = float64(totalErrors)
	out["total_input_tokens"] = float64(totals.InputTokens)
	out["total_output_tokens"] = float64(totals.OutputTokens)
	out["total_reasoning_tokens"] = float64(totals.ReasoningTokens)
	out["total_tokens"] = float64(totals.TotalTokens)
	out["total_duration_ms"] = float64(totalDurationMs)
	out["avg_duration_ms"] = avgDuration
	return out
}

func (s *Store) statsFor(task string) *taskStats {
	switch task {
	case "extract":
		return &s.extract
	case "recommend":
		return &s.recommend
	case "chat":
		return &s.chat
	default:
		return &s.other
	}
}

func (s *Store) allStats() []*taskStats {
	return []*taskStats{&s.extract, &s.recommend, &s.chat, &s.other}
}

func taskLabel(task string) string {
	switch task {
	case "extract", "recommend", "chat":
		return task
	default:
		return "other"
	}
}
