package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ecosync/bill-server-go/internal/config"
)

// batchKey 는 플러시 대기 델타의 (날짜, 작업) 키다.
type batchKey struct {
	date time.Time
	task string
}

// usageDelta 일자/작업별 토큰 사용량 델타
type usageDelta struct {
	inputTokens     int64
	outputTokens    int64
	reasoningTokens int64
	requestCount    int64
}

const defaultFlushTimeout = 5 * time.Second

// batcher 는 토큰 사용량을 배치로 DB에 플러시한다.
// 플러시 실패 시 지수 백오프 후 재시도하며, 종료 시에는 남은 델타를 버린다.
type batcher struct {
	repo                     *Repository
	logger                   *slog.Logger
	flushInterval            time.Duration
	flushTimeout             time.Duration
	maxPendingRequests       int
	maxBackoff               time.Duration
	errorLogMaxInterval      time.Duration
	mu                       sync.Mutex
	pending                  map[batchKey]*usageDelta
	pendingRequestsTotal     int
	wakeup                   chan struct{}
	stopCh                   chan struct{}
	doneCh                   chan struct{}
	consecutiveFlushFailures int
	nextFlushAllowedAt       time.Time
	lastErrorLoggedAt        time.Time
}

func newBatcher(cfg *config.Config, repo *Repository, logger *slog.Logger) *batcher {
	interval := time.Duration(cfg.Database.UsageBatchFlushIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	maxBackoff := time.Duration(cfg.Database.UsageBatchMaxBackoffSeconds) * time.Second
	if maxBackoff <= 0 {
		maxBackoff = interval
	}
	maxPending := cfg.Database.UsageBatchMaxPendingRequests
	if maxPending <= 0 {
		maxPending = 1
	}
	flushTimeout := defaultFlushTimeout
	if cfg.Database.UsageBatchFlushTimeoutSeconds > 0 {
		flushTimeout = time.Duration(cfg.Database.UsageBatchFlushTimeoutSeconds) * time.Second
	}
	return &batcher{
		repo:                repo,
		logger:              logger,
		flushInterval:       interval,
		flushTimeout:        flushTimeout,
		maxPendingRequests:  maxPending,
		maxBackoff:          maxBackoff,
		errorLogMaxInterval: time.Duration(cfg.Database.UsageBatchErrorLogMaxIntervalSeconds) * time.Second,
		pending:             make(map[batchKey]*usageDelta),
		wakeup:              make(chan struct{}, 1),
		stopCh:              make(chan struct{}),
		doneCh:              make(chan struct{}),
	}
}

func (b *batcher) start() {
	go b.loop()
}

func (b *batcher) stop() {
	close(b.stopCh)
	<-b.doneCh
}

func (b *batcher) add(task string, inputTokens int64, outputTokens int64, reasoningTokens int64, requestCount int64) {
	if inputTokens <= 0 && outputTokens <= 0 {
		return
	}

	key := batchKey{date: todayDate(), task: normalizeTask(task)}
	b.mu.Lock()
	delta := b.pending[key]
	if delta == nil {
		delta = &usageDelta{}
		b.pending[key] = delta
	}
	delta.inputTokens += inputTokens
	delta.outputTokens += outputTokens
	delta.reasoningTokens += reasoningTokens
	delta.requestCount += requestCount
	b.pendingRequestsTotal += int(requestCount)
	shouldFlush := b.pendingRequestsTotal >= b.maxPendingRequests
	b.mu.Unlock()

	if shouldFlush {
		b.signal()
	}
}

func (b *batcher) loop() {
	ticker := time.NewTicker(b.flushInterval)
	defer func() {
		ticker.Stop()
		close(b.doneCh)
	}()

	for {
		select {
		case <-ticker.C:
			b.flush(false)
		case <-b.wakeup:
			b.flush(false)
		case <-b.stopCh:
			b.flush(true)
			return
		}
	}
}

func (b *batcher) signal() {
	select {
	case b.wakeup <- struct{}{}:
	default:
	}
}

func (b *batcher) flush(isShutdown bool) {
	if !isShutdown && !b.nextFlushAllowedAt.IsZero() && time.Now().Before(b.nextFlushAllowedAt) {
		return
	}

	snapshot := b.takeSnapshot()
	if len(snapshot) == 0 {
		return
	}

	var firstErr error
	for key, delta := range snapshot {
		ctx, cancel := context.WithTimeout(context.Background(), b.flushTimeout)
		err := b.repo.RecordUsage(
			ctx,
			key.task,
			delta.inputTokens,
			delta.outputTokens,
			delta.reasoningTokens,
			delta.requestCount,
			key.date,
		)
		cancel()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if !isShutdown {
				b.requeue(key, delta)
			}
		}
	}

	if firstErr != nil {
		b.registerFailure(firstErr)
		return
	}
	b.consecutiveFlushFailures = 0
	b.nextFlushAllowedAt = time.Time{}
}

func (b *batcher) takeSnapshot() map[batchKey]usageDelta {
	snapshot := make(map[batchKey]usageDelta)
	b.mu.Lock()
	for key, delta := range b.pending {
		snapshot[key] = *delta
	}
	b.pending = make(map[batchKey]*usageDelta)
	b.pendingRequestsTotal = 0
	b.mu.Unlock()
	return snapshot
}

func (b *batcher) requeue(key batchKey, delta usageDelta) {
	b.mu.Lock()
	existing := b.pending[key]
	if existing == nil {
		existing = &usageDelta{}
		b.pending[key] = existing
	}
	existing.inputTokens += delta.inputTokens
	existing.outputTokens += delta.outputTokens
	existing.reasoningTokens += delta.reasoningTokens
	existing.requestCount += delta.requestCount
	b.pendingRequestsTotal += int(delta.requestCount)
	b.mu.Unlock()
}

func (b *batcher) registerFailure(firstErr error) {
	b.consecutiveFlushFailures++
	backoff := b.computeBackoff()
	b.nextFlushAllowedAt = time.Now().Add(backoff)

	if b.shouldLogFailure() {
		b.lastErrorLoggedAt = time.Now()
		if b.logger != nil {
			b.logger.Warn(
				"usage_db_batch_flush_failed",
				"failures", b.consecutiveFlushFailures,
				"backoff", backoff,
				"pending_requests", b.pendingRequestsTotal,
				"err", firstErr,
			)
		}
	}
}

func (b *batcher) computeBackoff() time.Duration {
	backoff := b.flushInterval * time.Duration(1<<max(0, b.consecutiveFlushFailures-1))
	if backoff > b.maxBackoff {
		backoff = b.maxBackoff
	}
	if backoff <= 0 {
		backoff = b.flushInterval
	}
	return backoff
}

func (b *batcher) shouldLogFailure() bool {
	if b.consecutiveFlushFailures <= 0 {
		return false
	}
	if isPowerOfTwo(b.consecutiveFlushFailures) {
		return true
	}
	if b.errorLogMaxInterval <= 0 {
		return false
	}
	return time.Since(b.lastErrorLoggedAt) >= b.errorLogMaxInterval
}

func isPowerOfTwo(value int) bool {
	return value > 0 && (value&(value-1)) == 0
}
