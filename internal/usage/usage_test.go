package usage

import (
	"testing"
	"time"
)

func TestDailyUsageTotals(t *testing.T) {
	row := DailyUsage{InputTokens: 2, OutputTokens: 3}
	if row.TotalTokens() != 5 {
		t.Fatalf("unexpected total tokens")
	}
}

func TestNormalizeTask(t *testing.T) {
	for _, task := range []string{"extract", "recommend", "chat"} {
		if got := normalizeTask(task); got != task {
			t.Fatalf("normalizeTask(%q) = %q", task, got)
		}
	}
	if got := normalizeTask("mystery"); got != "chat" {
		t.Fatalf("unknown task should normalize to chat, got %q", got)
	}
}

func TestBatcherAddAccumulatesByTask(t *testing.T) {
	b := &batcher{
		pending:            make(map[batchKey]*usageDelta),
		maxPendingRequests: 100,
		wakeup:             make(chan struct{}, 1),
	}

	b.add("extract", 10, 5, 0, 1)
	b.add("extract", 2, 1, 0, 1)
	b.add("chat", 7, 3, 1, 1)
	b.add("chat", 0, 0, 0, 1) // zero-token calls are not queued

	if len(b.pending) != 2 {
		t.Fatalf("pending keys = %d", len(b.pending))
	}
	key := batchKey{date: todayDate(), task: "extract"}
	delta := b.pending[key]
	if delta == nil || delta.inputTokens != 12 || delta.outputTokens != 6 || delta.requestCount != 2 {
		t.Fatalf("extract delta = %+v", delta)
	}
	if b.pendingRequestsTotal != 3 {
		t.Fatalf("pending requests = %d", b.pendingRequestsTotal)
	}
}

func TestBatcherBackoff(t *testing.T) {
	b := &batcher{flushInterval: time.Second, maxBackoff: 4 * time.Second}

	b.consecutiveFlushFailures = 1
	if backoff := b.computeBackoff(); backoff != time.Second {
		t.Fatalf("unexpected backoff: %v", backoff)
	}

	b.consecutiveFlushFailures = 2
	if backoff := b.computeBackoff(); backoff != 2*time.Second {
		t.Fatalf("unexpected backoff: %v", backoff)
	}

	b.consecutiveFlushFailures = 4
	if backoff := b.computeBackoff(); backoff != 4*time.Second {
		t.Fatalf("unexpected backoff cap: %v", backoff)
	}
}

func TestBatcherShouldLogFailure(t *testing.T) {
	b := &batcher{errorLogMaxInterval: time.Hour}
	b.consecutiveFlushFailures = 1
	if !b.shouldLogFailure() {
		t.Fatalf("expected log on first failure")
	}

	b.consecutiveFlushFailures = 3
	b.lastErrorLoggedAt = time.Now()
	if b.shouldLogFailure() {
		t.Fatalf("did not expect log for non power-of-two")
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	if !isPowerOfTwo(1) || !isPowerOfTwo(2) || !isPowerOfTwo(4) {
		t.Fatalf("expected power of two")
	}
	if isPowerOfTwo(3) || isPowerOfTwo(0) {
		t.Fatalf("unexpected power of two")
	}
}
