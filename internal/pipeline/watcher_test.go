package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type memSeen struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memSeen) MarkSeen(_ context.Context, sig string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[sig] {
		return false, nil
	}
	m.seen[sig] = true
	return true, nil
}

func (m *memSeen) Close() error { return nil }

func initEvent(sig string) *models.LedgerLogEvent {
	return &models.LedgerLogEvent{
		Signature: sig,
		Logs: []string{
			"Program 675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8 invoke [1]",
			constants.PoolInitMarker + " InitializeInstruction2 { nonce: 254 }",
		},
	}
}

func countingWatcher(seen *memSeen) (*Watcher, *int32) {
	var runs int32
	cfg := WatcherConfig{
		Run: func(context.Context, string) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
		Logger: quietLogger(),
	}
	if seen != nil {
		cfg.Seen = seen
	}
	return NewWatcher(cfg), &runs
}

func TestWatcher_SpawnsOnMarker(t *testing.T) {
	w, runs := countingWatcher(nil)

	assert.True(t, w.HandleEvent(context.Background(), initEvent(testSignature)))
	w.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(runs))
}

func TestWatcher_IgnoresNonMatching(t *testing.T) {
	w, runs := countingWatcher(nil)
	ctx := context.Background()

	assert.False(t, w.HandleEvent(ctx, nil))
	assert.False(t, w.HandleEvent(ctx, &models.LedgerLogEvent{Signature: testSignature, Logs: []string{"Program log: swap"}}))
	assert.False(t, w.HandleEvent(ctx, &models.LedgerLogEvent{Signature: testSignature}))

	errEv := initEvent(testSignature)
	errEv.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	assert.False(t, w.HandleEvent(ctx, errEv))

	assert.False(t, w.HandleEvent(ctx, initEvent("not-base58!")))
	assert.False(t, w.HandleEvent(ctx, initEvent("1111")))

	w.Wait()
	assert.EqualValues(t, 0, atomic.LoadInt32(runs))
}

func TestWatcher_FailedTransactionEventIsCountedNotRun(t *testing.T) {
	m := metrics.New()
	var runs int32
	w := NewWatcher(WatcherConfig{
		Run: func(context.Context, string) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
		Logger:  quietLogger(),
		Metrics: m,
	})

	ev := initEvent(testSignature)
	ev.Err = map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 1}}}
	assert.False(t, w.HandleEvent(context.Background(), ev))

	w.Wait()
	assert.EqualValues(t, 0, atomic.LoadInt32(&runs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamErrors.WithLabelValues(metrics.StreamErrTxFailed)))
}

func TestWatcher_DuplicatesWithoutDedupRunTwice(t *testing.T) {
	w, runs := countingWatcher(nil)

	w.HandleEvent(context.Background(), initEvent(testSignature))
	w.HandleEvent(context.Background(), initEvent(testSignature))
	w.Wait()
	assert.EqualValues(t, 2, atomic.LoadInt32(runs))
}

func TestWatcher_DedupDropsRepeats(t *testing.T) {
	w, runs := countingWatcher(&memSeen{})

	for i := 0; i < 3; i++ {
		w.HandleEvent(context.Background(), initEvent(testSignature))
	}
	w.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(runs))
}

func TestWatcher_DoesNotBlockOnRun(t *testing.T) {
	release := make(chan struct{})
	w := NewWatcher(WatcherConfig{
		Run: func(context.Context, string) error {
			<-release
			return nil
		},
		Logger: quietLogger(),
	})

	for i := 0; i < 5; i++ {
		assert.True(t, w.HandleEvent(context.Background(), initEvent(testSignature)))
	}
	close(release)
	w.Wait()
}

func TestWatcher_RecoversRunPanic(t *testing.T) {
	w := NewWatcher(WatcherConfig{
		Run:    func(context.Context, string) error { panic("boom") },
		Logger: quietLogger(),
	})

	assert.NotPanics(t, func() {
		w.HandleEvent(context.Background(), initEvent(testSignature))
		w.Wait()
	})
}
