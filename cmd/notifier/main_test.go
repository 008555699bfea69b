package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/pipeline"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/storage"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lateSource delivers one last pool event after Stop, before Start returns,
// like a websocket frame decoded just as the connection closes.
type lateSource struct {
	stopped chan struct{}
	once    sync.Once
	sig     string
}

func (s *lateSource) Start(_ context.Context, handler storage.EventHandler) error {
	<-s.stopped
	time.Sleep(20 * time.Millisecond)
	handler(&models.LedgerLogEvent{Signature: s.sig, Logs: []string{constants.PoolInitMarker + " nonce: 254"}})
	return nil
}

func (s *lateSource) Stop() error {
	s.once.Do(func() { close(s.stopped) })
	return errors.New("already closed")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestShutdown_WaitsForSourceBeforeDraining(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = 7
	}
	source := &lateSource{stopped: make(chan struct{}), sig: base58.Encode(raw)}

	var runs atomic.Int32
	watcher := pipeline.NewWatcher(pipeline.WatcherConfig{
		Run: func(context.Context, string) error {
			time.Sleep(10 * time.Millisecond)
			runs.Add(1)
			return nil
		},
		Logger: quietLogger(),
	})

	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	streamErr := make(chan error, 1)
	go func() { streamErr <- source.Start(context.Background(), watcher.Handler(runCtx)) }()

	err := stopSource(source, streamErr, false)
	assert.Error(t, err, "Stop errors are reported")

	drainRuns(watcher, time.Second, cancelRuns, quietLogger())
	require.Equal(t, int32(1), runs.Load(), "the late event's run finished before drain returned")
	assert.NoError(t, runCtx.Err())
}

func TestDrainRuns_CancelsAfterTimeout(t *testing.T) {
	watcher := pipeline.NewWatcher(pipeline.WatcherConfig{
		Run: func(ctx context.Context, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Logger: quietLogger(),
	})

	raw := make([]byte, 64)
	raw[0] = 1
	runCtx, cancelRuns := context.WithCancel(context.Background())
	require.True(t, watcher.HandleEvent(runCtx, &models.LedgerLogEvent{
		Signature: base58.Encode(raw),
		Logs:      []string{constants.PoolInitMarker},
	}))

	drainRuns(watcher, 20*time.Millisecond, cancelRuns, quietLogger())
	assert.ErrorIs(t, runCtx.Err(), context.Canceled)
}
