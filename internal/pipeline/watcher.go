package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/storage"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

const signatureLength = 64

// RunFunc executes one pipeline run
type RunFunc func(ctx context.Context, signature string) error

// Watcher filters log events for the pool initialization marker and spawns
// one detached run per match. HandleEvent never blocks on network I/O.
type Watcher struct {
	run     RunFunc
	seen    storage.SeenStore // nil disables dedup
	marker  string
	logger  *logrus.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

type WatcherConfig struct {
	Run     RunFunc
	Seen    storage.SeenStore
	Marker  string
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Marker == "" {
		cfg.Marker = constants.PoolInitMarker
	}
	return &Watcher{
		run:     cfg.Run,
		seen:    cfg.Seen,
		marker:  cfg.Marker,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Handler adapts the watcher to an EventSource callback bound to ctx
func (w *Watcher) Handler(ctx context.Context) storage.EventHandler {
	return func(ev *models.LedgerLogEvent) {
		w.HandleEvent(ctx, ev)
	}
}

// HandleEvent inspects one event and returns whether a run was spawned.
func (w *Watcher) HandleEvent(ctx context.Context, ev *models.LedgerLogEvent) bool {
	if ev == nil {
		return false
	}
	// A logsNotification err is the transaction's own failure, not a transport
	// fault; reverted pool creations are routine, so this stays at Debug.
	// Transport errors are logged at Warn by the event sources.
	if ev.Err != nil {
		w.metrics.StreamError(metrics.StreamErrTxFailed)
		w.logger.WithFields(logrus.Fields{
			"signature": short(ev.Signature),
			"err":       fmt.Sprint(ev.Err),
		}).Debug("log event for a failed transaction")
		return false
	}
	if !w.matches(ev.Logs) {
		return false
	}
	if !validSignature(ev.Signature) {
		w.logger.WithField("signature", ev.Signature).Warn("dropping event with malformed signature")
		return false
	}

	w.metrics.EventMatched()
	w.logger.WithFields(logrus.Fields{
		"signature": ev.Signature,
		"slot":      ev.Slot,
	}).Info("🆕 pool initialization detected")

	w.wg.Add(1)
	go w.spawn(ctx, ev.Signature)
	return true
}

// Wait blocks until every spawned run has returned
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) spawn(ctx context.Context, signature string) {
	defer w.wg.Done()
	defer w.metrics.RunStarted()()
	defer func() {
		if r := recover(); r != nil {
			w.metrics.RunFinished(metrics.ResultError)
			w.logger.WithFields(logrus.Fields{
				"signature": short(signature),
				"panic":     r,
				"stack":     string(debug.Stack()),
			}).Error("pipeline run panicked")
		}
	}()

	if w.seen != nil {
		first, err := w.seen.MarkSeen(ctx, signature)
		if err != nil {
			w.logger.WithError(err).WithField("signature", short(signature)).Warn("dedup store unavailable, processing anyway")
		} else if !first {
			w.metrics.EventDuplicate()
			w.logger.WithField("signature", short(signature)).Debug("duplicate event skipped")
			return
		}
	}

	_ = w.run(ctx, signature)
}

func (w *Watcher) matches(logs []string) bool {
	for _, l := range logs {
		if strings.Contains(l, w.marker) {
			return true
		}
	}
	return false
}

func validSignature(sig string) bool {
	b, err := base58.Decode(sig)
	return err == nil && len(b) == signatureLength
}
