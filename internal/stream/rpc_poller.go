package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/storage"

	"github.com/sirupsen/logrus"
)

// LedgerClient is the subset of the RPC client the poller needs
type LedgerClient interface {
	GetSignaturesForAddress(ctx context.Context, address string, opts map[string]interface{}) ([]rpc.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature, commitment string) (*rpc.TransactionResult, error)
}

// RPCPoller implements EventSource by polling getSignaturesForAddress.
// It is the fallback for endpoints without websocket support.
type RPCPoller struct {
	client       LedgerClient
	address      string
	pollInterval time.Duration
	fetchDelay   time.Duration
	maxPages     int
	logger       *logrus.Logger
	metrics      *metrics.Metrics

	mu            sync.RWMutex
	lastSignature string
	running       bool
	cancel        context.CancelFunc
}

// RPCPollerConfig holds configuration for the RPC poller
type RPCPollerConfig struct {
	RPCClient    LedgerClient
	Address      string
	PollInterval time.Duration
	FetchDelay   time.Duration
	// MaxPages bounds the backlog read in one poll; zero uses MaxSignaturePages
	MaxPages int
	Logger   *logrus.Logger
	Metrics      *metrics.Metrics
}

// NewRPCPoller creates a new RPC poller
func NewRPCPoller(cfg RPCPollerConfig) *RPCPoller {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Address == "" {
		cfg.Address = constants.RaydiumAuthority
	}
	if cfg.FetchDelay < 0 {
		cfg.FetchDelay = 0
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = constants.MaxSignaturePages
	}

	return &RPCPoller{
		client:       cfg.RPCClient,
		address:      cfg.Address,
		pollInterval: cfg.PollInterval,
		fetchDelay:   cfg.FetchDelay,
		maxPages:     cfg.MaxPages,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// Start begins polling for log events
func (r *RPCPoller) Start(ctx context.Context, handler storage.EventHandler) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.logger.WithFields(logrus.Fields{
		"interval": r.pollInterval,
		"address":  r.address,
	}).Info("starting RPC polling")

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := r.poll(ctx, handler); err != nil && ctx.Err() == nil {
				r.metrics.StreamError("poll")
				r.logger.WithError(err).Error("poll error")
			}
		}
	}
}

// Stop stops the poller
func (r *RPCPoller) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

// poll fetches signatures newer than the cursor and replays their logs oldest first.
// The first poll only seeds the cursor so a restart does not re-announce old pools.
func (r *RPCPoller) poll(ctx context.Context, handler storage.EventHandler) error {
	r.mu.RLock()
	lastSig := r.lastSignature
	r.mu.RUnlock()

	sigs, err := r.fetchSince(ctx, lastSig)
	if err != nil {
		return err
	}

	if len(sigs) == 0 {
		r.logger.Debug("no new transactions")
		return nil
	}

	r.mu.Lock()
	r.lastSignature = sigs[0].Signature
	r.mu.Unlock()

	if lastSig == "" {
		r.logger.WithField("cursor", short(sigs[0].Signature)).Info("poll cursor seeded")
		return nil
	}

	r.logger.WithField("count", len(sigs)).Debug("found new signatures")

	for i := len(sigs) - 1; i >= 0; i-- {
		sig := sigs[i]
		r.metrics.EventReceived()

		if sig.Err != nil {
			handler(&models.LedgerLogEvent{Signature: sig.Signature, Err: sig.Err, Slot: sig.Slot})
			continue
		}

		if i < len(sigs)-1 && r.fetchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.fetchDelay):
			}
		}

		tx, err := r.client.GetTransaction(ctx, sig.Signature, constants.CommitmentConfirmed)
		if err != nil {
			r.logger.WithError(err).WithField("signature", short(sig.Signature)).Warn("failed to fetch transaction logs")
			continue
		}

		var logs []string
		if tx.Meta != nil {
			logs = tx.Meta.LogMessages
		}

		handler(&models.LedgerLogEvent{
			Signature: sig.Signature,
			Logs:      logs,
			Slot:      sig.Slot,
		})
	}

	return nil
}

// fetchSince pages backwards from the newest signature until it reaches the cursor.
// Results are newest first. Without a cursor a single page is enough to seed one.
func (r *RPCPoller) fetchSince(ctx context.Context, cursor string) ([]rpc.SignatureInfo, error) {
	var (
		all    []rpc.SignatureInfo
		before string
	)

	for page := 0; ; page++ {
		opts := map[string]interface{}{
			"limit":      constants.SignatureBatchSize,
			"commitment": constants.CommitmentConfirmed,
		}
		if cursor != "" {
			opts["until"] = cursor
		}
		if before != "" {
			opts["before"] = before
		}

		sigs, err := r.client.GetSignaturesForAddress(ctx, r.address, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to get signatures: %w", err)
		}
		all = append(all, sigs...)

		if cursor == "" || len(sigs) < constants.SignatureBatchSize {
			return all, nil
		}
		if page+1 >= r.maxPages {
			r.logger.WithFields(logrus.Fields{
				"fetched": len(all),
				"cursor":  short(cursor),
			}).Warn("signature backlog exceeds page limit, older signatures skipped")
			return all, nil
		}
		before = sigs[len(sigs)-1].Signature
	}
}

func short(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}
