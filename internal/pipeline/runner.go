package pipeline

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/storage"

	"github.com/sirupsen/logrus"
)

// TransactionFetcher loads the parsed pool creation transaction
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature, commitment string) (*rpc.TransactionResult, error)
}

// Runner executes one pipeline run for a triggering signature.
// Its collaborators are shared, immutable handles; all run state is local.
type Runner struct {
	ledger     TransactionFetcher
	enricher   *Enricher
	dispatcher *Dispatcher
	publisher  storage.ReportPublisher
	cta        models.InlineButton
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

type RunnerConfig struct {
	Ledger     TransactionFetcher
	Enricher   *Enricher
	Dispatcher *Dispatcher
	Publisher  storage.ReportPublisher // optional
	CTA        models.InlineButton
	Logger     *logrus.Logger
	Metrics    *metrics.Metrics
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Runner{
		ledger:     cfg.Ledger,
		enricher:   cfg.Enricher,
		dispatcher: cfg.Dispatcher,
		publisher:  cfg.Publisher,
		cta:        cfg.CTA,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Build fetches, classifies, enriches and renders without dispatching.
func (r *Runner) Build(ctx context.Context, signature string) (*models.EnrichmentReport, models.NotificationMessage, error) {
	tx, err := r.ledger.GetTransaction(ctx, signature, constants.TransactionCommitment)
	if err != nil {
		if rpc.IsNotFound(err) {
			return nil, models.NotificationMessage{}, fmt.Errorf("%w: %v", ErrMalformedTransactionLayout, err)
		}
		return nil, models.NotificationMessage{}, fmt.Errorf("fetch transaction: %w", err)
	}

	legs, err := ExtractLegs(tx)
	if err != nil {
		return nil, models.NotificationMessage{}, err
	}

	pair, err := Classify(legs[0], legs[1])
	if err != nil {
		return nil, models.NotificationMessage{}, err
	}
	pair.Signature = signature

	report := r.enricher.Enrich(ctx, pair)
	msg := Render(report, r.cta)

	return report, msg, nil
}

// Run executes the whole pipeline for one signature.
// The returned error is informational; nothing upstream acts on it.
func (r *Runner) Run(ctx context.Context, signature string) error {
	log := r.logger.WithField("signature", short(signature))

	report, msg, err := r.Build(ctx, signature)
	if err != nil {
		if IsAbandon(err) {
			r.metrics.RunFinished(metrics.ResultSkipped)
			log.WithError(err).Debug("run abandoned")
		} else {
			r.metrics.RunFinished(metrics.ResultError)
			log.WithError(err).Warn("run failed")
		}
		return err
	}

	log = log.WithField("mint", report.Pair.BaseMint)
	log.WithField("text", msg.Text).Debug("rendered notification")

	dispatchErr := r.dispatcher.Dispatch(ctx, msg)

	if r.publisher != nil {
		if err := r.publisher.PublishReport(ctx, report); err != nil {
			log.WithError(err).Warn("failed to publish report")
		}
	}

	if dispatchErr != nil {
		r.metrics.RunFinished(metrics.ResultError)
		return dispatchErr
	}

	r.metrics.RunFinished(metrics.ResultOK)
	log.Info("✅ listing announced")
	return nil
}

func short(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}
