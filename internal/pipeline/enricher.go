package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/format"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"

	"github.com/sirupsen/logrus"
)

// Lookup names, used as keys in EnrichmentReport.Errors and as metric labels
const (
	LookupSupply   = "supply"
	LookupHolders  = "holders"
	LookupPrice    = "price"
	LookupMetadata = "metadata"
)

// SupplyQuerier is the ledger side of enrichment
type SupplyQuerier interface {
	GetTokenSupply(ctx context.Context, mint, commitment string) (*rpc.TokenAmount, error)
	GetTokenLargestAccounts(ctx context.Context, mint, commitment string) ([]rpc.LargestAccount, error)
}

type MetadataFinder interface {
	FindByMint(ctx context.Context, mint string) (*models.TokenMetadata, error)
}

type PriceSource interface {
	NativePrice(ctx context.Context) (float64, error)
}

// Enricher runs the four lookups for a pair concurrently and derives the economics
type Enricher struct {
	ledger   SupplyQuerier
	metadata MetadataFinder
	prices   PriceSource
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

type EnricherConfig struct {
	Ledger   SupplyQuerier
	Metadata MetadataFinder
	Prices   PriceSource
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics
}

func NewEnricher(cfg EnricherConfig) *Enricher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Enricher{
		ledger:   cfg.Ledger,
		metadata: cfg.Metadata,
		prices:   cfg.Prices,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// result holds one lookup outcome; each goroutine writes only its own
type result[T any] struct {
	val T
	err error
}

// Enrich never fails: lookups that error leave their fields nil and are
// recorded in report.Errors. Derived values are set only when all inputs exist.
func (e *Enricher) Enrich(ctx context.Context, pair *models.ClassifiedPair) *models.EnrichmentReport {
	var (
		wg       sync.WaitGroup
		supply   result[*float64]
		holders  result[[]rpc.LargestAccount]
		price    result[float64]
		metadata result[*models.TokenMetadata]
	)

	wg.Add(4)
	go e.lookup(&wg, LookupSupply, func() error {
		amt, err := e.ledger.GetTokenSupply(ctx, pair.BaseMint, constants.SupplyCommitment)
		if err != nil {
			return err
		}
		if amt.UIAmount == nil {
			return fmt.Errorf("supply uiAmount is null")
		}
		supply.val = amt.UIAmount
		return nil
	}, &supply.err)

	go e.lookup(&wg, LookupHolders, func() error {
		accts, err := e.ledger.GetTokenLargestAccounts(ctx, pair.BaseMint, constants.HoldersCommitment)
		holders.val = accts
		return err
	}, &holders.err)

	go e.lookup(&wg, LookupPrice, func() error {
		p, err := e.prices.NativePrice(ctx)
		price.val = p
		return err
	}, &price.err)

	go e.lookup(&wg, LookupMetadata, func() error {
		md, err := e.metadata.FindByMint(ctx, pair.BaseMint)
		metadata.val = md
		return err
	}, &metadata.err)

	wg.Wait()

	report := &models.EnrichmentReport{
		Pair:        *pair,
		Errors:      map[string]string{},
		GeneratedAt: time.Now().UTC(),
	}

	if supply.err != nil {
		report.Errors[LookupSupply] = supply.err.Error()
	} else {
		report.Supply = supply.val
	}

	if price.err != nil {
		report.Errors[LookupPrice] = price.err.Error()
	} else {
		p := price.val
		report.NativePrice = &p
	}

	if metadata.err != nil {
		report.Errors[LookupMetadata] = metadata.err.Error()
	} else {
		report.Metadata = metadata.val
	}

	switch {
	case holders.err != nil:
		report.Errors[LookupHolders] = holders.err.Error()
	case report.Supply == nil:
		report.Errors[LookupHolders] = "skipped: supply unavailable"
	default:
		report.Holders = topHolders(holders.val, *report.Supply)
	}

	derive(report)

	if len(report.Errors) > 0 {
		e.logger.WithFields(logrus.Fields{
			"mint":   pair.BaseMint,
			"errors": report.Errors,
		}).Warn("enrichment partially failed")
	}

	return report
}

func (e *Enricher) lookup(wg *sync.WaitGroup, name string, fn func() error, errOut *error) {
	defer wg.Done()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			*errOut = fmt.Errorf("%s lookup panicked: %v", name, r)
			e.metrics.ObserveLookup(name, start, *errOut)
		}
	}()

	err := fn()
	*errOut = err
	e.metrics.ObserveLookup(name, start, err)
}

func topHolders(accts []rpc.LargestAccount, supply float64) []models.Holder {
	n := len(accts)
	if n > constants.TopHolders {
		n = constants.TopHolders
	}

	out := make([]models.Holder, 0, n)
	for _, a := range accts[:n] {
		var amount float64
		if a.UIAmount != nil {
			amount = *a.UIAmount
		}
		h := models.Holder{Address: a.Address, UIAmount: amount}
		if pct, ok := format.Percentage(supply, amount); ok {
			h.Percent = &pct
		}
		out = append(out, h)
	}
	return out
}

// derive fills unit price, liquidity and market cap from whatever inputs are present.
func derive(r *models.EnrichmentReport) {
	if r.NativePrice == nil {
		return
	}

	liq := format.LiquidityValue(r.Pair.QuoteAmount, *r.NativePrice)
	r.LiquidityValue = &liq

	unit, err := format.TokenPrice(r.Pair.BaseAmount, r.Pair.QuoteAmount, *r.NativePrice)
	if err != nil {
		return
	}
	r.UnitPrice = &unit

	if r.Supply != nil {
		mcap := unit * *r.Supply
		r.MarketCap = &mcap
	}
}
