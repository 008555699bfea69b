// Package pricing resolves the fiat spot price of the quote currency.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/jupiter"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Source is one upstream price provider
type Source interface {
	Name() string
	NativePrice(ctx context.Context) (float64, error)
}

// JupiterSource prices the native coin through a SOL to USDC quote
type JupiterSource struct {
	client *jupiter.Client
}

func NewJupiterSource(client *jupiter.Client) *JupiterSource {
	return &JupiterSource{client: client}
}

func (j *JupiterSource) Name() string { return "jupiter" }

func (j *JupiterSource) NativePrice(ctx context.Context) (float64, error) {
	return j.client.UnitPrice(ctx,
		constants.WrappedSOLMint, constants.USDCMint,
		constants.NativeDecimals, constants.USDCDecimals)
}

type guardedSource struct {
	src     Source
	breaker *gobreaker.CircuitBreaker
}

// Service tries each source in order behind its own circuit breaker
type Service struct {
	sources []guardedSource
	cache   *expirable.LRU[string, float64]
	logger  *logrus.Logger
}

type ServiceConfig struct {
	Sources  []Source
	CacheTTL time.Duration
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	s := &Service{logger: cfg.Logger}
	for _, src := range cfg.Sources {
		s.sources = append(s.sources, guardedSource{
			src:     src,
			breaker: newBreaker(src.Name(), cfg.Logger, cfg.Metrics),
		})
	}
	if cfg.CacheTTL > 0 {
		s.cache = expirable.NewLRU[string, float64](1, nil, cfg.CacheTTL)
	}
	return s
}

func newBreaker(name string, logger *logrus.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.WithFields(logrus.Fields{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("price breaker state changed")
		m.SetBreakerState(name, float64(to))
	}
	return gobreaker.NewCircuitBreaker(st)
}

// NativePrice returns the fiat price of the native coin from the first healthy source
func (s *Service) NativePrice(ctx context.Context) (float64, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(constants.NativeCoinGeckoID); ok {
			return p, nil
		}
	}
	if len(s.sources) == 0 {
		return 0, errors.New("no price sources configured")
	}

	var errs []string
	for _, g := range s.sources {
		v, err := g.breaker.Execute(func() (interface{}, error) {
			return g.src.NativePrice(ctx)
		})
		if err != nil {
			s.logger.WithError(err).WithField("source", g.src.Name()).Debug("price source failed")
			errs = append(errs, fmt.Sprintf("%s: %v", g.src.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		price := v.(float64)
		if s.cache != nil {
			s.cache.Add(constants.NativeCoinGeckoID, price)
		}
		return price, nil
	}

	return 0, fmt.Errorf("all price sources failed: %s", strings.Join(errs, "; "))
}
