package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/cache"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/config"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/flags"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/jupiter"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metadata"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/pipeline"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/pricing"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/server"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/storage"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/stream"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/telegram"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// drainTimeout bounds how long in-flight runs may take after shutdown starts
const drainTimeout = 30 * time.Second

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	// Redis backs the optional flags, dedup and fan-out features
	var rclient *redis.Client
	if cfg.RedisAddr != "" {
		rclient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rclient.Close()
	}

	var flagStore *flags.Store
	if rclient != nil {
		fs, err := flags.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create flags store")
		}
		flagStore = fs
	}

	seen, err := newSeenStore(cfg, rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create dedup store")
	}

	var publisher storage.ReportPublisher
	if cfg.PublishReports {
		publisher = cache.NewPubSubManager(rclient, logger)
	}

	prices := pricing.NewService(pricing.ServiceConfig{
		Sources: []pricing.Source{
			pricing.NewCoinGecko(cfg.CoinGeckoURL, constants.NativeCoinGeckoID, constants.FiatCurrency, cfg.HTTPTimeout),
			pricing.NewJupiterSource(jupiter.NewClient(cfg.JupiterURL, cfg.JupiterAPIKey, cfg.HTTPTimeout)),
		},
		CacheTTL: cfg.PriceCacheTTL,
		Logger:   logger,
		Metrics:  m,
	})

	enricher := pipeline.NewEnricher(pipeline.EnricherConfig{
		Ledger: rpcClient,
		Metadata: metadata.NewService(metadata.ServiceConfig{
			Accounts: rpcClient,
			Timeout:  cfg.HTTPTimeout,
			Logger:   logger,
		}),
		Prices:  prices,
		Logger:  logger,
		Metrics: m,
	})

	dispatcherCfg := pipeline.DispatcherConfig{
		Sender: telegram.NewClient(telegram.Config{
			BotToken: cfg.BotToken,
			Timeout:  cfg.HTTPTimeout,
			Logger:   logger,
		}),
		ChatID:  cfg.ChannelID,
		Logger:  logger,
		Metrics: m,
	}
	if flagStore != nil {
		dispatcherCfg.Flags = flagStore
	}

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Ledger:     rpcClient,
		Enricher:   enricher,
		Dispatcher: pipeline.NewDispatcher(dispatcherCfg),
		Publisher:  publisher,
		CTA:        models.InlineButton{Text: cfg.CTALabel, URL: cfg.CTAURL},
		Logger:     logger,
		Metrics:    m,
	})

	watcherCfg := pipeline.WatcherConfig{
		Run:     runner.Run,
		Logger:  logger,
		Metrics: m,
	}
	if seen != nil {
		watcherCfg.Seen = seen
	}
	watcher := pipeline.NewWatcher(watcherCfg)

	source := newEventSource(cfg, rpcClient, logger, m)

	handlers := &server.Handlers{
		Prices:  prices,
		Preview: runner,
		Logger:  logger,
	}
	if flagStore != nil {
		handlers.Flags = flagStore
	}
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: handlers,
		Metrics:  m,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.WithError(err).Error("ops server failed")
		}
	}()

	// Runs outlive the signal so a listing detected just before shutdown still goes out
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	logger.WithFields(logrus.Fields{
		"provider": cfg.StreamProvider,
		"dedup":    cfg.DedupMode,
		"channel":  cfg.ChannelID,
	}).Info("🚀 Starting Raydium listing notifier")

	streamErr := make(chan error, 1)
	go func() {
		streamErr <- source.Start(ctx, watcher.Handler(runCtx))
	}()

	sourceDone := false
	select {
	case <-ctx.Done():
		logger.Info("🛑 Shutting down notifier...")
	case err := <-streamErr:
		sourceDone = true
		if err != nil {
			logger.WithError(err).Error("event source stopped")
		}
	}

	if err := stopSource(source, streamErr, sourceDone); err != nil {
		logger.WithError(err).Warn("error stopping event source")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Warn("error shutting down ops server")
	}

	drainRuns(watcher, drainTimeout, cancelRuns, logger)

	if seen != nil {
		_ = seen.Close()
	}
	logger.Info("✅ Notifier stopped")
}

// stopSource stops the event source and, unless it already returned, waits for
// Start to return so no event can reach the watcher once draining begins.
func stopSource(source storage.EventSource, streamErr <-chan error, done bool) error {
	err := source.Stop()
	if !done {
		<-streamErr
	}
	return err
}

// drainRuns waits for in-flight runs, cancelling them after timeout.
func drainRuns(w interface{ Wait() }, timeout time.Duration, cancelRuns context.CancelFunc, logger *logrus.Logger) {
	drained := make(chan struct{})
	go func() {
		w.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(timeout):
		logger.Warn("in-flight runs did not finish in time, cancelling")
		cancelRuns()
		<-drained
	}
}

func newSeenStore(cfg *config.Config, rclient *redis.Client) (storage.SeenStore, error) {
	switch cfg.DedupMode {
	case config.DedupMemory:
		s, err := cache.NewMemorySeenStore(cfg.DedupSize)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DedupRedis:
		if rclient == nil {
			return nil, errors.New("redis dedup requires REDIS_ADDR")
		}
		s, err := cache.NewRedisSeenStore(rclient, cfg.DedupTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}

func newEventSource(cfg *config.Config, client *rpc.Client, logger *logrus.Logger, m *metrics.Metrics) storage.EventSource {
	if cfg.StreamProvider == config.StreamRPC {
		logger.Info("📡 Using RPC polling")
		return stream.NewRPCPoller(stream.RPCPollerConfig{
			RPCClient:    client,
			Address:      constants.RaydiumAuthority,
			PollInterval: cfg.PollInterval,
			FetchDelay:   constants.DelayBetweenTxFetch,
			Logger:       logger,
			Metrics:      m,
		})
	}

	logger.Info("📡 Using websocket log subscription")
	return stream.NewLogStream(stream.LogStreamConfig{
		URL:      cfg.WSUrl,
		Mentions: []string{constants.RaydiumAuthority},
		Logger:   logger,
		Metrics:  m,
	})
}
