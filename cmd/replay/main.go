package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/config"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/jupiter"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metadata"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/pipeline"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/pricing"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/telegram"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "../..", ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Debugf("no .env file found at %s, using system environment variables", envPath)
	}
}

func main() {
	sig := flag.String("sig", "", "transaction signature of a pool creation")
	dryRun := flag.Bool("dry-run", false, "print the rendered message instead of sending it")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	// stdout carries the preview, keep logs on stderr
	logger.SetOutput(os.Stderr)

	if *sig == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -sig <signature> [-dry-run]")
		os.Exit(2)
	}

	loadEnv(logger)

	cfg := config.Load()
	validate := cfg.Validate
	if *dryRun {
		validate = cfg.ValidateLedger
	}
	if err := validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	enricher := pipeline.NewEnricher(pipeline.EnricherConfig{
		Ledger: rpcClient,
		Metadata: metadata.NewService(metadata.ServiceConfig{
			Accounts: rpcClient,
			Timeout:  cfg.HTTPTimeout,
			Logger:   logger,
		}),
		Prices: pricing.NewService(pricing.ServiceConfig{
			Sources: []pricing.Source{
				pricing.NewCoinGecko(cfg.CoinGeckoURL, constants.NativeCoinGeckoID, constants.FiatCurrency, cfg.HTTPTimeout),
				pricing.NewJupiterSource(jupiter.NewClient(cfg.JupiterURL, cfg.JupiterAPIKey, cfg.HTTPTimeout)),
			},
			CacheTTL: cfg.PriceCacheTTL,
			Logger:   logger,
		}),
		Logger: logger,
	})

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Ledger:   rpcClient,
		Enricher: enricher,
		Dispatcher: pipeline.NewDispatcher(pipeline.DispatcherConfig{
			Sender: telegram.NewClient(telegram.Config{
				BotToken: cfg.BotToken,
				Timeout:  cfg.HTTPTimeout,
				Logger:   logger,
			}),
			ChatID: cfg.ChannelID,
			Logger: logger,
		}),
		CTA:    models.InlineButton{Text: cfg.CTALabel, URL: cfg.CTAURL},
		Logger: logger,
	})

	if !*dryRun {
		if err := runner.Run(ctx, *sig); err != nil {
			logger.WithError(err).Fatal("replay failed")
		}
		logger.Info("✅ Replay dispatched")
		return
	}

	report, msg, err := runner.Build(ctx, *sig)
	if err != nil {
		logger.WithError(err).Fatal("replay failed")
	}

	fmt.Println(msg.Text)
	fmt.Println()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.WithError(err).Fatal("encode report")
	}
}
