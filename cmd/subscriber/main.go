// Example consumer of the reports the notifier publishes when PUBLISH_REPORTS=true.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/cache"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/format"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("redis", "localhost:6379", "redis address")
	mint := flag.String("mint", "", "only follow one mint")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := redis.NewClient(&redis.Options{Addr: *addr})
	pubsub := cache.NewPubSubManager(client, logger)
	defer pubsub.Close()

	channel := constants.PubSubChannelListings
	if *mint != "" {
		channel = constants.PubSubChannelMintPrefix + *mint
	}

	logger.WithField("channel", channel).Info("👂 Starting listing subscriber...")

	err := pubsub.Subscribe(ctx, channel, func(r *models.EnrichmentReport) {
		fields := logrus.Fields{
			"mint":  format.TruncateAddress(r.Pair.BaseMint),
			"quote": r.Pair.QuoteDisplay,
		}
		if r.Metadata != nil {
			fields["symbol"] = r.Metadata.Symbol
		}
		if r.LiquidityValue != nil {
			fields["liquidity"] = format.Fiat(*r.LiquidityValue)
		}
		if r.MarketCap != nil {
			fields["mcap"] = format.Fiat(*r.MarketCap)
		}
		logger.WithFields(fields).Info("📨 New listing")
	})
	if err != nil {
		logger.WithError(err).Fatal("subscription failed")
	}

	logger.Info("🛑 Subscriber stopped")
}
