package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// PublishReport publishes a listing report to the global and the per-mint channel
func (p *PubSubManager) PublishReport(ctx context.Context, report *models.EnrichmentReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	channels := []string{
		constants.PubSubChannelListings,
		constants.PubSubChannelMintPrefix + report.Pair.BaseMint,
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

// Subscribe delivers reports from a channel until ctx is done
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler func(*models.EnrichmentReport)) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("📡 subscribed to channel")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var report models.EnrichmentReport
			if err := json.Unmarshal([]byte(msg.Payload), &report); err != nil {
				p.logger.WithError(err).Warn("error unmarshaling report")
				continue
			}
			handler(&report)
		}
	}
}

func (p *PubSubManager) Close() error {
	return p.client.Close()
}
