package pipeline

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/telegram"

	"github.com/sirupsen/logrus"
)

// MessageSender is the chat transport
type MessageSender interface {
	SendMessage(ctx context.Context, chatID string, msg models.NotificationMessage) (*telegram.SentMessage, error)
}

// MuteSwitch tells whether announcements are suppressed
type MuteSwitch interface {
	Muted(ctx context.Context) (bool, error)
}

// Dispatcher sends rendered messages to the configured channel once, without retry
type Dispatcher struct {
	sender  MessageSender
	chatID  string
	flags   MuteSwitch
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

type DispatcherConfig struct {
	Sender  MessageSender
	ChatID  string
	Flags   MuteSwitch // optional
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Dispatcher{
		sender:  cfg.Sender,
		chatID:  cfg.ChatID,
		flags:   cfg.Flags,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Dispatch posts msg. Errors are logged here and returned for the caller's bookkeeping only.
func (d *Dispatcher) Dispatch(ctx context.Context, msg models.NotificationMessage) error {
	if d.muted(ctx) {
		d.metrics.Dispatch(metrics.ResultSkipped)
		d.logger.Info("dispatch muted by flag")
		return nil
	}

	sent, err := d.sender.SendMessage(ctx, d.chatID, msg)
	if err != nil {
		d.metrics.Dispatch(metrics.ResultError)
		d.logger.WithError(err).WithField("chat_id", d.chatID).Error("failed to dispatch notification")
		return fmt.Errorf("dispatch: %w", err)
	}

	d.metrics.Dispatch(metrics.ResultOK)
	d.logger.WithFields(logrus.Fields{
		"chat_id":    d.chatID,
		"message_id": sent.MessageID,
	}).Info("📣 notification sent")
	return nil
}

func (d *Dispatcher) muted(ctx context.Context) bool {
	if d.flags == nil {
		return false
	}
	on, err := d.flags.Muted(ctx)
	if err != nil {
		d.logger.WithError(err).Debug("mute flag unavailable, dispatching")
		return false
	}
	return on
}
