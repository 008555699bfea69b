package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// LogStream implements EventSource over the logsSubscribe websocket method
type LogStream struct {
	url        string
	mentions   []string
	commitment string
	dialer     *websocket.Dialer
	backoffMin time.Duration
	backoffMax time.Duration
	logger     *logrus.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	conn    *websocket.Conn
}

// LogStreamConfig holds configuration for the log stream
type LogStreamConfig struct {
	URL        string
	Mentions   []string
	Commitment string
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     *logrus.Logger
	Metrics    *metrics.Metrics
}

// NewLogStream creates a websocket log subscription
func NewLogStream(cfg LogStreamConfig) *LogStream {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if len(cfg.Mentions) == 0 {
		cfg.Mentions = []string{constants.RaydiumAuthority}
	}
	if cfg.Commitment == "" {
		cfg.Commitment = constants.SubscriptionCommitment
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = constants.ReconnectBackoffMin
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = constants.ReconnectBackoffMax
	}

	return &LogStream{
		url:        cfg.URL,
		mentions:   cfg.Mentions,
		commitment: cfg.Commitment,
		dialer:     websocket.DefaultDialer,
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// wsMessage covers both the subscribe reply and logsNotification frames
type wsMessage struct {
	ID     *int            `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpc.RPCError   `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string      `json:"signature"`
				Err       interface{} `json:"err"`
				Logs      []string    `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Start connects, subscribes and delivers events until ctx is done or Stop is called.
// Dropped connections are re-established with exponential backoff.
func (s *LogStream) Start(ctx context.Context, handler storage.EventHandler) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("log stream already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	s.logger.WithFields(logrus.Fields{
		"mentions":   s.mentions,
		"commitment": s.commitment,
	}).Info("starting log subscription")

	backoff := s.backoffMin
	for {
		connectedAt := time.Now()
		err := s.session(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}

		// A session that stayed up for a while resets the backoff.
		if time.Since(connectedAt) > s.backoffMax {
			backoff = s.backoffMin
		}

		s.metrics.Reconnect()
		s.logger.WithError(err).WithField("backoff", backoff).Warn("log subscription dropped, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.backoffMax {
			backoff = s.backoffMax
		}
	}
}

// Stop ends the subscription and closes the connection
func (s *LogStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// session runs one connection lifetime
func (s *LogStream) session(ctx context.Context, handler storage.EventHandler) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.metrics.StreamError("dial")
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	subscribeMsg := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string]interface{}{"mentions": s.mentions},
			map[string]interface{}{"commitment": s.commitment},
		},
	}
	conn.SetWriteDeadline(time.Now().Add(constants.WriteTimeout))
	if err := conn.WriteJSON(subscribeMsg); err != nil {
		s.metrics.StreamError("subscribe")
		return fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(ctx, conn, done)

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.metrics.StreamError("read")
			return fmt.Errorf("read: %w", err)
		}

		switch {
		case msg.Error != nil:
			s.metrics.StreamError("rpc")
			return fmt.Errorf("subscription rejected: %w", msg.Error)

		case msg.ID != nil:
			var subID uint64
			_ = json.Unmarshal(msg.Result, &subID)
			s.logger.WithField("subscription", subID).Info("✅ log subscription active")

		case msg.Method == "logsNotification" && msg.Params != nil:
			v := msg.Params.Result.Value
			s.metrics.EventReceived()
			handler(&models.LedgerLogEvent{
				Signature: v.Signature,
				Logs:      v.Logs,
				Err:       v.Err,
				Slot:      msg.Params.Result.Context.Slot,
			})
		}
	}
}

// keepalive pings the server and closes the connection once ctx is done so ReadJSON unblocks
func (s *LogStream) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(constants.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(constants.WriteTimeout)); err != nil {
				s.logger.WithError(err).Debug("ping failed")
			}
		}
	}
}
