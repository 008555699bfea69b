// Package telegram is a minimal Bot API client for posting channel messages.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	ParseModeHTML  = "HTML"

	// Bot API limit for posts into one group or channel
	messagesPerMinute = 20
)

var ErrNotConfigured = errors.New("telegram bot token or chat id missing")

// Config holds Telegram client configuration
type Config struct {
	BotToken string
	BaseURL  string
	Timeout  time.Duration
	// PerMinute caps outgoing messages; zero uses the Bot API group limit
	PerMinute int
	Logger    *logrus.Logger
}

// Client posts messages through the Bot API sendMessage method
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = messagesPerMinute
	}

	return &Client{
		token:      cfg.BotToken,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.PerMinute),
		logger:     cfg.Logger,
	}
}

type inlineKeyboardButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

// sendMessageRequest is the sendMessage payload
type sendMessageRequest struct {
	ChatID                string       `json:"chat_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *replyMarkup `json:"reply_markup,omitempty"`
}

// Response represents the Telegram API response
type Response struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// SentMessage is the subset of the Message object we keep
type SentMessage struct {
	MessageID int   `json:"message_id"`
	Date      int64 `json:"date"`
}

// APIError is a Bot API error reply
type APIError struct {
	StatusCode  int
	ErrorCode   int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram error %d: %s (retry after %s)", e.ErrorCode, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram error %d: %s", e.ErrorCode, e.Description)
}

// SendMessage posts an HTML message with an optional single inline link button.
// Failures are returned once; the caller decides whether to retry.
func (c *Client) SendMessage(ctx context.Context, chatID string, msg models.NotificationMessage) (*SentMessage, error) {
	if c.token == "" || chatID == "" {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("telegram rate limiter: %w", err)
	}

	payload := sendMessageRequest{
		ChatID:                chatID,
		Text:                  msg.Text,
		ParseMode:             ParseModeHTML,
		DisableWebPagePreview: true,
	}
	if msg.Button.URL != "" {
		payload.ReplyMarkup = &replyMarkup{
			InlineKeyboard: [][]inlineKeyboardButton{{{Text: msg.Button.Text, URL: msg.Button.URL}}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of logs.
		return nil, fmt.Errorf("telegram request failed: %w", redact(err, c.token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(raw, &tgResp); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, ErrorCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
	}
	if !tgResp.OK {
		apiErr := &APIError{StatusCode: resp.StatusCode, ErrorCode: tgResp.ErrorCode, Description: tgResp.Description}
		if tgResp.Parameters != nil {
			apiErr.RetryAfter = time.Duration(tgResp.Parameters.RetryAfter) * time.Second
		}
		return nil, apiErr
	}

	var sent SentMessage
	if len(tgResp.Result) > 0 {
		_ = json.Unmarshal(tgResp.Result, &sent)
	}

	c.logger.WithFields(logrus.Fields{
		"chat_id":    chatID,
		"message_id": sent.MessageID,
	}).Debug("telegram message sent")

	return &sent, nil
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
