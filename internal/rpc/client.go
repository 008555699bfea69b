package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/sirupsen/logrus"
)

// Client is an HTTP client with retry and timeout support for Solana RPC
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// NewClient creates a new RPC client with retry support
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// Call makes a JSON-RPC call with retry logic.
// A JSON-RPC error object in the response is returned as *RPCError and is not retried.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying RPC call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		resp, err := c.doRequest(ctx, data)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		var envelope response
		if err := json.Unmarshal(resp, &envelope); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if envelope.Error != nil {
			return envelope.Error
		}
		if result == nil || len(envelope.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// GetSignaturesForAddress fetches transaction signatures for a program address
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, opts map[string]interface{}) ([]SignatureInfo, error) {
	params := []interface{}{address, opts}

	var result []SignatureInfo
	if err := c.Call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// GetTransaction fetches a jsonParsed transaction at the given commitment.
// It returns ErrTransactionNotFound when the node has no record of the signature.
func (c *Client) GetTransaction(ctx context.Context, signature, commitment string) (*TransactionResult, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     commitment,
			"maxSupportedTransactionVersion": constants.MaxSupportedTxVer,
		},
	}

	var result *TransactionResult
	if err := c.Call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrTransactionNotFound
	}

	return result, nil
}

// GetTokenSupply returns the total supply of a mint.
func (c *Client) GetTokenSupply(ctx context.Context, mint, commitment string) (*TokenAmount, error) {
	params := []interface{}{mint, map[string]interface{}{"commitment": commitment}}

	var result struct {
		Value *TokenAmount `json:"value"`
	}
	if err := c.Call(ctx, "getTokenSupply", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, fmt.Errorf("getTokenSupply %s: empty value", mint)
	}

	return result.Value, nil
}

// GetTokenLargestAccounts returns the largest token accounts of a mint, largest first.
func (c *Client) GetTokenLargestAccounts(ctx context.Context, mint, commitment string) ([]LargestAccount, error) {
	params := []interface{}{mint, map[string]interface{}{"commitment": commitment}}

	var result struct {
		Value []LargestAccount `json:"value"`
	}
	if err := c.Call(ctx, "getTokenLargestAccounts", params, &result); err != nil {
		return nil, err
	}

	return result.Value, nil
}

// GetAccountInfo fetches raw account data in base64 encoding.
// It returns ErrAccountNotFound when the account does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, address, commitment string) (*AccountInfo, error) {
	params := []interface{}{
		address,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": commitment,
		},
	}

	var result struct {
		Value *AccountInfo `json:"value"`
	}
	if err := c.Call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, ErrAccountNotFound
	}

	return result.Value, nil
}

// IsNotFound reports whether err means the ledger has no such record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrAccountNotFound)
}
