package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CoinGecko reads spot prices from the /simple/price endpoint
type CoinGecko struct {
	baseURL  string
	coinID   string
	currency string
	http     *http.Client
}

func NewCoinGecko(baseURL, coinID, currency string, timeout time.Duration) *CoinGecko {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGecko{
		baseURL:  baseURL,
		coinID:   coinID,
		currency: currency,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// HTTPError is returned for non-2xx price API responses
type HTTPError struct {
	Source     string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("%s http %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s http %d: %s", e.Source, e.StatusCode, b)
}

// NativePrice returns the fiat spot price of the configured coin
func (c *CoinGecko) NativePrice(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("ids", c.coinID)
	q.Set("vs_currencies", c.currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return 0, &HTTPError{Source: c.Name(), StatusCode: res.StatusCode, Body: body}
	}

	var out map[string]map[string]float64
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode coingecko response: %w", err)
	}

	price, ok := out[c.coinID][c.currency]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("coingecko: no %s price for %s", c.currency, c.coinID)
	}
	return price, nil
}
