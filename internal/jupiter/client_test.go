package jupiter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "1000000000", r.URL.Query().Get("amount"))
		assert.ElementsMatch(t, []string{"inputMint", "outputMint", "amount"}, keys(r.URL.Query()))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		_, _ = io.WriteString(w, `{"inputMint":"SOL","outputMint":"USDC","inAmount":"1000000000","outAmount":"151230000"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", 0)
	price, err := c.UnitPrice(context.Background(), "SOL", "USDC", 9, 6)
	require.NoError(t, err)
	assert.InDelta(t, 151.23, price, 1e-9)
}

func TestQuote_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad mint"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	_, err := c.Quote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b", Amount: "1"})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "bad mint")
}

func TestQuote_Validation(t *testing.T) {
	c := NewClient("", "", 0)
	assert.Equal(t, "https://api.jup.ag/swap/v1", c.BaseURL)

	_, err := c.Quote(context.Background(), QuoteRequest{OutputMint: "b", Amount: "1"})
	assert.Error(t, err)
	_, err = c.Quote(context.Background(), QuoteRequest{InputMint: "a", Amount: "1"})
	assert.Error(t, err)
	_, err = c.Quote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b"})
	assert.Error(t, err)
}

func keys(q url.Values) []string {
	out := make([]string, 0, len(q))
	for k := range q {
		out = append(out, k)
	}
	return out
}
