package pricing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/jupiter"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name  string
	price float64
	err   error
	calls int32
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) NativePrice(context.Context) (float64, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.price, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestCoinGecko_NativePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = io.WriteString(w, `{"solana":{"usd":150.25}}`)
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, constants.NativeCoinGeckoID, constants.FiatCurrency, time.Second)
	price, err := cg.NativePrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.25, price)
}

func TestCoinGecko_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") == "missing" {
			_, _ = io.WriteString(w, `{}`)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewCoinGecko(srv.URL, "solana", "usd", time.Second).NativePrice(context.Background())
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)

	_, err = NewCoinGecko(srv.URL, "missing", "usd", time.Second).NativePrice(context.Background())
	assert.Error(t, err)
}

func TestService_FallsBackToSecondSource(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("down")}
	fallback := &stubSource{name: "fallback", price: 149.5}

	svc := NewService(ServiceConfig{Sources: []Source{primary, fallback}, Logger: quietLogger()})

	price, err := svc.NativePrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 149.5, price)
	assert.EqualValues(t, 1, primary.calls)
}

func TestService_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("down")}
	fallback := &stubSource{name: "fallback", price: 10}

	svc := NewService(ServiceConfig{Sources: []Source{primary, fallback}, Logger: quietLogger()})

	for i := 0; i < 5; i++ {
		_, err := svc.NativePrice(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&primary.calls))
	assert.EqualValues(t, 5, atomic.LoadInt32(&fallback.calls))
}

func TestService_AllSourcesFail(t *testing.T) {
	svc := NewService(ServiceConfig{
		Sources: []Source{&stubSource{name: "a", err: errors.New("x")}, &stubSource{name: "b", err: errors.New("y")}},
		Logger:  quietLogger(),
	})

	_, err := svc.NativePrice(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: x")
	assert.Contains(t, err.Error(), "b: y")

	_, err = NewService(ServiceConfig{Logger: quietLogger()}).NativePrice(context.Background())
	assert.Error(t, err)
}

func TestService_CachesPrice(t *testing.T) {
	src := &stubSource{name: "a", price: 100}
	svc := NewService(ServiceConfig{Sources: []Source{src}, CacheTTL: time.Minute, Logger: quietLogger()})

	for i := 0; i < 3; i++ {
		price, err := svc.NativePrice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 100.0, price)
	}
	assert.EqualValues(t, 1, src.calls)
}

func TestJupiterSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, constants.WrappedSOLMint, r.URL.Query().Get("inputMint"))
		assert.Equal(t, constants.USDCMint, r.URL.Query().Get("outputMint"))
		_, _ = io.WriteString(w, `{"outAmount":"150000000"}`)
	}))
	defer srv.Close()

	src := NewJupiterSource(jupiter.NewClient(srv.URL, "", time.Second))
	price, err := src.NativePrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 150.0, price, 1e-9)
}
