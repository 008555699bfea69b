package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newTestClient(t *testing.T, handler func(req rpcRequest) string) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var req rpcRequest
		assert.NoError(t, json.Unmarshal(body, &req))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, handler(req))
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	}), &calls
}

func TestGetTransaction_ParsesPostBalances(t *testing.T) {
	client, _ := newTestClient(t, func(req rpcRequest) string {
		assert.Equal(t, "getTransaction", req.Method)
		var opts map[string]interface{}
		if assert.Len(t, req.Params, 2) {
			assert.NoError(t, json.Unmarshal(req.Params[1], &opts))
		}
		assert.Equal(t, "jsonParsed", opts["encoding"])
		assert.Equal(t, "confirmed", opts["commitment"])
		assert.EqualValues(t, 0, opts["maxSupportedTransactionVersion"])

		return `{"jsonrpc":"2.0","id":1,"result":{"slot":42,"meta":{"err":null,"postTokenBalances":[
			{"accountIndex":4,"mint":"MintA","owner":"OwnerA","uiTokenAmount":{"amount":"2000000000000","decimals":6,"uiAmount":2000000,"uiAmountString":"2000000"}},
			{"accountIndex":5,"mint":"So11111111111111111111111111111111111111112","owner":"OwnerB","uiTokenAmount":{"amount":"10000000000","decimals":9,"uiAmount":null,"uiAmountString":"10"}}
		]}}}`
	})

	tx, err := client.GetTransaction(context.Background(), "sig", "confirmed")
	require.NoError(t, err)
	require.NotNil(t, tx.Meta)
	require.Len(t, tx.Meta.PostTokenBalances, 2)

	first := tx.Meta.PostTokenBalances[0]
	assert.Equal(t, "MintA", first.Mint)
	assert.Equal(t, "OwnerA", first.Owner)
	require.NotNil(t, first.UITokenAmount.UIAmount)
	assert.Equal(t, 2_000_000.0, *first.UITokenAmount.UIAmount)

	assert.Nil(t, tx.Meta.PostTokenBalances[1].UITokenAmount.UIAmount)
}

func TestGetTransaction_NullResult(t *testing.T) {
	client, _ := newTestClient(t, func(rpcRequest) string {
		return `{"jsonrpc":"2.0","id":1,"result":null}`
	})

	tx, err := client.GetTransaction(context.Background(), "sig", "confirmed")
	assert.Nil(t, tx)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.True(t, IsNotFound(err))
}

func TestCall_RPCErrorIsNotRetried(t *testing.T) {
	client, calls := newTestClient(t, func(rpcRequest) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param"}}`
	})

	_, err := client.GetTokenSupply(context.Background(), "mint", "confirmed")
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestCall_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"value":{"amount":"1000","decimals":0,"uiAmount":1000,"uiAmountString":"1000"}}}`)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 3, RetryBackoff: time.Millisecond})

	supply, err := client.GetTokenSupply(context.Background(), "mint", "confirmed")
	require.NoError(t, err)
	require.NotNil(t, supply.UIAmount)
	assert.Equal(t, 1000.0, *supply.UIAmount)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGetTokenLargestAccounts(t *testing.T) {
	client, _ := newTestClient(t, func(req rpcRequest) string {
		assert.Equal(t, "getTokenLargestAccounts", req.Method)
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[
			{"address":"H1","amount":"500","decimals":0,"uiAmount":500,"uiAmountString":"500"},
			{"address":"H2","amount":"250","decimals":0,"uiAmount":250,"uiAmountString":"250"}
		]}}`
	})

	accounts, err := client.GetTokenLargestAccounts(context.Background(), "mint", "finalized")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "H1", accounts[0].Address)
	assert.Equal(t, 250.0, *accounts[1].UIAmount)
}

func TestGetAccountInfo(t *testing.T) {
	client, _ := newTestClient(t, func(req rpcRequest) string {
		if string(req.Params[0]) == `"missing"` {
			return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":null}}`
		}
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"lamports":1,"owner":"prog","executable":false,"data":["AQID","base64"]}}}`
	})

	info, err := client.GetAccountInfo(context.Background(), "acct", "confirmed")
	require.NoError(t, err)
	data, err := info.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = client.GetAccountInfo(context.Background(), "missing", "confirmed")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGetSignaturesForAddress(t *testing.T) {
	client, _ := newTestClient(t, func(req rpcRequest) string {
		assert.Equal(t, "getSignaturesForAddress", req.Method)
		return `{"jsonrpc":"2.0","id":1,"result":[{"signature":"s2","slot":11,"err":null},{"signature":"s1","slot":10,"err":{"InstructionError":[0,"Custom"]}}]}`
	})

	sigs, err := client.GetSignaturesForAddress(context.Background(), "addr", map[string]interface{}{"limit": 10})
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, "s2", sigs[0].Signature)
	assert.NotNil(t, sigs[1].Err)
}
