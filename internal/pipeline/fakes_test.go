package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/telegram"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

var (
	testMint      = solana.PublicKeyFromBytes(bytes.Repeat([]byte{9}, 32)).String()
	testSignature = base58.Encode(bytes.Repeat([]byte{7}, 64))
)

func f64(v float64) *float64 { return &v }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func balance(idx int, mint string, amount *float64) rpc.TokenBalance {
	return rpc.TokenBalance{
		AccountIndex:  idx,
		Mint:          mint,
		Owner:         constants.RaydiumAuthority,
		UITokenAmount: rpc.TokenAmount{Amount: "1", Decimals: 6, UIAmount: amount},
	}
}

func poolTx(base, quote float64) *rpc.TransactionResult {
	return &rpc.TransactionResult{Meta: &rpc.TransactionMeta{
		PostTokenBalances: []rpc.TokenBalance{
			balance(5, testMint, f64(base)),
			balance(6, constants.WrappedSOLMint, f64(quote)),
		},
	}}
}

type fakeLedger struct {
	tx       *rpc.TransactionResult
	txErr    error
	supply   *float64
	supplyEr error
	holders  []rpc.LargestAccount
	holdErr  error

	txCalls, supplyCalls, holderCalls int32
}

func (f *fakeLedger) GetTransaction(context.Context, string, string) (*rpc.TransactionResult, error) {
	atomic.AddInt32(&f.txCalls, 1)
	if f.txErr != nil {
		return nil, f.txErr
	}
	if f.tx == nil {
		return nil, rpc.ErrTransactionNotFound
	}
	return f.tx, nil
}

func (f *fakeLedger) GetTokenSupply(context.Context, string, string) (*rpc.TokenAmount, error) {
	atomic.AddInt32(&f.supplyCalls, 1)
	if f.supplyEr != nil {
		return nil, f.supplyEr
	}
	return &rpc.TokenAmount{UIAmount: f.supply}, nil
}

func (f *fakeLedger) GetTokenLargestAccounts(context.Context, string, string) ([]rpc.LargestAccount, error) {
	atomic.AddInt32(&f.holderCalls, 1)
	return f.holders, f.holdErr
}

type fakeMetadata struct {
	md    *models.TokenMetadata
	err   error
	calls int32
}

func (f *fakeMetadata) FindByMint(context.Context, string) (*models.TokenMetadata, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.md, f.err
}

type fakePrice struct {
	price float64
	err   error
	calls int32
}

func (f *fakePrice) NativePrice(context.Context) (float64, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.price, f.err
}

type fakeSender struct {
	mu   sync.Mutex
	sent []models.NotificationMessage
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, _ string, msg models.NotificationMessage) (*telegram.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, msg)
	return &telegram.SentMessage{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) messages() []models.NotificationMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.NotificationMessage(nil), f.sent...)
}

type fakeFlags struct {
	on  bool
	err error
}

func (f fakeFlags) Muted(context.Context) (bool, error) { return f.on, f.err }

var errBoom = errors.New("boom")

func holderAccounts(n int) []rpc.LargestAccount {
	out := make([]rpc.LargestAccount, n)
	for i := range out {
		out[i] = rpc.LargestAccount{
			Address:  base58.Encode(bytes.Repeat([]byte{byte(i + 1)}, 32)),
			UIAmount: f64(float64(100_000 * (n - i))),
		}
	}
	return out
}

func fullMetadata() *models.TokenMetadata {
	return &models.TokenMetadata{
		Name:                   "Dog Coin",
		Symbol:                 "DOG",
		Description:            "much wow",
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: false,
		IsMutable:              true,
	}
}
