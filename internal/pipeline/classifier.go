package pipeline

import (
	"fmt"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/format"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"

	"github.com/gagliardetto/solana-go"
)

// ExtractLegs reads post-balance records 0 and 1 of a pool creation transaction.
func ExtractLegs(tx *rpc.TransactionResult) ([2]models.RawBalanceLeg, error) {
	var legs [2]models.RawBalanceLeg

	if tx == nil || tx.Meta == nil {
		return legs, fmt.Errorf("%w: transaction or meta missing", ErrMalformedTransactionLayout)
	}
	if tx.Meta.Err != nil {
		return legs, fmt.Errorf("%w: transaction failed: %v", ErrMalformedTransactionLayout, tx.Meta.Err)
	}

	balances := tx.Meta.PostTokenBalances
	if len(balances) < 2 {
		return legs, fmt.Errorf("%w: %d post token balances", ErrMalformedTransactionLayout, len(balances))
	}

	for i := 0; i < 2; i++ {
		b := balances[i]
		legs[i] = models.RawBalanceLeg{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			Amount:       b.UITokenAmount.Amount,
			Decimals:     b.UITokenAmount.Decimals,
			UIAmount:     b.UITokenAmount.UIAmount,
		}
	}

	return legs, nil
}

// Classify makes the wrapped SOL leg the quote and the other leg the base.
func Classify(a, b models.RawBalanceLeg) (*models.ClassifiedPair, error) {
	for _, leg := range []models.RawBalanceLeg{a, b} {
		if leg.UIAmount == nil {
			return nil, fmt.Errorf("%w: mint %s", ErrNullAmount, leg.Mint)
		}
		if _, err := solana.PublicKeyFromBase58(leg.Mint); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMint, leg.Mint)
		}
	}

	aQuote := a.Mint == constants.WrappedSOLMint
	bQuote := b.Mint == constants.WrappedSOLMint
	if aQuote == bQuote {
		return nil, fmt.Errorf("%w: %s / %s", ErrAmbiguousPair, a.Mint, b.Mint)
	}

	base, quote := a, b
	if aQuote {
		base, quote = b, a
	}

	return &models.ClassifiedPair{
		BaseMint:     base.Mint,
		QuoteMint:    quote.Mint,
		BaseDisplay:  format.TokenSupply(*base.UIAmount),
		QuoteDisplay: format.TokenSupply(*quote.UIAmount),
		BaseAmount:   *base.UIAmount,
		QuoteAmount:  *quote.UIAmount,
	}, nil
}
