package models

import "time"

// LedgerLogEvent is one notification from the log subscription.
type LedgerLogEvent struct {
	Signature string
	Logs      []string
	Err       interface{}
	Slot      uint64
}

// RawBalanceLeg is one post-balance record of the pool creation transaction.
type RawBalanceLeg struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string
	Decimals     int

	// UIAmount is nil when the ledger reports null (failed or partial execution).
	UIAmount *float64
}

// ClassifiedPair splits the two legs into the new (base) token and the numeraire (quote).
type ClassifiedPair struct {
	Signature string `json:"signature"`

	BaseMint  string `json:"base_mint"`
	QuoteMint string `json:"quote_mint"`

	// Compacted for display only, never parsed back into numbers.
	BaseDisplay  string `json:"base_display"`
	QuoteDisplay string `json:"quote_display"`

	BaseAmount  float64 `json:"base_amount"`
	QuoteAmount float64 `json:"quote_amount"`
}

// Holder is one of the largest token accounts of the base mint.
type Holder struct {
	Address  string   `json:"address"`
	UIAmount float64  `json:"ui_amount"`
	Percent  *float64 `json:"percent,omitempty"` // nil when supply is unknown
}

// TokenMetadata is the descriptive metadata of a mint.
type TokenMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	URI         string `json:"uri,omitempty"`

	MintAuthorityRevoked   bool `json:"mint_authority_revoked"`
	FreezeAuthorityRevoked bool `json:"freeze_authority_revoked"`
	IsMutable              bool `json:"is_mutable"`
}

// EnrichmentReport aggregates every lookup for one pair. Pointer fields are
// absent when the lookup (or one of its inputs) failed.
type EnrichmentReport struct {
	Pair ClassifiedPair `json:"pair"`

	Supply      *float64       `json:"supply,omitempty"`
	Holders     []Holder       `json:"holders,omitempty"`
	NativePrice *float64       `json:"native_price,omitempty"`
	Metadata    *TokenMetadata `json:"metadata,omitempty"`

	UnitPrice      *float64 `json:"unit_price,omitempty"`
	LiquidityValue *float64 `json:"liquidity_value,omitempty"`
	MarketCap      *float64 `json:"market_cap,omitempty"`

	Errors      map[string]string `json:"errors,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// InlineButton is a single call-to-action link under the message.
type InlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// NotificationMessage is the final rendered message.
type NotificationMessage struct {
	Text   string       `json:"text"`
	Button InlineButton `json:"button"`
}
