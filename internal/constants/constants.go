package constants

import "time"

// Ledger program and mint addresses
const (
	// Raydium AMM v4 authority; every initialize2 pool creation mentions it.
	RaydiumAuthority = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
	WrappedSOLMint   = "So11111111111111111111111111111111111111112"
	USDCMint         = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	// Metaplex token metadata program
	MetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

// PoolInitMarker is the log line substring emitted when a new Raydium pool is initialized.
const PoolInitMarker = "Program log: initialize2:"

// Commitment levels
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Commitments used per lookup
const (
	SubscriptionCommitment = CommitmentProcessed
	TransactionCommitment  = CommitmentConfirmed
	SupplyCommitment       = CommitmentConfirmed
	HoldersCommitment      = CommitmentFinalized
)

// Limits
const (
	TopHolders         = 6
	SignatureBatchSize = 100
	MaxSignaturePages  = 10
	MaxSupportedTxVer  = 0
)

// Price service
const (
	NativeCoinGeckoID = "solana"
	FiatCurrency      = "usd"
	NativeSymbol      = "SOL"
	NativeDecimals    = 9
	USDCDecimals      = 6
)

// Rendering precision
const (
	FiatFractionDigits  = 2
	PriceFractionDigits = 8
	PercentDigits       = 2
)

// Timing
const (
	ReconnectBackoffMin = 1 * time.Second
	ReconnectBackoffMax = 30 * time.Second
	PingInterval        = 30 * time.Second
	DelayBetweenTxFetch = 250 * time.Millisecond
	WriteTimeout        = 10 * time.Second
)

// Redis keys and channels
const (
	RedisKeySeenPrefix      = "listings:seen:"
	PubSubChannelListings   = "listings:new"
	PubSubChannelMintPrefix = "listings:mint:"
)

// Runtime flags
const (
	FlagMuted = "notifier.muted"
)

// Link templates, parameterized by mint or account address
const (
	HolderLinkTemplate    = "https://solscan.io/account/%s"
	BirdeyeLinkTemplate   = "https://birdeye.so/token/%s?chain=solana"
	RaydiumLinkTemplate   = "http://raydium.io/swap/?inputCurrency=sol&outputCurrency=%s&fixed=in"
	DexscreenLinkTemplate = "https://dexscreener.com/solana/%s"
	RugCheckLinkTemplate  = "https://rugcheck.xyz/tokens/%s"
)
