// Package metadata resolves token descriptive metadata and authority flags for a mint.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/rpc"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

const maxJSONBody = 1 << 20

// AccountFetcher is the subset of the RPC client the service needs
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, address, commitment string) (*rpc.AccountInfo, error)
}

// Service looks up Metaplex metadata, the mint account and the off-chain JSON
type Service struct {
	accounts   AccountFetcher
	httpClient *http.Client
	programID  solana.PublicKey
	logger     *logrus.Logger
}

type ServiceConfig struct {
	Accounts AccountFetcher
	Timeout  time.Duration
	Logger   *logrus.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Service{
		accounts:   cfg.Accounts,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		programID:  solana.MustPublicKeyFromBase58(constants.MetadataProgramID),
		logger:     cfg.Logger,
	}
}

// MetadataAddress derives the metadata PDA for a mint
func (s *Service) MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			s.programID.Bytes(),
			mint.Bytes(),
		},
		s.programID,
	)
	return addr, err
}

// FindByMint returns the token's name, symbol, description and risk flags.
// A missing or unreachable JSON document leaves the description empty.
func (s *Service) FindByMint(ctx context.Context, mintAddress string) (*models.TokenMetadata, error) {
	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mintAddress, err)
	}

	pda, err := s.MetadataAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive metadata address: %w", err)
	}

	mdInfo, err := s.accounts.GetAccountInfo(ctx, pda.String(), constants.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata account: %w", err)
	}
	mdData, err := mdInfo.Bytes()
	if err != nil {
		return nil, fmt.Errorf("metadata account data: %w", err)
	}
	onChain, err := DecodeMetadata(mdData)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	mintInfo, err := s.accounts.GetAccountInfo(ctx, mint.String(), constants.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("fetch mint account: %w", err)
	}
	mintData, err := mintInfo.Bytes()
	if err != nil {
		return nil, fmt.Errorf("mint account data: %w", err)
	}
	mintAcct, err := DecodeMint(mintData)
	if err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}

	out := &models.TokenMetadata{
		Name:                   onChain.Name,
		Symbol:                 onChain.Symbol,
		URI:                    onChain.URI,
		MintAuthorityRevoked:   mintAcct.MintAuthority == nil,
		FreezeAuthorityRevoked: mintAcct.FreezeAuthority == nil,
		IsMutable:              onChain.IsMutable,
	}

	if onChain.URI != "" {
		desc, err := s.fetchDescription(ctx, onChain.URI)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"mint": mintAddress,
				"uri":  onChain.URI,
			}).Debug("json metadata unavailable")
		}
		out.Description = desc
	}

	return out, nil
}

type offChainJSON struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func (s *Service) fetchDescription(ctx context.Context, uri string) (string, error) {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return "", fmt.Errorf("unsupported uri scheme")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var doc offChainJSON
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode json metadata: %w", err)
	}
	return doc.Description, nil
}
