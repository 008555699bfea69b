package metadata

import (
	"encoding/binary"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	maxStringLen = 1 << 12
	creatorSize  = 32 + 1 + 1
	// MintAccountSize is the SPL token mint account length
	MintAccountSize = 82
)

// OnChainMetadata is the prefix of a Metaplex metadata account that the notifier reads
type OnChainMetadata struct {
	Key                  uint8
	UpdateAuthority      solana.PublicKey
	Mint                 solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
}

type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

// MintAccount is the decoded SPL token mint
type MintAccount struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

// DecodeMetadata parses the borsh-encoded metadata account
func DecodeMetadata(data []byte) (*OnChainMetadata, error) {
	dec := bin.NewBorshDecoder(data)
	var (
		md  OnChainMetadata
		err error
	)

	if md.Key, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	if md.UpdateAuthority, err = readPublicKey(dec); err != nil {
		return nil, fmt.Errorf("read update authority: %w", err)
	}
	if md.Mint, err = readPublicKey(dec); err != nil {
		return nil, fmt.Errorf("read mint: %w", err)
	}
	if md.Name, err = readString(dec); err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	if md.Symbol, err = readString(dec); err != nil {
		return nil, fmt.Errorf("read symbol: %w", err)
	}
	if md.URI, err = readString(dec); err != nil {
		return nil, fmt.Errorf("read uri: %w", err)
	}
	if md.SellerFeeBasisPoints, err = dec.ReadUint16(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read seller fee: %w", err)
	}

	hasCreators, err := dec.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("read creators option: %w", err)
	}
	if hasCreators {
		n, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("read creators length: %w", err)
		}
		if int(n)*creatorSize > dec.Remaining() {
			return nil, fmt.Errorf("creators length %d exceeds account data", n)
		}
		md.Creators = make([]Creator, 0, n)
		for i := uint32(0); i < n; i++ {
			var c Creator
			if c.Address, err = readPublicKey(dec); err != nil {
				return nil, fmt.Errorf("read creator %d: %w", i, err)
			}
			if c.Verified, err = dec.ReadBool(); err != nil {
				return nil, fmt.Errorf("read creator %d: %w", i, err)
			}
			if c.Share, err = dec.ReadUint8(); err != nil {
				return nil, fmt.Errorf("read creator %d: %w", i, err)
			}
			md.Creators = append(md.Creators, c)
		}
	}

	if md.PrimarySaleHappened, err = dec.ReadBool(); err != nil {
		return nil, fmt.Errorf("read primary sale: %w", err)
	}
	if md.IsMutable, err = dec.ReadBool(); err != nil {
		return nil, fmt.Errorf("read is mutable: %w", err)
	}

	return &md, nil
}

// DecodeMint parses an SPL token mint account
func DecodeMint(data []byte) (*MintAccount, error) {
	if len(data) < MintAccountSize {
		return nil, fmt.Errorf("mint account too short: %d bytes", len(data))
	}

	dec := bin.NewBorshDecoder(data)
	var (
		m   MintAccount
		err error
	)

	if m.MintAuthority, err = readCOptionKey(dec); err != nil {
		return nil, fmt.Errorf("read mint authority: %w", err)
	}
	if m.Supply, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read supply: %w", err)
	}
	if m.Decimals, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("read decimals: %w", err)
	}
	if m.IsInitialized, err = dec.ReadBool(); err != nil {
		return nil, fmt.Errorf("read initialized: %w", err)
	}
	if m.FreezeAuthority, err = readCOptionKey(dec); err != nil {
		return nil, fmt.Errorf("read freeze authority: %w", err)
	}

	return &m, nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// readString reads a u32 length-prefixed string. Metaplex pads fixed-width fields with NULs.
func readString(dec *bin.Decoder) (string, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return "", err
	}
	if n > maxStringLen || int(n) > dec.Remaining() {
		return "", fmt.Errorf("string length %d out of range", n)
	}
	b, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}

// readCOptionKey reads the SPL COption<Pubkey> layout: u32 tag followed by 32 bytes.
func readCOptionKey(dec *bin.Decoder) (*solana.PublicKey, error) {
	tag, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	key, err := readPublicKey(dec)
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, nil
	}
	return &key, nil
}
