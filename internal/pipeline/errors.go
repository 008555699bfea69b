package pipeline

import "errors"

// Run abort reasons. None of them escape a pipeline run.
var (
	ErrMalformedTransactionLayout = errors.New("malformed transaction layout")
	ErrNullAmount                 = errors.New("null token amount")
	ErrInvalidMint                = errors.New("invalid mint address")
	ErrAmbiguousPair              = errors.New("ambiguous pair: exactly one leg must be wrapped SOL")
)

// IsAbandon reports whether err is expected feed noise rather than a fault.
func IsAbandon(err error) bool {
	return errors.Is(err, ErrMalformedTransactionLayout) ||
		errors.Is(err, ErrNullAmount) ||
		errors.Is(err, ErrInvalidMint) ||
		errors.Is(err, ErrAmbiguousPair)
}
