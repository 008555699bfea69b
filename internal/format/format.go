// Package format holds the pure numeric and display helpers used to render listings.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	truncateThreshold = 14
	truncateKeep      = 6
	truncateFill      = "*****"
)

// TruncateAddress shortens long addresses to first6*****last6.
func TruncateAddress(address string) string {
	if len(address) <= truncateThreshold {
		return address
	}
	return address[:truncateKeep] + truncateFill + address[len(address)-truncateKeep:]
}

// Percentage returns holding/total*100 rounded to two decimals.
// ok is false when total is not positive.
func Percentage(total, holding float64) (pct float64, ok bool) {
	if total <= 0 || math.IsNaN(total) || math.IsNaN(holding) {
		return 0, false
	}
	v := decimal.NewFromFloat(holding).Div(decimal.NewFromFloat(total)).Mul(decimal.NewFromInt(100)).Round(2)
	f, _ := v.Float64()
	return f, true
}

// Percent renders a percentage with exactly two decimals.
func Percent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 2, 64)
}

var supplyUnits = []struct {
	threshold float64
	suffix    string
}{
	{1e15, "Q"},
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "k"},
}

// TokenSupply compacts large amounts: 1500 -> "1.50k", 2.5e6 -> "2.50M".
// Values under one thousand are returned as-is.
func TokenSupply(v float64) string {
	for _, u := range supplyUnits {
		if v >= u.threshold {
			return strconv.FormatFloat(v/u.threshold, 'f', 2, 64) + u.suffix
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Fiat renders a currency value with grouping and at most two fraction digits.
func Fiat(v float64) string {
	return grouped(v, 2)
}

// UnitPrice renders a token price with at most eight fraction digits.
func UnitPrice(v float64) string {
	return grouped(v, 8)
}

// LiquidityValue is the fiat value of the quote side of the pool.
func LiquidityValue(quoteAmount, nativePrice float64) float64 {
	return quoteAmount * nativePrice
}

// TokenPrice derives the fiat price of one base token from the pool ratio.
func TokenPrice(baseAmount, quoteAmount, nativePrice float64) (float64, error) {
	if baseAmount <= 0 {
		return 0, fmt.Errorf("base amount must be > 0, got %v", baseAmount)
	}
	return (quoteAmount / baseAmount) * nativePrice, nil
}

// grouped formats v like en-US toLocaleString with maximumFractionDigits=digits.
func grouped(v float64, digits int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	s := decimal.NewFromFloat(v).Round(digits).String()

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

