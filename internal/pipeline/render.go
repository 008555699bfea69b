package pipeline

import (
	"fmt"
	"html"
	"strings"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/format"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
)

const (
	notAvailable = "N/A"
	flagBad      = "Yes ⛔️"
	flagGood     = "No ✅"
	flagUnknown  = "Unknown ❔"
)

// Render builds the HTML channel post for a report.
// Metadata strings are escaped since the post uses Telegram's HTML parse mode.
func Render(r *models.EnrichmentReport, cta models.InlineButton) models.NotificationMessage {
	var name, symbol, description string
	if r.Metadata != nil {
		name = html.EscapeString(r.Metadata.Name)
		symbol = html.EscapeString(r.Metadata.Symbol)
		description = html.EscapeString(r.Metadata.Description)
	}
	mint := r.Pair.BaseMint

	var b strings.Builder

	fmt.Fprintf(&b, "%s → (%s)\n\n", name, symbol)
	b.WriteString("Meta™\n")
	fmt.Fprintf(&b, "Base: %s %s\n", r.Pair.BaseDisplay, name)
	fmt.Fprintf(&b, "Quote: %s %s → ($%s)\n\n", r.Pair.QuoteDisplay, constants.NativeSymbol, fiat(r.LiquidityValue))

	supply := notAvailable
	if r.Supply != nil {
		supply = format.TokenSupply(*r.Supply)
	}
	fmt.Fprintf(&b, "Token Mint → %s %s\n", supply, name)
	fmt.Fprintf(&b, "Price %s → ($%s)\n", name, unitPrice(r.UnitPrice))
	fmt.Fprintf(&b, "MarketCap → ($%s)\n\n", fiat(r.MarketCap))
	fmt.Fprintf(&b, "%s\n\n", description)

	b.WriteString("🐋 Holders\n")
	if len(r.Holders) == 0 {
		b.WriteString(notAvailable + "\n")
	}
	for _, h := range r.Holders {
		pct := notAvailable
		if h.Percent != nil {
			pct = format.Percent(*h.Percent)
		}
		fmt.Fprintf(&b, "<a href=\"%s\"> %s (%s%%)</a>\n",
			fmt.Sprintf(constants.HolderLinkTemplate, h.Address),
			format.TruncateAddress(h.Address), pct)
	}

	b.WriteString("\n🔒 Risks\n")
	fmt.Fprintf(&b, "Mint Authority → %s\n", riskFlag(r.Metadata, func(m *models.TokenMetadata) bool { return !m.MintAuthorityRevoked }))
	fmt.Fprintf(&b, "Freeze Authority → %s\n", riskFlag(r.Metadata, func(m *models.TokenMetadata) bool { return !m.FreezeAuthorityRevoked }))
	fmt.Fprintf(&b, "Mutable Metadata → %s \n", riskFlag(r.Metadata, func(m *models.TokenMetadata) bool { return m.IsMutable }))

	fmt.Fprintf(&b, "<a href=\"%s\">Birdeye</a> → <a href=\"%s\">Raydium</a> → <a href=\"%s\">Dexscreen</a> → <a href=\"%s\">Rug Check</a>",
		fmt.Sprintf(constants.BirdeyeLinkTemplate, mint),
		html.EscapeString(fmt.Sprintf(constants.RaydiumLinkTemplate, mint)),
		fmt.Sprintf(constants.DexscreenLinkTemplate, mint),
		fmt.Sprintf(constants.RugCheckLinkTemplate, mint),
	)

	return models.NotificationMessage{Text: b.String(), Button: cta}
}

func fiat(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return format.Fiat(*v)
}

func unitPrice(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return format.UnitPrice(*v)
}

// riskFlag renders "Yes" when the risky condition holds
func riskFlag(md *models.TokenMetadata, risky func(*models.TokenMetadata) bool) string {
	if md == nil {
		return flagUnknown
	}
	if risky(md) {
		return flagBad
	}
	return flagGood
}
