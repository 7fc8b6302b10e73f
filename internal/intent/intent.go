package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies what the user is asking for.
type Kind string

const (
	KindBuy       Kind = "buy"
	KindRecommend Kind = "recommend"
	KindBalance   Kind = "balance"
	KindOther     Kind = "other"
)

// TradeIntent is the structured reading of a free-form chat message.
// Symbol is empty and Amount is zero when the message carries none.
type TradeIntent struct {
	Symbol string
	Amount float64
	Kind   Kind
}

var (
	balanceKeywords   = []string{"balance", "how much money", "how much cash", "buying power", "funds"}
	recommendKeywords = []string{"recommend", "suggest", "what should i buy", "which stock", "advice", "ideas"}
	buyKeywords       = []string{"buy", "purchase", "invest in", "get me", "pick up"}

	// Ordered extraction patterns, first match wins.
	amountOfSymbol  = regexp.MustCompile(`(?i)buy\s+\$?(\d+(?:\.\d+)?)\s+of\s+([A-Za-z]{1,6})\b`)
	symbolForAmount = regexp.MustCompile(`(?i)buy\s+([A-Za-z]{1,6})\s+for\s+\$?(\d+(?:\.\d+)?)\b`)
	amountWorthOf   = regexp.MustCompile(`(?i)buy\s+\$?(\d+(?:\.\d+)?)\s+worth\s+of\s+([A-Za-z]{1,6})\b`)
	symbolOnly      = regexp.MustCompile(`(?i)buy\s+([A-Za-z]{1,6})\b`)
	bareAmount      = regexp.MustCompile(`\$(\d+(?:\.\d+)?)\b`)
)

// Parse derives a TradeIntent from raw message text. It is pure and
// deterministic: no state, no network, same input always yields the
// same output.
func Parse(message string) TradeIntent {
	lower := strings.ToLower(message)

	ti := TradeIntent{Kind: classify(lower)}

	if m := amountOfSymbol.FindStringSubmatch(message); m != nil {
		ti.Amount = parseAmount(m[1])
		ti.Symbol = strings.ToUpper(m[2])
		return ti
	}
	if m := symbolForAmount.FindStringSubmatch(message); m != nil {
		ti.Symbol = strings.ToUpper(m[1])
		ti.Amount = parseAmount(m[2])
		return ti
	}
	if m := amountWorthOf.FindStringSubmatch(message); m != nil {
		ti.Amount = parseAmount(m[1])
		ti.Symbol = strings.ToUpper(m[2])
		return ti
	}
	if m := symbolOnly.FindStringSubmatch(message); m != nil {
		ti.Symbol = strings.ToUpper(m[1])
	}
	if m := bareAmount.FindStringSubmatch(message); m != nil && ti.Amount == 0 {
		ti.Amount = parseAmount(m[1])
	}
	return ti
}

func classify(lower string) Kind {
	for _, kw := range balanceKeywords {
		if strings.Contains(lower, kw) {
			return KindBalance
		}
	}
	for _, kw := range recommendKeywords {
		if strings.Contains(lower, kw) {
			return KindRecommend
		}
	}
	for _, kw := range buyKeywords {
		if strings.Contains(lower, kw) {
			return KindBuy
		}
	}
	return KindOther
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
