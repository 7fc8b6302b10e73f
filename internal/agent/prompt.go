package agent

import (
	"fmt"
	"math"
	"strings"

	"github.com/perch-finance/perch/internal/intent"
)

// BuildSystemPrompt embeds the live balance and the purchasable catalog
// so the model never invents symbols or amounts, and pins down tool
// usage: purchases go through the buy_stock tool, never prose.
func BuildSystemPrompt(balance float64, symbols []string) string {
	var sb strings.Builder

	sb.WriteString("You are the trading assistant of a personal finance app.\n")
	sb.WriteString(fmt.Sprintf("The user's available balance is $%.2f.\n", balance))
	sb.WriteString("The only purchasable stocks are: ")
	sb.WriteString(strings.Join(symbols, ", "))
	sb.WriteString(".\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("1. When the user wants to buy a stock, you MUST call the buy_stock tool. ")
	sb.WriteString("Never describe a purchase in prose and never claim an order was placed without calling the tool.\n")
	sb.WriteString("2. buy_stock takes a percentage of the available balance (10-50), not a dollar amount.\n")
	sb.WriteString("3. Only recommend stocks from the purchasable list.\n")
	sb.WriteString("4. For balance questions, answer with the balance above.\n")
	sb.WriteString("5. Keep replies short and concrete.\n")

	return sb.String()
}

// AugmentUserMessage appends a bracketed directive when the parser
// found a symbol or amount, converting dollars to a percentage of
// balance so the tool call stays tied to what the user can afford.
func AugmentUserMessage(message string, ti intent.TradeIntent, balance float64) string {
	if ti.Kind != intent.KindBuy {
		return message
	}

	var hints []string
	if ti.Symbol != "" {
		hints = append(hints, fmt.Sprintf("the user wants to buy %s", ti.Symbol))
	}
	if ti.Amount > 0 && balance > 0 {
		pct := math.Round(ti.Amount / balance * 100)
		hints = append(hints, fmt.Sprintf("$%.0f is %.0f%% of the balance, call buy_stock with percent=%.0f", ti.Amount, pct, pct))
	}
	if len(hints) == 0 {
		return message
	}

	return fmt.Sprintf("%s\n[Directive: %s]", message, strings.Join(hints, "; "))
}
