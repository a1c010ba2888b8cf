package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// renderMessage builds the broadcast text: direction icon, buy/sell in the
// source unit and per gram, and the capture time in the configured zone.
func renderMessage(update Update) string {
	record := update.Record

	loc := update.Location
	if loc == nil {
		loc = time.UTC
	}

	builder := strings.Builder{}
	builder.WriteString(directionIcon(update))
	builder.WriteString(" <b>Gold Price Update</b>\n\n")

	builder.WriteString("💵 <b>Buy</b>\n")
	builder.WriteString(fmt.Sprintf("• 🪙 Mesqal: %s\n", formatPrice(record.BuyPrice)))
	builder.WriteString(fmt.Sprintf("• ⚖️ Per gram: %s\n\n", formatPrice(perGram(record.BuyPrice))))

	builder.WriteString("💰 <b>Sell</b>\n")
	builder.WriteString(fmt.Sprintf("• 🪙 Mesqal: %s\n", formatPrice(record.SellPrice)))
	builder.WriteString(fmt.Sprintf("• ⚖️ Per gram: %s\n\n", formatPrice(perGram(record.SellPrice))))

	builder.WriteString(fmt.Sprintf("⏱️ <b>Time:</b> %s", record.Timestamp.In(loc).Format("2006/01/02 - 15:04:05")))

	return builder.String()
}

// directionIcon compares the estimate price against the previous record:
// green up, red down, white unchanged or unknown.
func directionIcon(update Update) string {
	current := update.Record.EstimatePrice
	if current == nil || update.Previous == nil || update.Previous.EstimatePrice == nil {
		return "⚪"
	}

	switch current.Cmp(*update.Previous.EstimatePrice) {
	case 1:
		return "🟢"
	case -1:
		return "🔴"
	default:
		return "⚪"
	}
}

func perGram(mesqal decimal.Decimal) decimal.Decimal {
	return mesqal.Div(mesqalToGram).Round(0)
}

func formatPrice(p decimal.Decimal) string {
	return groupDigits(p.StringFixed(0)) + " Toman"
}

// groupDigits inserts thousands separators into an integer string.
func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}
