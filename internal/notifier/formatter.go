package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CoinForecast/internal/model"
)

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatQuote formats the anchor price of a run.
func FormatQuote(q model.Quote, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💲 <b>%s</b>: %s %s\n", q.CoinID, money(q.Price), strings.ToUpper(q.Currency)))
	if q.Source == model.PriceSourceFallback {
		b.WriteString("⚠️ live quote unavailable, fallback price used\n")
	}
	b.WriteString(fmt.Sprintf("updated: %s\n", at.Format("2006-01-02 15:04")))
	return b.String()
}

// FormatRunSummary formats a finished run into a Telegram message.
func FormatRunSummary(res *model.RunResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Forecast refreshed</b> | %s\n\n", res.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(FormatQuote(res.Quote, res.FinishedAt))
	b.WriteString("\n")

	for _, h := range model.Horizons {
		s, ok := res.Summaries[h]
		if !ok {
			continue
		}
		change := 0.0
		if res.Quote.Price > 0 {
			change = (s.Last - res.Quote.Price) / res.Quote.Price * 100
		}
		b.WriteString(fmt.Sprintf("  %s: %s (%+.2f%%) range %s ~ %s\n",
			h, money(s.Last), change, money(s.Min), money(s.Max)))
	}
	return b.String()
}
