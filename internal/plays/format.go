package plays

import "fmt"

// FormatMessage renders the toast text for one settled play. Losses show
// the absolute amount.
func FormatMessage(event SettlementEvent, decimals int32, symbol string) (message string, win bool) {
	profit := event.ScaledProfit(decimals)
	game := event.GameName
	if game == "" {
		game = "Unknown Game"
	}

	if profit.IsPositive() {
		return fmt.Sprintf("🎉 User ...%s WON %s %s in %s!",
			event.ShortUser(), profit.StringFixed(decimals), symbol, game), true
	}
	return fmt.Sprintf("😢 User ...%s LOST %s %s in %s.",
		event.ShortUser(), profit.Abs().StringFixed(decimals), symbol, game), false
}
