package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints recent settled plays.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show plays")
	}
	if closeStore != nil {
		defer closeStore()
	}

	plays, err := store.ListRecentPlays(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(plays) == 0 {
		fmt.Fprintln(os.Stdout, "no plays found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tGame\tUser\tWager\tMult\tProfit\tJackpot")

	for _, play := range plays {
		fmt.Fprintf(
			writer,
			"%s\t%s\t...%s\t%s\t%sx\t%s\t%s\n",
			play.PlayedAt.UTC().Format(time.RFC3339),
			sanitizeInline(play.GameName),
			shortAddress(play.UserAddress),
			formatDecimal(play.Wager, 4),
			formatDecimal(play.Multiplier, 2),
			formatDecimal(play.Profit, 4),
			formatDecimal(play.JackpotPayout, 4),
		)
	}

	writer.Flush()
	return nil
}

func shortAddress(addr string) string {
	if len(addr) <= 5 {
		return addr
	}
	return addr[len(addr)-5:]
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
