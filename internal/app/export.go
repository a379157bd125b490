package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"platform-pulse/internal/storage"
)

// Export renders one instrument's price history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Mint == "" {
		return errors.New("--mint must be provided")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Ticker.PollInterval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	changes, err := store.ListPriceChangesBetween(ctx, opts.Mint, from, to)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		a.Logger.Info().Str("mint", opts.Mint).Msg("no price changes found for export window")
		return nil
	}

	downsampled := downsampleChanges(changes, opts.MaxPoints)
	a.Logger.Info().Int("total", len(changes)).Int("exported", len(downsampled)).Msg("exporting price changes")

	if opts.CSVPath != "" {
		if err := writeChangesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeChangesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleChanges(changes []storage.PriceChange, max int) []storage.PriceChange {
	if max <= 0 || len(changes) <= max {
		return changes
	}

	result := make([]storage.PriceChange, 0, max)
	step := float64(len(changes)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(changes) {
			idx = len(changes) - 1
		}
		result = append(result, changes[idx])
	}
	return result
}

func writeChangesCSV(path string, changes []storage.PriceChange) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"changed_at", "mint", "symbol", "price", "previous_price", "percent_change"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, change := range changes {
		record := []string{
			change.ChangedAt.Format(time.RFC3339),
			change.Mint,
			change.Symbol,
			change.Price.String(),
			change.PreviousPrice.String(),
			change.PercentChange.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeChangesPNG(path string, changes []storage.PriceChange) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(changes))
	price := make([]float64, len(changes))
	pct := make([]float64, len(changes))

	for i, change := range changes {
		x[i] = change.ChangedAt
		price[i] = change.Price.InexactFloat64()
		pct[i] = change.PercentChange.InexactFloat64()
	}

	symbol := changes[0].Symbol
	if symbol == "" {
		symbol = changes[0].Mint
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.6f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (USD)",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "Change (%)",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    symbol,
				XValues: x,
				YValues: price,
			},
			chart.TimeSeries{
				Name:    "Change %",
				XValues: x,
				YValues: pct,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
