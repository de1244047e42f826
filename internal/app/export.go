package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"staking-ledger/internal/staking"
	"staking-ledger/internal/storage"
)

// exportPoint is one plotted sample: cumulative balances after an event.
type exportPoint struct {
	At               time.Time
	NetStaked        decimal.Decimal
	RewardsWithdrawn decimal.Decimal
}

// Export renders the audit history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
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

	from := to.Add(-30 * 24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	events, err := store.ListEventsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		a.Logger.Info().Msg("no events found for export window")
		return nil
	}

	a.Logger.Info().Int("events", len(events)).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeEventsCSV(opts.CSVPath, events); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		points := downsamplePoints(accumulate(events), opts.MaxPoints)
		if err := writeHistoryPNG(opts.PNGPath, points); err != nil {
			return err
		}
	}

	return nil
}

// accumulate folds the event stream into running net-staked and
// rewards-withdrawn totals.
func accumulate(events []storage.EventRow) []exportPoint {
	points := make([]exportPoint, 0, len(events))
	netStaked := decimal.Zero
	rewards := decimal.Zero

	for _, event := range events {
		amount := decimal.Zero
		if event.Amount != nil {
			amount = *event.Amount
		}
		switch event.Name {
		case staking.EventStake:
			netStaked = netStaked.Add(amount)
		case staking.EventUnstake:
			netStaked = netStaked.Sub(amount)
		case staking.EventWithdrawRewards:
			rewards = rewards.Add(amount)
		default:
			continue
		}
		points = append(points, exportPoint{
			At:               event.OccurredAt,
			NetStaked:        netStaked,
			RewardsWithdrawn: rewards,
		})
	}
	return points
}

func downsamplePoints(points []exportPoint, max int) []exportPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]exportPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeEventsCSV(path string, events []storage.EventRow) error {
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

	header := []string{"occurred_at", "event", "asset", "holder", "amount", "old_owner", "new_owner"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, event := range events {
		asset := ""
		if event.Asset != nil {
			asset = event.Asset.Hex()
		}
		amount := ""
		if event.Amount != nil {
			amount = event.Amount.String()
		}
		oldOwner := ""
		if event.OldOwner != nil {
			oldOwner = event.OldOwner.Hex()
		}
		newOwner := ""
		if event.NewOwner != nil {
			newOwner = event.NewOwner.Hex()
		}
		record := []string{
			event.OccurredAt.Format(time.RFC3339),
			event.Name,
			asset,
			event.Holder.Hex(),
			amount,
			oldOwner,
			newOwner,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeHistoryPNG(path string, points []exportPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if len(points) < 2 {
		return errors.New("not enough data points to render a chart")
	}

	x := make([]time.Time, len(points))
	netStaked := make([]float64, len(points))
	rewards := make([]float64, len(points))

	for i, point := range points {
		x[i] = point.At
		netStaked[i] = point.NetStaked.InexactFloat64()
		rewards[i] = point.RewardsWithdrawn.InexactFloat64()
	}

	amountFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Net staked (base units)",
			ValueFormatter: amountFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Rewards withdrawn (base units)",
			ValueFormatter: amountFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Net staked",
				XValues: x,
				YValues: netStaked,
			},
			chart.TimeSeries{
				Name:    "Rewards withdrawn",
				XValues: x,
				YValues: rewards,
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
