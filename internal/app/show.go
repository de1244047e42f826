package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent ledger events.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show events")
	}
	if closeStore != nil {
		defer closeStore()
	}

	events, err := store.ListRecentEvents(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "no events found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tEvent\tAsset\tHolder\tAmount\tDetail")

	for _, event := range events {
		asset := "-"
		if event.Asset != nil {
			asset = event.Asset.Hex()
		}
		amount := "-"
		if event.Amount != nil {
			amount = event.Amount.String()
		}
		detail := ""
		if event.OldOwner != nil && event.NewOwner != nil {
			detail = fmt.Sprintf("%s -> %s", event.OldOwner.Hex(), event.NewOwner.Hex())
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			event.OccurredAt.UTC().Format(time.RFC3339),
			event.Name,
			asset,
			event.Holder.Hex(),
			amount,
			detail,
		)
	}

	writer.Flush()
	return nil
}
