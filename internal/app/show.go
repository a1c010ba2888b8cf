package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"goldwatcher/internal/storage"
)

// Show prints recent price records, newest first. The archive is preferred
// when configured; otherwise the local record file is used.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	records, err := a.recentRecords(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no records found")
		return nil
	}

	location, err := a.Config.Location()
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time\tBuy\tSell\tEstimate\tSource")

	for _, record := range records {
		estimate := ""
		if record.EstimatePrice != nil {
			estimate = record.EstimatePrice.StringFixed(0)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			record.Timestamp.In(location).Format(time.RFC3339),
			record.BuyPrice.StringFixed(0),
			record.SellPrice.StringFixed(0),
			estimate,
			record.SourceID,
		)
	}

	writer.Flush()
	return nil
}

func (a *App) recentRecords(ctx context.Context, limit int) ([]storage.PriceRecord, error) {
	archive, closeArchive, err := a.openArchive(ctx)
	if err != nil {
		return nil, err
	}
	if archive != nil {
		defer closeArchive()
		return archive.ListRecentRecords(ctx, limit)
	}

	store, err := a.openFileStore()
	if err != nil {
		return nil, err
	}
	records, err := store.All(ctx)
	if err != nil {
		return nil, err
	}

	// newest first, capped at limit
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
