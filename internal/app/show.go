package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints the mirror's latest recorded score per symbol.
func (a *App) Show(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show scores")
	}
	defer closeStore()

	records, err := store.ListScores(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no scores recorded")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tScore\tValue\tSamples\tPublished (UTC)\tTx")

	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%+d\t%+.4f\t%d\t%s\t%s\n",
			rec.Symbol,
			rec.Score,
			rec.Value,
			rec.SampleCount,
			rec.PublishedAt.UTC().Format(time.RFC3339),
			rec.TxHash,
		)
	}

	writer.Flush()
	return nil
}
