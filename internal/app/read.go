package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"sentifi/internal/sentiment"
)

// Read queries the oracle contract for a symbol's current score and, when
// the mirror is configured, reports any drift between the chain and the
// last locally recorded publish.
func (a *App) Read(ctx context.Context, opts ReadOptions) error {
	symbol := a.resolveSymbol(opts.Symbol)

	client := a.newOracle()
	encoded, err := client.Read(ctx, symbol)
	if err != nil {
		return err
	}

	value := sentiment.Decode(encoded)
	fmt.Fprintf(os.Stdout, "symbol: %s\n", symbol)
	fmt.Fprintf(os.Stdout, "onchain: %+d (%+.2f)\n", encoded, value)

	a.compareMirror(ctx, symbol, encoded)
	return nil
}

// compareMirror surfaces whether the chain value matches the last publish
// this instance recorded. A zero on chain with no mirror row is reported
// as such: the contract returns 0 both for "never published" and for a
// genuinely neutral score.
func (a *App) compareMirror(ctx context.Context, symbol string, encoded int64) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("mirror unavailable; skipping comparison")
		return
	}
	if store == nil {
		if encoded == 0 {
			fmt.Fprintln(os.Stdout, "note: 0 may mean neutral or never published")
		}
		return
	}
	defer closeStore()

	rec, found, err := store.GetScore(ctx, symbol)
	if err != nil {
		a.Logger.Warn().Err(err).Str("symbol", symbol).Msg("mirror lookup failed")
		return
	}
	if !found {
		if encoded == 0 {
			fmt.Fprintln(os.Stdout, "mirror: no publish recorded; 0 likely means never published")
		} else {
			fmt.Fprintln(os.Stdout, "mirror: no publish recorded by this instance")
		}
		return
	}

	fmt.Fprintf(os.Stdout, "mirror: %+d published %s (tx %s)\n",
		rec.Score, rec.PublishedAt.UTC().Format(time.RFC3339), rec.TxHash)
	if rec.Score != encoded {
		fmt.Fprintln(os.Stdout, "warning: chain and mirror disagree; another writer may have published")
	}
}
