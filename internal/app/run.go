package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"sentifi/internal/alerting"
	"sentifi/internal/oracle"
	"sentifi/internal/pipeline"
	"sentifi/internal/storage"
)

// Run executes one fetch-classify-aggregate-publish cycle for a symbol.
// With DryRun set the pipeline stops after encoding and nothing is sent
// on-chain.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	symbol := a.resolveSymbol(opts.Symbol)

	var publisher pipeline.Publisher
	if !opts.DryRun {
		publisher = a.newOracle()
	}

	pipe, err := a.newPipeline(publisher)
	if err != nil {
		return err
	}

	var result *pipeline.RunResult
	if opts.DryRun {
		result, err = pipe.Analyze(ctx, symbol, opts.Query)
	} else {
		result, err = pipe.Run(ctx, symbol, opts.Query)
	}
	if err != nil {
		if errors.Is(err, oracle.ErrFeeTooLow) {
			a.Logger.Error().Err(err).Msg("publish aborted; raise oracle.gas_price_floor_gwei")
		}
		return err
	}

	printRunResult(result, opts.DryRun)

	if opts.DryRun {
		return nil
	}

	a.mirrorScore(ctx, result)
	a.dispatchAlert(ctx, result)
	return nil
}

func printRunResult(result *pipeline.RunResult, dryRun bool) {
	agg := result.Sentiment
	fmt.Fprintf(os.Stdout, "symbol: %s\n", agg.Symbol)
	fmt.Fprintf(os.Stdout, "sentiment: %+.4f (onchain %+d)\n", agg.Value, result.Encoded)
	fmt.Fprintf(os.Stdout, "samples: %d (%d bullish / %d bearish, dropped %d)\n",
		agg.SampleCount, agg.BullishCount, agg.BearishCount, result.Dropped)
	for _, status := range result.Statuses {
		state := "ok"
		if !status.OK {
			state = "failed: " + status.Err
		}
		fmt.Fprintf(os.Stdout, "  source %s: %d items (%s)\n", status.SourceID, status.Count, state)
	}
	if dryRun {
		fmt.Fprintln(os.Stdout, "dry run; nothing published")
		return
	}
	if result.Receipt != nil {
		fmt.Fprintf(os.Stdout, "tx: %s (block %d, gas %d)\n",
			result.Receipt.TxHash, result.Receipt.BlockNumber, result.Receipt.GasUsed)
		if result.Receipt.ExplorerURL != "" {
			fmt.Fprintln(os.Stdout, result.Receipt.ExplorerURL)
		}
	}
}

// mirrorScore records the confirmed publish in the optional Postgres
// mirror. Mirror failures are logged, never fatal; the chain is the
// source of truth.
func (a *App) mirrorScore(ctx context.Context, result *pipeline.RunResult) {
	if result.Receipt == nil {
		return
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("mirror unavailable; skipping score record")
		return
	}
	if store == nil {
		return
	}
	defer closeStore()

	rec := storageRecord(result)
	if err := store.UpsertScore(ctx, rec); err != nil {
		a.Logger.Warn().Err(err).Str("symbol", rec.Symbol).Msg("failed to mirror score")
		return
	}
	a.Logger.Debug().Str("symbol", rec.Symbol).Int64("score", rec.Score).Msg("score mirrored")
}

func storageRecord(result *pipeline.RunResult) storage.ScoreRecord {
	return storage.ScoreRecord{
		Symbol:      result.Sentiment.Symbol,
		Score:       result.Encoded,
		Value:       result.Sentiment.Value,
		SampleCount: result.Sentiment.SampleCount,
		TxHash:      result.Receipt.TxHash,
		PublishedAt: time.Now().UTC(),
	}
}

func (a *App) dispatchAlert(ctx context.Context, result *pipeline.RunResult) {
	if !a.Config.Alerting.Enabled || result.Receipt == nil {
		return
	}

	agg := result.Sentiment
	threshold := a.Config.Alerting.Threshold
	if agg.Value < threshold && agg.Value > -threshold {
		return
	}

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured")
		return
	}

	note := alerting.Notification{
		Symbol:       agg.Symbol,
		Value:        agg.Value,
		Encoded:      result.Encoded,
		Threshold:    threshold,
		Direction:    alerting.Direction(agg.Value),
		SampleCount:  agg.SampleCount,
		BullishCount: agg.BullishCount,
		BearishCount: agg.BearishCount,
		TxHash:       result.Receipt.TxHash,
		ExplorerURL:  result.Receipt.ExplorerURL,
		PublishedAt:  time.Now().UTC(),
	}
	if err := notifier.Notify(ctx, note); err != nil {
		a.Logger.Warn().Err(err).Str("symbol", agg.Symbol).Msg("alert dispatch failed")
	}
}
