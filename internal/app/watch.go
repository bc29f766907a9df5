package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"sentifi/internal/scheduler"
)

// Watch runs publication cycles for the configured symbols on the
// scheduler's interval until interrupted. A failing symbol never stops
// the loop or the remaining symbols in the same cycle.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	symbols := a.Config.Scheduler.Symbols
	if len(symbols) == 0 {
		symbols = []string{a.Config.Pipeline.DefaultSymbol}
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Strs("symbols", symbols).
		Dur("interval", a.Config.Scheduler.Interval).
		Msg("starting watch loop")

	err := sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		for _, symbol := range symbols {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := a.Run(ctx, RunOptions{Symbol: symbol}); err != nil {
				a.Logger.Error().Err(err).Str("symbol", symbol).Msg("cycle failed for symbol")
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}
