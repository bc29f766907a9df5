package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sentifi/internal/classify"
	"sentifi/internal/feeds"
	"sentifi/internal/oracle"
	"sentifi/internal/sentiment"
)

// State names the orchestrator's position in a run. Transitions are
// strictly sequential; Failed absorbs from any non-terminal state.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateClassifying State = "classifying"
	StateAggregating State = "aggregating"
	StatePublishing  State = "publishing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// ErrNoDataAvailable means every source adapter failed or returned
// nothing; the run never silently publishes a zero in that case.
var ErrNoDataAvailable = errors.New("pipeline: no source produced any items")

// PublishError wraps the underlying transaction-submission failure. The
// pipeline surfaces it to the caller instead of retrying; the caller may
// re-invoke the whole run.
type PublishError struct {
	Cause error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("pipeline: publish failed: %v", e.Cause)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// Publisher is the slice of the oracle client the pipeline needs.
type Publisher interface {
	Publish(ctx context.Context, symbol string, score int64) (oracle.Receipt, error)
}

// Options tune a pipeline instance.
type Options struct {
	FetchTimeout time.Duration
	Workers      int
}

// RunResult is a completed run: the aggregate, its encoding, the publish
// receipt (nil on dry runs), and per-source diagnostics.
type RunResult struct {
	State     State
	Sentiment sentiment.Aggregate
	Encoded   int64
	Receipt   *oracle.Receipt
	Statuses  []feeds.SourceStatus
	Dropped   int
}

// Pipeline sequences fetch, classify, aggregate, encode, and publish for
// one symbol per run. It is the only component aware of all the others.
type Pipeline struct {
	sources    []feeds.Source
	classifier classify.Classifier
	publisher  Publisher
	opts       Options
	logger     zerolog.Logger
}

// New wires the pipeline. publisher may be nil for analysis-only use.
func New(sources []feeds.Source, classifier classify.Classifier, publisher Publisher, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	return &Pipeline{
		sources:    sources,
		classifier: classifier,
		publisher:  publisher,
		opts:       opts,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one full pipeline pass for a symbol and publishes the
// encoded score. Cancellation before the publishing state has no side
// effects; after a confirmed publish the write stands.
func (p *Pipeline) Run(ctx context.Context, symbol, query string) (*RunResult, error) {
	result, err := p.analyze(ctx, symbol, query)
	if err != nil {
		return result, err
	}

	if p.publisher == nil {
		return result, p.fail(result, errors.New("pipeline: no publisher configured"))
	}
	if err := ctx.Err(); err != nil {
		return result, p.fail(result, err)
	}

	p.transition(result, StatePublishing, symbol)
	receipt, err := p.publisher.Publish(ctx, symbol, result.Encoded)
	if err != nil {
		if errors.Is(err, oracle.ErrFeeTooLow) {
			return result, p.fail(result, err)
		}
		return result, p.fail(result, &PublishError{Cause: err})
	}

	result.Receipt = &receipt
	result.State = StateDone
	p.logger.Info().Str("symbol", symbol).Int64("score", result.Encoded).
		Str("tx", receipt.TxHash).Msg("run complete")
	return result, nil
}

// Analyze runs the pipeline up to aggregation and encoding without
// touching the chain.
func (p *Pipeline) Analyze(ctx context.Context, symbol, query string) (*RunResult, error) {
	result, err := p.analyze(ctx, symbol, query)
	if err != nil {
		return result, err
	}
	result.State = StateDone
	return result, nil
}

func (p *Pipeline) analyze(ctx context.Context, symbol, query string) (*RunResult, error) {
	if symbol == "" {
		return &RunResult{State: StateFailed}, errors.New("pipeline: symbol must not be empty")
	}

	result := &RunResult{State: StateIdle}

	p.transition(result, StateFetching, symbol)
	items, statuses := p.fetchAll(ctx, symbol, query)
	result.Statuses = statuses
	if err := ctx.Err(); err != nil {
		return result, p.fail(result, err)
	}
	if len(items) == 0 {
		return result, p.fail(result, ErrNoDataAvailable)
	}

	p.transition(result, StateClassifying, symbol)
	classified, dropped := p.classifyAll(ctx, items)
	result.Dropped = dropped
	if err := ctx.Err(); err != nil {
		return result, p.fail(result, err)
	}

	p.transition(result, StateAggregating, symbol)
	agg, err := sentiment.Compute(symbol, classified)
	if err != nil {
		return result, p.fail(result, err)
	}
	result.Sentiment = agg

	encoded, err := sentiment.Encode(agg.Value)
	if err != nil {
		return result, p.fail(result, err)
	}
	result.Encoded = encoded

	return result, nil
}

// fetchAll queries every source concurrently and waits for all of them.
// Individual failures become SourceStatus entries, never errors.
func (p *Pipeline) fetchAll(ctx context.Context, symbol, query string) ([]feeds.TextItem, []feeds.SourceStatus) {
	type outcome struct {
		idx    int
		items  []feeds.TextItem
		status feeds.SourceStatus
	}

	outcomes := make(chan outcome, len(p.sources))
	var wg sync.WaitGroup

	for i, src := range p.sources {
		wg.Add(1)
		go func(idx int, src feeds.Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
			defer cancel()

			items, err := src.Fetch(fetchCtx, symbol, query)
			status := feeds.SourceStatus{SourceID: src.ID(), OK: err == nil, Count: len(items)}
			if err != nil {
				status.Err = err.Error()
				items = nil
				p.logger.Warn().Err(err).Str("source", src.ID()).Msg("source fetch failed")
			}
			outcomes <- outcome{idx: idx, items: items, status: status}
		}(i, src)
	}

	wg.Wait()
	close(outcomes)

	statuses := make([]feeds.SourceStatus, len(p.sources))
	var items []feeds.TextItem
	for out := range outcomes {
		statuses[out.idx] = out.status
		items = append(items, out.items...)
	}
	return items, statuses
}

// classifyAll runs the classifier over items with a bounded worker pool.
// Items violating the classifier contract or failing individually are
// dropped; the run only fails later if nothing survives.
func (p *Pipeline) classifyAll(ctx context.Context, items []feeds.TextItem) ([]classify.Result, int) {
	type job struct {
		idx  int
		item feeds.TextItem
	}

	jobs := make(chan job)
	slots := make([]*classify.Result, len(items))
	var wg sync.WaitGroup

	workers := p.opts.Workers
	if workers > len(items) {
		workers = len(items)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				label, confidence, err := p.classifier.Classify(ctx, j.item.RawText)
				if err == nil {
					err = classify.Validate(label, confidence)
				}
				if err != nil {
					p.logger.Warn().Err(err).Str("source", j.item.SourceID).Msg("item dropped")
					continue
				}
				slots[j.idx] = &classify.Result{Item: j.item, Label: label, Confidence: confidence}
			}
		}()
	}

	for i, item := range items {
		jobs <- job{idx: i, item: item}
	}
	close(jobs)
	wg.Wait()

	results := make([]classify.Result, 0, len(items))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results, len(items) - len(results)
}

func (p *Pipeline) transition(result *RunResult, next State, symbol string) {
	result.State = next
	p.logger.Debug().Str("symbol", symbol).Str("state", string(next)).Msg("state transition")
}

func (p *Pipeline) fail(result *RunResult, err error) error {
	result.State = StateFailed
	return err
}
