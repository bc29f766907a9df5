package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sentifi/internal/classify"
	"sentifi/internal/feeds"
	"sentifi/internal/oracle"
	"sentifi/internal/sentiment"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubSource struct {
	id    string
	items []feeds.TextItem
	err   error
	delay time.Duration
}

func (s *stubSource) ID() string { return s.id }

func (s *stubSource) Fetch(ctx context.Context, symbol, query string) ([]feeds.TextItem, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type stubClassifier struct {
	results map[string]classify.Result
}

func (c *stubClassifier) Classify(ctx context.Context, text string) (classify.Label, float64, error) {
	res, ok := c.results[text]
	if !ok {
		return classify.Positive, 0.5, nil
	}
	return res.Label, res.Confidence, nil
}

type stubPublisher struct {
	calls   atomic.Int64
	lastSym string
	lastVal int64
	err     error
}

func (p *stubPublisher) Publish(ctx context.Context, symbol string, score int64) (oracle.Receipt, error) {
	p.calls.Add(1)
	p.lastSym = symbol
	p.lastVal = score
	if p.err != nil {
		return oracle.Receipt{}, p.err
	}
	return oracle.Receipt{TxHash: "0xfeed", BlockNumber: 7, GasUsed: 21000}, nil
}

func textItems(sourceID string, texts ...string) []feeds.TextItem {
	items := make([]feeds.TextItem, 0, len(texts))
	for _, txt := range texts {
		items = append(items, feeds.TextItem{SourceID: sourceID, RawText: txt, FetchedAt: time.Now()})
	}
	return items
}

func TestRunWorkedExample(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "reddit", items: textItems("reddit", "very bullish", "quite bullish")},
		&stubSource{id: "news", items: textItems("news", "mildly bearish")},
	}
	classifier := &stubClassifier{results: map[string]classify.Result{
		"very bullish":   {Label: classify.Positive, Confidence: 0.9},
		"quite bullish":  {Label: classify.Positive, Confidence: 0.6},
		"mildly bearish": {Label: classify.Negative, Confidence: 0.3},
	}}
	publisher := &stubPublisher{}

	p := New(sources, classifier, publisher, Options{Workers: 2}, noopLogger())
	result, err := p.Run(context.Background(), "BTC", "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.State != StateDone {
		t.Fatalf("expected done state, got %s", result.State)
	}
	if result.Encoded != 40 {
		t.Fatalf("mean 0.4 should encode to 40, got %d", result.Encoded)
	}
	if publisher.lastSym != "BTC" || publisher.lastVal != 40 {
		t.Fatalf("published %s/%d, want BTC/40", publisher.lastSym, publisher.lastVal)
	}
	if publisher.calls.Load() != 1 {
		t.Fatalf("publish should be called exactly once, got %d", publisher.calls.Load())
	}
	if result.Receipt == nil || result.Receipt.TxHash != "0xfeed" {
		t.Fatal("receipt should carry the transaction hash")
	}
	if result.Sentiment.SampleCount != 3 {
		t.Fatalf("sample count should be 3, got %d", result.Sentiment.SampleCount)
	}
}

func TestRunAllSourcesFailing(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "reddit", err: errors.New("network down")},
		&stubSource{id: "news", err: errors.New("feed unreachable")},
	}
	publisher := &stubPublisher{}

	p := New(sources, &stubClassifier{}, publisher, Options{}, noopLogger())
	result, err := p.Run(context.Background(), "BTC", "")
	if !errors.Is(err, ErrNoDataAvailable) {
		t.Fatalf("expected ErrNoDataAvailable, got %v", err)
	}
	if result.State != StateFailed {
		t.Fatalf("state should be failed, got %s", result.State)
	}
	if publisher.calls.Load() != 0 {
		t.Fatal("nothing must be published when no data is available")
	}
	if len(result.Statuses) != 2 {
		t.Fatalf("expected 2 source statuses, got %d", len(result.Statuses))
	}
	for _, status := range result.Statuses {
		if status.OK || status.Err == "" {
			t.Fatalf("failed source should report its error: %+v", status)
		}
	}
}

func TestRunProceedsOnPartialSourceFailure(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "reddit", err: errors.New("rate limited")},
		&stubSource{id: "news", items: textItems("news", "bullish headline")},
	}
	classifier := &stubClassifier{results: map[string]classify.Result{
		"bullish headline": {Label: classify.Positive, Confidence: 0.8},
	}}
	publisher := &stubPublisher{}

	p := New(sources, classifier, publisher, Options{}, noopLogger())
	result, err := p.Run(context.Background(), "BTC", "")
	if err != nil {
		t.Fatalf("one healthy source should be enough: %v", err)
	}
	if result.Encoded != 80 {
		t.Fatalf("expected encoded 80, got %d", result.Encoded)
	}
	if result.Statuses[0].OK || !result.Statuses[1].OK {
		t.Fatalf("statuses should reflect per-source outcomes: %+v", result.Statuses)
	}
}

func TestRunDropsContractViolations(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "news", items: textItems("news", "good", "broken")},
	}
	classifier := &stubClassifier{results: map[string]classify.Result{
		"good":   {Label: classify.Positive, Confidence: 0.6},
		"broken": {Label: classify.Positive, Confidence: 1.7},
	}}
	publisher := &stubPublisher{}

	p := New(sources, classifier, publisher, Options{}, noopLogger())
	result, err := p.Run(context.Background(), "BTC", "")
	if err != nil {
		t.Fatalf("a single violation must not fail the run: %v", err)
	}
	if result.Dropped != 1 {
		t.Fatalf("expected 1 dropped item, got %d", result.Dropped)
	}
	if result.Sentiment.SampleCount != 1 {
		t.Fatalf("violating item must not enter the aggregate, count %d", result.Sentiment.SampleCount)
	}
	if result.Encoded != 60 {
		t.Fatalf("expected encoded 60 from the surviving item, got %d", result.Encoded)
	}
}

func TestRunFailsWhenNothingSurvives(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "news", items: textItems("news", "broken")},
	}
	classifier := &stubClassifier{results: map[string]classify.Result{
		"broken": {Label: classify.Positive, Confidence: -3},
	}}

	p := New(sources, classifier, &stubPublisher{}, Options{}, noopLogger())
	_, err := p.Run(context.Background(), "BTC", "")
	if !errors.Is(err, sentiment.ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestRunWrapsPublishFailure(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "news", items: textItems("news", "headline")},
	}
	cause := errors.New("nonce too low")
	publisher := &stubPublisher{err: cause}

	p := New(sources, &stubClassifier{}, publisher, Options{}, noopLogger())
	result, err := p.Run(context.Background(), "BTC", "")

	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("PublishError should unwrap to its cause")
	}
	if result.State != StateFailed {
		t.Fatalf("state should be failed, got %s", result.State)
	}
}

func TestRunSurfacesFeeTooLow(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "news", items: textItems("news", "headline")},
	}
	publisher := &stubPublisher{err: oracle.ErrFeeTooLow}

	p := New(sources, &stubClassifier{}, publisher, Options{}, noopLogger())
	_, err := p.Run(context.Background(), "BTC", "")
	if !errors.Is(err, oracle.ErrFeeTooLow) {
		t.Fatalf("fee-too-low should surface untouched, got %v", err)
	}
	var pubErr *PublishError
	if errors.As(err, &pubErr) {
		t.Fatal("fee-too-low is its own failure reason, not a PublishError")
	}
}

func TestRunSourceTimeoutIsContained(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "slow", delay: time.Second, items: textItems("slow", "late")},
		&stubSource{id: "news", items: textItems("news", "headline")},
	}
	publisher := &stubPublisher{}

	p := New(sources, &stubClassifier{}, publisher, Options{FetchTimeout: 20 * time.Millisecond}, noopLogger())
	result, err := p.Run(context.Background(), "BTC", "")
	if err != nil {
		t.Fatalf("slow source should be treated as failed, not fatal: %v", err)
	}
	if result.Statuses[0].OK {
		t.Fatal("timed-out source should report a failed status")
	}
	if !result.Statuses[1].OK {
		t.Fatal("healthy source should report ok")
	}
}

func TestAnalyzeDoesNotPublish(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "news", items: textItems("news", "headline")},
	}
	publisher := &stubPublisher{}

	p := New(sources, &stubClassifier{}, publisher, Options{}, noopLogger())
	result, err := p.Analyze(context.Background(), "BTC", "")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if publisher.calls.Load() != 0 {
		t.Fatal("analyze must not publish")
	}
	if result.Receipt != nil {
		t.Fatal("analyze should carry no receipt")
	}
	if result.State != StateDone {
		t.Fatalf("expected done state, got %s", result.State)
	}
}

func TestRunCancelledBeforePublish(t *testing.T) {
	sources := []feeds.Source{
		&stubSource{id: "news", items: textItems("news", "headline")},
	}
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(sources, &stubClassifier{}, publisher, Options{}, noopLogger())
	_, err := p.Run(ctx, "BTC", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if publisher.calls.Load() != 0 {
		t.Fatal("cancelled run must have no side effects")
	}
}

func TestRunEmptySymbol(t *testing.T) {
	p := New(nil, &stubClassifier{}, &stubPublisher{}, Options{}, noopLogger())
	if _, err := p.Run(context.Background(), "", ""); err == nil {
		t.Fatal("empty symbol should fail")
	}
}
