package sentiment

import (
	"errors"

	"github.com/shopspring/decimal"

	"sentifi/internal/classify"
)

var (
	// ErrInsufficientSamples means zero usable items survived
	// classification. A silent zero would be indistinguishable from a
	// genuinely neutral market, so the run fails instead.
	ErrInsufficientSamples = errors.New("sentiment: no usable samples to aggregate")
)

// Contribution records one item's share of the aggregate, kept for
// diagnostics and the export chart.
type Contribution struct {
	SourceID   string
	Text       string
	Label      classify.Label
	Confidence float64
	Signed     float64
}

// Aggregate is the single bounded sentiment computed for a symbol in one
// run. Either fully computed or the run fails; never partially mutated.
type Aggregate struct {
	Symbol          string
	Value           float64
	SampleCount     int
	SourceBreakdown map[string]int
	BullishCount    int
	BearishCount    int
	MeanConfidence  float64
	Contributions   []Contribution
}

const breakdownTextLimit = 80

// Compute aggregates classification results into one sentiment value:
// the arithmetic mean of signed scores, clamped to [-1, 1]. Confidence
// already encodes each item's magnitude, so items carry equal weight.
func Compute(symbol string, results []classify.Result) (Aggregate, error) {
	if len(results) == 0 {
		return Aggregate{}, ErrInsufficientSamples
	}

	total := decimal.Zero
	confidenceTotal := decimal.Zero
	breakdown := make(map[string]int, 2)
	contributions := make([]Contribution, 0, len(results))
	bullish, bearish := 0, 0

	for _, res := range results {
		signed := res.SignedScore()
		total = total.Add(decimal.NewFromFloat(signed))
		confidenceTotal = confidenceTotal.Add(decimal.NewFromFloat(res.Confidence))
		breakdown[res.Item.SourceID]++

		if res.Label == classify.Negative {
			bearish++
		} else {
			bullish++
		}

		contributions = append(contributions, Contribution{
			SourceID:   res.Item.SourceID,
			Text:       ellipsize(res.Item.RawText, breakdownTextLimit),
			Label:      res.Label,
			Confidence: res.Confidence,
			Signed:     signed,
		})
	}

	count := decimal.NewFromInt(int64(len(results)))
	mean := total.Div(count)

	// Guards against classifier contract drift upstream.
	mean = clampUnit(mean)

	return Aggregate{
		Symbol:          symbol,
		Value:           mean.InexactFloat64(),
		SampleCount:     len(results),
		SourceBreakdown: breakdown,
		BullishCount:    bullish,
		BearishCount:    bearish,
		MeanConfidence:  confidenceTotal.Div(count).InexactFloat64(),
		Contributions:   contributions,
	}, nil
}

var (
	unitUpper = decimal.NewFromInt(1)
	unitLower = decimal.NewFromInt(-1)
)

func clampUnit(d decimal.Decimal) decimal.Decimal {
	if d.GreaterThan(unitUpper) {
		return unitUpper
	}
	if d.LessThan(unitLower) {
		return unitLower
	}
	return d
}

func ellipsize(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
