package classify

import (
	"context"
	"strings"
)

var (
	bullishTerms = []string{
		"surge", "rally", "bullish", "moon", "pump", "gain", "breakout",
		"adoption", "approval", "approved", "record", "high", "upgrade",
		"partnership", "growth", "soar", "buy",
	}
	bearishTerms = []string{
		"crash", "dump", "bearish", "plunge", "drop", "loss", "hack",
		"exploit", "scam", "lawsuit", "ban", "banned", "selloff", "fear",
		"liquidation", "low", "sell",
	}
)

// Lexicon is a deterministic keyword classifier. It backs offline runs
// when no inference server is available and keeps pipeline tests free of
// model dependencies.
type Lexicon struct{}

// NewLexicon constructs the keyword classifier.
func NewLexicon() *Lexicon {
	return &Lexicon{}
}

// Classify counts bullish and bearish terms; the majority decides the
// label and the margin drives confidence.
func (l *Lexicon) Classify(ctx context.Context, text string) (Label, float64, error) {
	if err := checkInput(text); err != nil {
		return "", 0, err
	}

	lowered := strings.ToLower(text)
	net := 0
	for _, term := range bullishTerms {
		if strings.Contains(lowered, term) {
			net++
		}
	}
	for _, term := range bearishTerms {
		if strings.Contains(lowered, term) {
			net--
		}
	}

	label := Positive
	if net < 0 {
		label = Negative
	}

	margin := net
	if margin < 0 {
		margin = -margin
	}
	confidence := 0.5 + 0.1*float64(margin)
	if confidence > 0.95 {
		confidence = 0.95
	}

	return label, confidence, nil
}

var _ Classifier = (*Lexicon)(nil)
