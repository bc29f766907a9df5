package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sentifi/internal/feeds"
)

var (
	// ErrEmptyInput rejects empty or whitespace-only text before it
	// reaches the underlying model.
	ErrEmptyInput = errors.New("classify: empty input text")

	// ErrContractViolation marks a model output outside the documented
	// label/confidence contract. The offending item is dropped from
	// aggregation; the run continues.
	ErrContractViolation = errors.New("classify: model output violates contract")
)

// Label is the binary polarity emitted by the classification capability.
type Label string

const (
	Positive Label = "POSITIVE"
	Negative Label = "NEGATIVE"
)

// Result pairs a text item with its classification. Derived 1:1 from a
// TextItem and never mutated afterwards.
type Result struct {
	Item       feeds.TextItem
	Label      Label
	Confidence float64
}

// SignedScore maps a result onto [-1, +1]: +confidence for POSITIVE,
// -confidence for NEGATIVE.
func (r Result) SignedScore() float64 {
	if r.Label == Negative {
		return -r.Confidence
	}
	return r.Confidence
}

// Classifier is the opaque classification capability consumed by the
// pipeline. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) (Label, float64, error)
}

func checkInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	return nil
}

// Validate enforces the classifier output contract on a raw model result.
func Validate(label Label, confidence float64) error {
	if label != Positive && label != Negative {
		return fmt.Errorf("%w: unknown label %q", ErrContractViolation, label)
	}
	if confidence < 0 || confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrContractViolation, confidence)
	}
	return nil
}
