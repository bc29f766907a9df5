package sentiment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrOutOfRange rejects encoder input outside [-1, 1]. The aggregator's
// clamp makes this unreachable in practice; the contract stays explicit
// so the bound can be probed independently.
var ErrOutOfRange = errors.New("sentiment: value outside [-1, 1]")

const (
	// EncodedMin and EncodedMax bound the fixed-point representation the
	// oracle contract stores.
	EncodedMin int64 = -100
	EncodedMax int64 = 100

	// rangeEpsilon tolerates float noise at the interval edges without
	// accepting genuinely out-of-contract input.
	rangeEpsilon = 1e-9
)

var encodeScale = decimal.NewFromInt(100)

// Encode maps a sentiment value in [-1, 1] to the contract's fixed-point
// integer: round half away from zero of value*100, clamped to [-100, 100].
func Encode(value float64) (int64, error) {
	if value > 1+rangeEpsilon || value < -1-rangeEpsilon {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, value)
	}

	// decimal.Round rounds half away from zero.
	encoded := decimal.NewFromFloat(value).Mul(encodeScale).Round(0).IntPart()
	if encoded > EncodedMax {
		encoded = EncodedMax
	}
	if encoded < EncodedMin {
		encoded = EncodedMin
	}
	return encoded, nil
}

// Decode maps a stored fixed-point score back to a float sentiment value.
// Exact inverse of Encode up to the 1/100 quantization step.
func Decode(encoded int64) float64 {
	return decimal.NewFromInt(encoded).Div(encodeScale).InexactFloat64()
}
