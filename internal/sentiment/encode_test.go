package sentiment

import (
	"errors"
	"math"
	"testing"
)

func TestEncodeRoundTripTolerance(t *testing.T) {
	for v := -1.0; v <= 1.0; v += 0.001 {
		encoded, err := Encode(v)
		if err != nil {
			t.Fatalf("encode(%v) failed: %v", v, err)
		}
		if got := Decode(encoded); math.Abs(got-v) > 0.005 {
			t.Fatalf("round-trip drift for %v: decoded %v", v, got)
		}
	}
}

func TestEncodeRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		value float64
		want  int64
	}{
		{0.125, 13},
		{-0.125, -13},
		{0.4, 40},
		{-0.4, -40},
		{0.995, 100},
		{-0.995, -100},
		{1.0, 100},
		{-1.0, -100},
		{0, 0},
	}

	for _, tc := range cases {
		got, err := Encode(tc.value)
		if err != nil {
			t.Fatalf("encode(%v) failed: %v", tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("encode(%v) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	if _, err := Encode(1.5); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("encode(1.5) must fail with ErrOutOfRange, not clamp; got %v", err)
	}
	if _, err := Encode(-1.5); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("encode(-1.5) must fail with ErrOutOfRange, got %v", err)
	}
}

func TestEncodeToleratesEdgeNoise(t *testing.T) {
	// Float noise a hair past the boundary is not a contract violation.
	if _, err := Encode(1.0 + 1e-12); err != nil {
		t.Fatalf("edge noise should be tolerated: %v", err)
	}
	if _, err := Encode(-1.0 - 1e-12); err != nil {
		t.Fatalf("edge noise should be tolerated: %v", err)
	}
}

func TestDecode(t *testing.T) {
	if got := Decode(40); got != 0.4 {
		t.Fatalf("decode(40) = %v, want 0.4", got)
	}
	if got := Decode(-100); got != -1.0 {
		t.Fatalf("decode(-100) = %v, want -1.0", got)
	}
	if got := Decode(0); got != 0.0 {
		t.Fatalf("decode(0) = %v, want 0", got)
	}
}
