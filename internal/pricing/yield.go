package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Fullness ratios offered for curtain (and lining) fabric.
var CurtainFullnessOptions = []float64{3.0, 2.8, 2.5, 2.0, 1.5, 1.2, 1.0}

// Fullness ratios offered for blackout fabric.
var BlackoutFullnessOptions = []float64{2.5, 2.0, 1.5, 1.2, 1.0}

// ComputeYield returns the linear meters of fabric needed to cover width at the
// given fullness: ceil(width*fullness/rollWidth) drops of (height + hem) each.
//
// A zero roll width means the fabric is "none" and yields 0. Non-positive
// geometry also yields 0 so partially filled lines compute to nothing.
func ComputeYield(width, height, fullness, rollWidth, hem float64) float64 {
	if !finite(height) || height <= 0 {
		return 0
	}
	drops := Drops(width, fullness, rollWidth)
	if drops == 0 {
		return 0
	}
	if !finite(hem) || hem < 0 {
		hem = 0
	}

	meters := decimal.NewFromInt(drops).Mul(decimal.NewFromFloat(height).Add(decimal.NewFromFloat(hem)))
	f, _ := meters.Float64()
	return f
}

// Drops returns the number of fabric strips needed to cover width.
func Drops(width, fullness, rollWidth float64) int64 {
	if !finite(width) || !finite(rollWidth) || width <= 0 || rollWidth <= 0 {
		return 0
	}
	if !finite(fullness) || fullness <= 0 {
		fullness = 1
	}

	// Decimal keeps exact multiples exact: 2.1*2.0/1.4 is 3 drops, not 4.
	return decimal.NewFromFloat(width).
		Mul(decimal.NewFromFloat(fullness)).
		Div(decimal.NewFromFloat(rollWidth)).
		Ceil().
		IntPart()
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	if !finite(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
