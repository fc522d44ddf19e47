package ioreg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalogCurveRoundTripLinear(t *testing.T) {
	for _, n := range []float64{0, 0.25, 0.5, 0.75, 1} {
		scaled := LinearCurve.Eval(n)
		back := LinearCurve.Inverse(scaled)
		assert.InDelta(t, n, back, 1e-6)
	}
}

func TestAnalogCurveRoundTripNonLinear(t *testing.T) {
	for _, curve := range []AnalogCurve{QuadraticCurve, CubicCurve} {
		for _, n := range []float64{0, 0.25, 0.5, 0.75, 1} {
			scaled := curve.Eval(n)
			back := curve.Inverse(scaled)
			assert.InDelta(t, n, back, 1e-6)
		}
	}
}

func TestAnalogCurveValid(t *testing.T) {
	assert.True(t, LinearCurve.Valid())
	assert.True(t, QuadraticCurve.Valid())
	assert.True(t, CubicCurve.Valid())
	assert.False(t, AnalogCurve{A: 1, B: 1, C: 1}.Valid())
}

func TestAnalogCurveEvalBoundary(t *testing.T) {
	for _, c := range []AnalogCurve{LinearCurve, QuadraticCurve, CubicCurve} {
		assert.InDelta(t, 0, c.Eval(0), 1e-12)
		assert.True(t, math.Abs(c.Eval(1)-1) < 1e-9)
	}
}
