package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesWithConstantTrueRange(n int, tr float64) []Candle {
	out := make([]Candle, n)
	price := 100.0
	for i := range out {
		out[i] = Candle{High: price + tr/2, Low: price - tr/2, Close: price}
	}
	return out
}

func TestATRCalculatorNotReadyBeforeEnoughCandles(t *testing.T) {
	a := newATRCalculator(5, 1.5)
	a.Update(candlesWithConstantTrueRange(3, 2.0), 100)
	assert.False(t, a.IsReady())
}

func TestATRCalculatorReadyAndTrigger(t *testing.T) {
	a := newATRCalculator(3, 1.5)
	a.Update(candlesWithConstantTrueRange(5, 2.0), 100)
	require.True(t, a.IsReady())
	assert.InDelta(t, 2.0, a.ATR(), 1e-9)
	assert.InDelta(t, 3.0, a.Trigger(1.5), 1e-9)
}

func TestATRCalculatorVolatilityBands(t *testing.T) {
	a := newATRCalculator(3, 1.5)

	// atr_pct > 3.0 -> 1.8x
	a.Update(candlesWithConstantTrueRange(5, 5.0), 100)
	assert.InDelta(t, 1.5*1.8, a.AdjustMultiplier(1.5), 1e-6)

	// atr_pct < 1.0 -> 0.75x
	a.Update(candlesWithConstantTrueRange(5, 0.1), 100)
	assert.InDelta(t, 1.5*0.75, a.AdjustMultiplier(1.5), 1e-6)
}
