package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrueRange(t *testing.T) {
	prev := Candle{Close: 100}
	c := Candle{High: 105, Low: 98}
	assert.Equal(t, 7.0, trueRange(c, prev))
}

func TestTrueRangeGapUp(t *testing.T) {
	prev := Candle{Close: 100}
	c := Candle{High: 112, Low: 108}
	assert.Equal(t, 12.0, trueRange(c, prev))
}

func TestATRUndefinedBeforeEnoughCandles(t *testing.T) {
	candles := []Candle{{Close: 100}, {Close: 101}}
	_, ok := atr(candles, 5)
	assert.False(t, ok)
}

func TestATRSimpleMean(t *testing.T) {
	candles := []Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}
	v, ok := atr(candles, 3)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)
}

func TestProfitLong(t *testing.T) {
	p := profit(100, 110, 2, 1.0, 0.001, true)
	// gross = (110-100)*2 = 20; exitFee = 110*2*0.001 = 0.22
	assert.InDelta(t, 20-1.0-0.22, p, 1e-9)
}

func TestProfitShort(t *testing.T) {
	p := profit(100, 90, 2, 1.0, 0.001, false)
	// gross = (100-90)*2 = 20; exitFee = 90*2*0.001 = 0.18
	assert.InDelta(t, 20-1.0-0.18, p, 1e-9)
}
