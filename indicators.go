// FILE: indicators.go
// Package main – Pure indicator functions over a candle window (spec.md §4.1).
//
// Mirrors trading_bot_engine/shared/indicators.py: TrueRange, ATR (simple
// arithmetic mean of the last N true ranges — no Wilder smoothing, per
// spec.md §4.1), and Profit. These are stateless and allocation-light,
// the way the teacher keeps indicators.go fast and called every tick.
package main

import "math"

// trueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(c, prev Candle) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev.Close), math.Abs(c.Low-prev.Close)))
}

// atr returns the simple mean of the last N true ranges, or (0, false) if
// fewer than N+1 candles are available (spec.md §4.1: atr undefined until
// |candles| >= N+1).
func atr(candles []Candle, n int) (float64, bool) {
	if n <= 0 || len(candles) < n+1 {
		return 0, false
	}
	var sum float64
	trs := len(candles) - 1
	start := trs - n
	for i := start; i < trs; i++ {
		sum += trueRange(candles[i+1], candles[i])
	}
	return sum / float64(n), true
}

// profit computes net PnL for a close at exitPrice: gross minus entry fee
// minus exit fee, where exit fee is exitPrice*qty*exitFeeRate (spec.md §4.1).
func profit(entryPrice, exitPrice, qty, entryFee, exitFeeRate float64, isLong bool) float64 {
	var gross float64
	if isLong {
		gross = (exitPrice - entryPrice) * qty
	} else {
		gross = (entryPrice - exitPrice) * qty
	}
	exitFee := exitPrice * qty * exitFeeRate
	return gross - entryFee - exitFee
}
