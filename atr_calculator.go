// FILE: atr_calculator.go
// Package main – Volatility model consuming the candle history (spec.md §4.3).
//
// Grounded on trading_bot_engine/exchanges/bybit/core/atr_calculator.py:
// re-runs on each finalized candle, exposes ATR / ATR% / a volatility-
// adjusted entry multiplier, undefined until enough candles exist.
package main

// ATRCalculator tracks the current ATR/ATR% derived from the candle
// history, and the volatility-adjusted entry multiplier rule.
type ATRCalculator struct {
	period     int
	multiplier float64
	atr        float64
	atrPct     float64
	ready      bool
}

func newATRCalculator(period int, multiplier float64) *ATRCalculator {
	return &ATRCalculator{period: period, multiplier: multiplier}
}

// Update re-derives ATR/ATR% from candles (expects at least period+1
// candles, i.e. the last finalized candle plus period lookback) and the
// live price used only to express ATR as a percentage of price.
func (a *ATRCalculator) Update(candles []Candle, currentPrice float64) {
	v, ok := atr(candles, a.period)
	if !ok {
		a.atr = 0
		a.atrPct = 0
		a.ready = false
		return
	}
	a.atr = v
	a.ready = true
	if currentPrice > 0 {
		a.atrPct = (a.atr / currentPrice) * 100
	} else {
		a.atrPct = 0
	}
}

// IsReady reports whether ATR is defined.
func (a *ATRCalculator) IsReady() bool { return a.ready }

// ATR returns the current ATR value (only meaningful when IsReady).
func (a *ATRCalculator) ATR() float64 { return a.atr }

// ATRPercent returns ATR as a percentage of the price it was derived against.
func (a *ATRCalculator) ATRPercent() float64 { return a.atrPct }

// Trigger returns atr * m, or 0 if ATR is not ready.
func (a *ATRCalculator) Trigger(m float64) float64 {
	if !a.ready {
		return 0
	}
	return a.atr * m
}

// AdjustMultiplier scales base by the volatility bands in spec.md §4.3:
// atr_pct > 3.0 -> 1.8x, 2.0 < atr_pct <= 3.0 -> 1.3x, atr_pct < 1.0 -> 0.75x,
// otherwise unchanged.
func (a *ATRCalculator) AdjustMultiplier(base float64) float64 {
	if !a.ready {
		return base
	}
	switch {
	case a.atrPct > 3.0:
		return base * 1.8
	case a.atrPct > 2.0:
		return base * 1.3
	case a.atrPct < 1.0:
		return base * 0.75
	default:
		return base
	}
}
