// FILE: candle_manager.go
// Package main – Folds a tick stream into a bounded history of
// fixed-duration OHLC candles (spec.md §4.2).
//
// Grounded on trading_bot_engine/exchanges/bybit/core/candle_manager.py:
// buckets advance from the last observed tick's timestamp, not from
// wall-clock aligned boundaries (spec.md §4.2 "Note on drift" — kept as
// specified, not "fixed").
package main

import "time"

const candleRingCap = 100

// CandleManager holds a bounded ring of finalized candles plus the
// single in-progress candle and its bucket start time.
type CandleManager struct {
	timeframeSeconds int
	ring             []Candle
	current          *Candle
	bucketStart      time.Time
}

// newCandleManager builds a CandleManager for the given timeframe label
// (e.g. "15m"); unknown labels default to 900s (spec.md §4.2).
func newCandleManager(timeframeLabel string) *CandleManager {
	return &CandleManager{timeframeSeconds: timeframeSeconds(timeframeLabel)}
}

// Update folds one tick into the manager, finalizing the current candle
// and starting a fresh bucket when the timeframe has elapsed.
func (m *CandleManager) Update(price float64, now time.Time) {
	if m.current == nil {
		m.bucketStart = now
		m.current = &Candle{Open: price, High: price, Low: price, Close: price, Timestamp: now}
		return
	}

	if now.Sub(m.bucketStart) < time.Duration(m.timeframeSeconds)*time.Second {
		if price > m.current.High {
			m.current.High = price
		}
		if price < m.current.Low {
			m.current.Low = price
		}
		m.current.Close = price
		return
	}

	m.ring = append(m.ring, *m.current)
	if len(m.ring) > candleRingCap {
		m.ring = m.ring[len(m.ring)-candleRingCap:]
	}
	m.bucketStart = now
	m.current = &Candle{Open: price, High: price, Low: price, Close: price, Timestamp: now}
}

// IsCandleReady reports whether at least one finalized candle exists.
func (m *CandleManager) IsCandleReady() bool {
	return len(m.ring) > 0
}

// GetCompleted returns the last n finalized candles (fewer if unavailable).
func (m *CandleManager) GetCompleted(n int) []Candle {
	if n <= 0 || len(m.ring) == 0 {
		return nil
	}
	if n > len(m.ring) {
		n = len(m.ring)
	}
	out := make([]Candle, n)
	copy(out, m.ring[len(m.ring)-n:])
	return out
}
