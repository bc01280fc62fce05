// FILE: position_manager.go
// Package main – In-memory registry of open positions (spec.md §4.5).
//
// Grounded on trading_bot_engine/exchanges/bybit/core/position_manager.py.
// Per spec.md §9's flagged behavior: close() sets Trade.PnL by adding the
// fees back onto net_pnl (pnl = net_pnl + entry_fee + exit_fee),
// reconstructing "gross" rather than computing it directly as
// (exit-entry)*qty. Kept as specified — do not silently fix.
package main

import "time"

// PositionManager owns the open-position set for one bot/strategy.
type PositionManager struct {
	botID   string
	userID  string
	feeRate float64
	open    []*Position
}

func newPositionManager(botID, userID string, feeRate float64) *PositionManager {
	return &PositionManager{botID: botID, userID: userID, feeRate: feeRate}
}

// Add constructs and registers a new OPEN position.
func (pm *PositionManager) Add(symbol string, side Side, entryPrice, quantity, targetPrice, stopLoss, atrAtEntry, entryFee float64, now time.Time) *Position {
	p := &Position{
		BotID:       pm.botID,
		UserID:      pm.userID,
		Symbol:      symbol,
		Side:        side,
		EntryPrice:  entryPrice,
		Quantity:    quantity,
		TargetPrice: targetPrice,
		StopLoss:    stopLoss,
		Status:      PositionOpen,
		OpenedAt:    now,
		ATRAtEntry:  atrAtEntry,
		EntryFee:    entryFee,
	}
	pm.open = append(pm.open, p)
	return p
}

func isLongSide(s Side) bool { return s == SideLong || s == SideBuy }

// Close realizes PnL for pos at exitPrice, removes it from the open set,
// and returns the Trade record. Duration is truncated to whole minutes.
func (pm *PositionManager) Close(pos *Position, exitPrice float64, reason ExitReason, now time.Time) *Trade {
	isLong := isLongSide(pos.Side)

	net := profit(pos.EntryPrice, exitPrice, pos.Quantity, pos.EntryFee, pm.feeRate, isLong)
	exitFee := exitPrice * pos.Quantity * pm.feeRate
	pnlPct := (net / (pos.EntryPrice * pos.Quantity)) * 100

	duration := int(now.Sub(pos.OpenedAt).Minutes())

	trade := &Trade{
		BotID:           pm.botID,
		UserID:          pm.userID,
		PositionID:      pos.ID,
		Symbol:          pos.Symbol,
		Side:            pos.Side,
		EntryPrice:      pos.EntryPrice,
		ExitPrice:       exitPrice,
		Quantity:        pos.Quantity,
		PnL:             net + pos.EntryFee + exitFee,
		PnLPercentage:   pnlPct,
		EntryFee:        pos.EntryFee,
		ExitFee:         exitFee,
		NetPnL:          net,
		OpenedAt:        pos.OpenedAt,
		ClosedAt:        now,
		DurationMinutes: duration,
		ExitReason:      reason,
	}

	pos.Status = PositionClosed
	closedAt := now
	pos.ClosedAt = &closedAt

	for i, p := range pm.open {
		if p == pos {
			pm.open = append(pm.open[:i], pm.open[i+1:]...)
			break
		}
	}

	return trade
}

// UpdateTrailingStop ratchets pos.TrailingStop toward the current price
// once profit clears the activation threshold; it never moves the stop
// backwards (spec.md §4.5, §8 invariant: non-decreasing for longs).
func (pm *PositionManager) UpdateTrailingStop(pos *Position, price, atr, activationMult, trailMult float64) {
	isLong := isLongSide(pos.Side)
	activation := atr * activationMult

	if isLong {
		profitSoFar := price - pos.EntryPrice
		if profitSoFar < activation {
			return
		}
		candidate := price - atr*trailMult
		if pos.TrailingStop == nil || candidate > *pos.TrailingStop {
			pos.TrailingStop = &candidate
		}
		return
	}

	profitSoFar := pos.EntryPrice - price
	if profitSoFar < activation {
		return
	}
	candidate := price + atr*trailMult
	if pos.TrailingStop == nil || candidate < *pos.TrailingStop {
		pos.TrailingStop = &candidate
	}
}

// Open returns a snapshot of the open positions. Callers that need to
// mutate/remove during iteration (e.g. the exit-evaluation pass in
// strategy.go) must iterate this snapshot and apply removals afterward —
// the source mutates the live list mid-iteration; we avoid that hazard
// (spec.md §9).
func (pm *PositionManager) Open() []*Position {
	out := make([]*Position, len(pm.open))
	copy(out, pm.open)
	return out
}

// UnrealizedPnL sums §4.1 profit across all open positions at price.
func (pm *PositionManager) UnrealizedPnL(price float64) float64 {
	var total float64
	for _, p := range pm.open {
		total += profit(p.EntryPrice, price, p.Quantity, p.EntryFee, pm.feeRate, isLongSide(p.Side))
	}
	return total
}
