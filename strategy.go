// FILE: strategy.go
// Package main – LongDipATR strategy (spec.md §4.6), the decision layer
// BotWorker drives once per loop iteration.
//
// Grounded on
// trading_bot_engine/exchanges/bitunix/strategies/long_dip_atr.py's
// update/check_entry_signal/execute_entry/check_exit_signals/
// execute_exit/update_trailing_stops, wiring CandleManager,
// ATRCalculator, BudgetManager, PositionManager and an ExchangeGateway
// the way the teacher's trader.go wires Broker + Decision into one loop
// body.
package main

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Strategy runs the long-dip-ATR entry/exit rules for one bot/symbol.
type Strategy struct {
	cfg     BotConfig
	gw      ExchangeGateway
	log     *log.Logger
	candles *CandleManager
	atrCalc *ATRCalculator
	budget  *BudgetManager
	pos     *PositionManager
	lotSize LotSizeFilter

	recentHigh    float64
	recentHighSet bool
}

// newStrategy constructs a Strategy and caches the lot-size filter, per
// spec.md §4.6 ("the lot-size filter is fetched once at construction").
func newStrategy(ctx context.Context, cfg BotConfig, gw ExchangeGateway, logger *log.Logger) (*Strategy, error) {
	lot, err := gw.GetLotSizeFilter(ctx, cfg.Trading.Symbol)
	if err != nil {
		return nil, fmt.Errorf("strategy: lot size filter: %w", err)
	}
	return &Strategy{
		cfg:     cfg,
		gw:      gw,
		log:     logger,
		candles: newCandleManager(cfg.Timeframe.CandleSize),
		atrCalc: newATRCalculator(cfg.ATR.Period, cfg.ATR.EntryMultiplier),
		budget:  newBudgetManager(cfg.Budget, cfg.Trading.Leverage),
		pos:     newPositionManager(cfg.BotID, cfg.UserID, cfg.Fees.Taker),
		lotSize: lot,
	}, nil
}

// Update folds one tick into the candle/ATR model and tracks the
// recent high used as the dip-trigger reference (spec.md §4.6). ATR is
// re-derived only on the tick that finalizes a candle (the candle
// manager starts its new bucket at that tick's timestamp).
func (s *Strategy) Update(price float64, now time.Time) {
	s.candles.Update(price, now)

	if s.candles.IsCandleReady() && s.candles.bucketStart.Equal(now) {
		lookback := s.candles.GetCompleted(s.cfg.ATR.Period + 1)
		s.atrCalc.Update(lookback, price)
	}

	if !s.recentHighSet || price > s.recentHigh {
		s.recentHigh = price
		s.recentHighSet = true
	}
}

// CheckEntry evaluates the dip-trigger rule and sizes a candidate entry,
// returning nil when no entry is warranted (spec.md §4.6).
func (s *Strategy) CheckEntry(price float64) *Signal {
	if !s.atrCalc.IsReady() || !s.recentHighSet {
		return nil
	}

	atrVal := s.atrCalc.ATR()
	atrPct := s.atrCalc.ATRPercent()

	adjustedMultiplier := s.atrCalc.AdjustMultiplier(s.cfg.ATR.EntryMultiplier)
	trigger := s.atrCalc.Trigger(adjustedMultiplier)

	priceDrop := s.recentHigh - price
	if priceDrop < trigger {
		return nil
	}

	atrDropSize := priceDrop / atrVal
	quantity, info := s.budget.Allocate(price, atrDropSize, atrPct)
	roundedQty := roundQuantity(quantity, s.lotSize)

	canOpen, msg := s.budget.CanOpen(info.ActualCost)
	if !canOpen {
		s.log.Printf("cannot open trade: %s", msg)
		return nil
	}

	return &Signal{
		Side:        SideBuy,
		Price:       price,
		Quantity:    roundedQty,
		Target:      price + atrVal*s.cfg.ATR.TargetMultiplier,
		StopLoss:    price - atrVal*s.cfg.ATR.StopLossMultiplier,
		ATR:         atrVal,
		ATRDropSize: atrDropSize,
	}
}

// ExecuteEntry places the opening order and, on success, registers the
// position and reserves budget (spec.md §4.6).
func (s *Strategy) ExecuteEntry(ctx context.Context, sig *Signal, now time.Time) *Position {
	order, err := s.gw.PlaceOrder(ctx, s.cfg.Trading.Symbol, SideBuy, sig.Quantity, TradeSideOpen, false)
	if err != nil {
		s.log.Printf("place entry order: %v", err)
		return nil
	}
	if order == nil {
		s.log.Printf("entry order rejected")
		return nil
	}

	fillPrice := sig.Price
	notional := sig.Quantity * fillPrice
	entryFee := notional * s.cfg.Fees.Taker

	position := s.pos.Add(s.cfg.Trading.Symbol, SideLong, fillPrice, sig.Quantity, sig.Target, sig.StopLoss, sig.ATR, entryFee, now)

	actualCost := (sig.Quantity * fillPrice) / float64(s.cfg.Trading.Leverage)
	s.budget.Reserve(actualCost)

	s.log.Printf("ENTRY: BUY %.6f @ %.2f target=%.2f stop=%.2f atr_drop=%.2fx",
		sig.Quantity, fillPrice, sig.Target, sig.StopLoss, sig.ATRDropSize)

	s.recentHigh = fillPrice
	s.recentHighSet = true

	return position
}

// exitCandidate pairs an open position with the reason it should close.
type exitCandidate struct {
	pos    *Position
	reason ExitReason
}

// CheckExits scans open positions against target/stop/trailing-stop
// thresholds (spec.md §4.6, evaluated in that exact order per position).
func (s *Strategy) CheckExits(price float64) []exitCandidate {
	var out []exitCandidate
	for _, p := range s.pos.Open() {
		if reason, ok := shouldExit(s.cfg, p, price); ok {
			out = append(out, exitCandidate{pos: p, reason: reason})
		}
	}
	return out
}

func shouldExit(cfg BotConfig, p *Position, price float64) (ExitReason, bool) {
	if price >= p.TargetPrice {
		return ExitTarget, true
	}
	if price <= p.StopLoss {
		return ExitStopLoss, true
	}
	if cfg.Exit.Enabled && p.TrailingStop != nil && price <= *p.TrailingStop {
		return ExitTrailingStop, true
	}
	return "", false
}

// ExecuteExit places the closing order and, on success, realizes the
// trade and releases budget (spec.md §4.6).
func (s *Strategy) ExecuteExit(ctx context.Context, pos *Position, price float64, reason ExitReason, now time.Time) *Trade {
	order, err := s.gw.PlaceOrder(ctx, s.cfg.Trading.Symbol, SideSell, pos.Quantity, TradeSideClose, true)
	if err != nil {
		s.log.Printf("place exit order: %v", err)
		return nil
	}
	if order == nil {
		s.log.Printf("exit order rejected")
		return nil
	}

	trade := s.pos.Close(pos, price, reason, now)

	actualCost := (pos.Quantity * pos.EntryPrice) / float64(s.cfg.Trading.Leverage)
	s.budget.Release(actualCost)

	s.log.Printf("EXIT (%s): SELL %.6f @ %.2f entry=%.2f pnl=%.2f",
		reason, pos.Quantity, price, pos.EntryPrice, trade.NetPnL)

	return trade
}

// UpdateTrailingStops ratchets every open position's trailing stop once
// ATR is defined and trailing stops are enabled (spec.md §4.6).
func (s *Strategy) UpdateTrailingStops(price float64) {
	if !s.cfg.Exit.Enabled || !s.atrCalc.IsReady() {
		return
	}
	atrVal := s.atrCalc.ATR()
	for _, p := range s.pos.Open() {
		s.pos.UpdateTrailingStop(p, price, atrVal, s.cfg.Exit.ActivationATRMultiplier, s.cfg.Exit.TrailDistanceATRMultiplier)
	}
}

// UnrealizedPnL reports the open book's mark-to-market PnL at price.
func (s *Strategy) UnrealizedPnL(price float64) float64 { return s.pos.UnrealizedPnL(price) }
