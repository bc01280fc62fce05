// FILE: gateway.go
// Package main – ExchangeGateway capability and the venue registry
// (spec.md §6, §9 "Per-exchange polymorphism").
//
// The source keys parallel client/strategy modules by an exchange
// string (exchanges/bitunix/*, exchanges/bybit/*). Re-expressed as one
// capability interface with implementations selected by a registry
// keyed on BotConfig.Exchange — Strategy and BotWorker are oblivious to
// venue, the way Broker is venue-oblivious to Trader in the teacher
// repo (broker.go / broker_binance.go / broker_hitbtc.go).
package main

import (
	"context"
	"time"
)

// ExFilters is kept for parity with the teacher's venue-filter shape
// (broker.go); ExchangeGateway exposes the narrower LotSizeFilter the
// spec actually names.
type ExFilters struct {
	MinNotional float64
}

// PlacedOrder is a normalized view of a filled order.
type PlacedOrder struct {
	ID         string
	Symbol     string
	Side       Side
	Price      float64
	Quantity   float64
	CreateTime time.Time
}

// TradeSide distinguishes opening vs closing an order on venues that
// require it explicitly (spec.md §6).
type TradeSide string

const (
	TradeSideOpen  TradeSide = "OPEN"
	TradeSideClose TradeSide = "CLOSE"
)

// ExternalPosition is a venue-reported open position, used only for the
// startup reconciliation read (SPEC_FULL.md §5) — never mutated into
// PositionManager's state.
type ExternalPosition struct {
	Symbol   string
	Side     Side
	Quantity float64
	Entry    float64
}

// ExchangeGateway is the minimal surface Strategy/BotWorker need to
// talk to a venue (spec.md §6). GetTicker returns (0, false) — not an
// error — on transient failure, mirroring "null signals transient
// failure" in the spec; a non-nil error means the call itself could
// not be attempted (bad credentials, context canceled).
type ExchangeGateway interface {
	Name() string
	GetTicker(ctx context.Context, symbol string) (price float64, ok bool, err error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	PlaceOrder(ctx context.Context, symbol string, side Side, qty float64, tradeSide TradeSide, reduceOnly bool) (*PlacedOrder, error)
	GetOpenPositions(ctx context.Context, symbol string) ([]ExternalPosition, error)
	GetLotSizeFilter(ctx context.Context, symbol string) (LotSizeFilter, error)
	GetAccountBalance(ctx context.Context) (float64, bool, error)
}

// roundQuantity clamps qty to [min_qty, max_qty] after snapping to the
// nearest step, then rounds to step_size's decimal precision
// (spec.md §4.6 step 5, §8 boundary: round_quantity never returns
// outside [min_qty, max_qty]).
func roundQuantity(qty float64, f LotSizeFilter) float64 {
	if f.StepSize <= 0 {
		return qty
	}
	steps := roundHalfAwayFromZero(qty / f.StepSize)
	rounded := clamp(steps*f.StepSize, f.MinQty, f.MaxQty)
	return roundToStepPrecision(rounded, f.StepSize)
}

// gatewayFactory builds an ExchangeGateway for one venue from a pair of
// API credentials.
type gatewayFactory func(apiKey, apiSecret string) (ExchangeGateway, error)

// gatewayRegistry maps BotConfig.Exchange to a constructor, the way
// main.go's "switch strings.ToLower(getEnv("BROKER", ...))" selects a
// Broker — generalized into an actual registry so BotConfig.Validate
// can check exchange support without constructing anything.
var gatewayRegistry = map[string]gatewayFactory{
	"bitunix": newBitunixGateway,
	"bybit":   newBybitGateway,
}

// buildGateway constructs the configured venue's gateway and validates
// it by fetching the ticker once (spec.md §4.7 startup step 3).
func buildGateway(ctx context.Context, exchange, symbol, apiKey, apiSecret string) (ExchangeGateway, error) {
	factory, ok := gatewayRegistry[exchange]
	if !ok {
		return nil, &configInvalidf{msg: "unsupported exchange: " + exchange}
	}
	gw, err := factory(apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	price, ok2, err := gw.GetTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !ok2 || price <= 0 {
		return nil, &configInvalidf{msg: "ticker validation failed for " + symbol}
	}
	return gw, nil
}

type configInvalidf struct{ msg string }

func (e *configInvalidf) Error() string { return ErrConfigInvalid.Error() + ": " + e.msg }
func (e *configInvalidf) Unwrap() error { return ErrConfigInvalid }
