// FILE: types.go
// Package main – Core domain types shared across the strategy, worker,
// and capability adapters (gateway/store/notifier).
//
// Mirrors the shape of trading_bot_engine/models/__init__.py: enums for
// side/status/exit-reason, the Candle/Signal/Position/Trade records, and
// the closed BotConfig schema (no dynamic maps — see config.go).
package main

import "time"

// Side is the direction of a position or signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	SideBuy   Side = "BUY"
	SideSell  Side = "SELL"
)

// PositionStatus tracks a Position's lifecycle.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// BotStatus is the worker state machine (spec.md §4.7).
type BotStatus string

const (
	BotCreated BotStatus = "CREATED"
	BotRunning BotStatus = "RUNNING"
	BotStopped BotStatus = "STOPPED"
	BotPaused  BotStatus = "PAUSED"
	BotError   BotStatus = "ERROR"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTarget       ExitReason = "TARGET"
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitManual       ExitReason = "MANUAL"
	ExitBotStopped   ExitReason = "BOT_STOPPED"
)

// NotifyEvent enumerates the Notifier event types (spec.md §6).
type NotifyEvent string

const (
	EventBotStarted     NotifyEvent = "BOT_STARTED"
	EventBotStopped     NotifyEvent = "BOT_STOPPED"
	EventBotError       NotifyEvent = "BOT_ERROR"
	EventPositionOpened NotifyEvent = "POSITION_OPENED"
	EventPositionClosed NotifyEvent = "POSITION_CLOSED"
)

// Candle is one OHLCV bar. High/low invariants are enforced by CandleManager,
// never by the caller.
type Candle struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Signal is the ephemeral entry intent produced by Strategy.CheckEntry.
type Signal struct {
	Side         Side
	Price        float64
	Quantity     float64
	Target       float64
	StopLoss     float64
	ATR          float64
	ATRDropSize  float64
	Confidence   float64
}

// Position is an open (or just-closed) leveraged lot.
type Position struct {
	ID            string
	BotID         string
	UserID        string
	Symbol        string
	Side          Side
	EntryPrice    float64
	Quantity      float64
	TargetPrice   float64
	StopLoss      float64
	TrailingStop  *float64
	Status        PositionStatus
	OpenedAt      time.Time
	ClosedAt      *time.Time
	ATRAtEntry    float64
	EntryFee      float64
}

// Trade is the immutable record written once per position close.
type Trade struct {
	BotID           string
	UserID          string
	PositionID      string
	Symbol          string
	Side            Side
	EntryPrice      float64
	ExitPrice       float64
	Quantity        float64
	PnL             float64
	PnLPercentage   float64
	EntryFee        float64
	ExitFee         float64
	NetPnL          float64
	OpenedAt        time.Time
	ClosedAt        time.Time
	DurationMinutes int
	ExitReason      ExitReason
}

// LotSizeFilter is the exchange-supplied quantity constraint (spec.md GLOSSARY).
type LotSizeFilter struct {
	MinQty   float64
	MaxQty   float64
	StepSize float64
}

// PerformanceSnapshot is persisted every 60 iterations (spec.md §4.7).
type PerformanceSnapshot struct {
	TotalRealizedPnL   float64
	UnrealizedPnL      float64
	TradesToday        int
	WinRate            float64
}

// DailyStats backs StateStore.GetDailyStats (spec.md §6).
type DailyStats struct {
	TradesCount int
	TotalPnL    float64
	WinRate     float64
}
