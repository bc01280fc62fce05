// FILE: store.go
// Package main – StateStore capability (spec.md §6).
//
// Grounded on trading_bot_engine/db/mongodb_client.py: get_bot,
// update_bot_status, send_heartbeat, update_performance,
// get_exchange_connection, save_position/update_position/close_position,
// get_open_positions, save_trade, get_bot_trades, get_daily_stats. The
// Mongo document shapes are re-expressed as Go structs backing a
// relational schema in store_gorm.go (SPEC_FULL.md §4) — StateStore
// itself stays storage-agnostic so a fake can back it in tests, the way
// broker_paper.go stands in for a real Broker.
package main

import (
	"context"
	"time"
)

// ConnectionStatus mirrors the exchange_connections.status column
// consulted by BotWorker startup (spec.md §4.7 step 2).
type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "ACTIVE"
	ConnectionPending ConnectionStatus = "PENDING"
	ConnectionRevoked ConnectionStatus = "REVOKED"
)

// ExchangeConnection is the credential record gating startup.
type ExchangeConnection struct {
	UserID    string
	Exchange  string
	APIKey    string
	APISecret string
	Status    ConnectionStatus
}

// StateStore is the persistence capability BotWorker/Strategy depend on.
// Every method takes a context so a slow store cannot block shutdown
// indefinitely (spec.md §7.3 StoreUnavailable is recovered locally, not
// fatal, except at the startup reads that must succeed).
type StateStore interface {
	GetBot(ctx context.Context, botID string) (*BotConfig, error)
	GetStatus(ctx context.Context, botID string) (BotStatus, error)
	UpdateStatus(ctx context.Context, botID string, status BotStatus, errMsg string) error
	SendHeartbeat(ctx context.Context, botID string, now time.Time) error
	UpdatePerformance(ctx context.Context, botID string, snap PerformanceSnapshot) error

	GetExchangeConnection(ctx context.Context, userID, exchange string) (*ExchangeConnection, error)

	SavePosition(ctx context.Context, pos *Position) (string, error)
	UpdatePosition(ctx context.Context, pos *Position) error
	ClosePosition(ctx context.Context, pos *Position, trade *Trade) error
	GetOpenPositions(ctx context.Context, botID string) ([]*Position, error)

	SaveTrade(ctx context.Context, trade *Trade) error
	GetBotTrades(ctx context.Context, botID string, since time.Time) ([]*Trade, error)
	GetDailyStats(ctx context.Context, botID string, dayStart time.Time) (DailyStats, error)
}
