// FILE: store_gorm.go
// Package main – gorm.io/gorm + gorm.io/driver/mysql StateStore
// implementation (SPEC_FULL.md §4).
//
// The Python source persists bots/positions/trades/exchange_connections
// as Mongo documents (db/mongodb_client.py); no Mongo driver exists in
// the example pack, so the same four collections are re-expressed as
// gorm-mapped tables, following ChoSanghyuk-blackholedex's
// internal/db row-struct + gorm.Open(mysql.Open(dsn)) style.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// botRow is the bots table row; BotConfig's nested structs are stored
// as a single JSON column (configJSON) rather than normalized out,
// mirroring the source's single embedded "config" sub-document.
type botRow struct {
	BotID        string `gorm:"primaryKey;column:bot_id"`
	UserID       string `gorm:"column:user_id"`
	Exchange     string `gorm:"column:exchange"`
	ConfigJSON   string `gorm:"column:config_json"`
	Status       string `gorm:"column:status"`
	LastError    string `gorm:"column:last_error"`
	LastHeartbeat *time.Time `gorm:"column:last_heartbeat"`
	RealizedPnL  float64 `gorm:"column:realized_pnl"`
	UnrealizedPnL float64 `gorm:"column:unrealized_pnl"`
	TradesToday  int     `gorm:"column:trades_today"`
	WinRate      float64 `gorm:"column:win_rate"`
	UpdatedAt    time.Time
}

func (botRow) TableName() string { return "bots" }

type exchangeConnectionRow struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"column:user_id;index"`
	Exchange  string `gorm:"column:exchange"`
	APIKey    string `gorm:"column:api_key"`
	APISecret string `gorm:"column:api_secret"`
	Status    string `gorm:"column:status"`
}

func (exchangeConnectionRow) TableName() string { return "exchange_connections" }

type positionRow struct {
	ID           string `gorm:"primaryKey;column:id"`
	BotID        string `gorm:"column:bot_id;index"`
	UserID       string `gorm:"column:user_id"`
	Symbol       string `gorm:"column:symbol"`
	Side         string `gorm:"column:side"`
	EntryPrice   float64 `gorm:"column:entry_price"`
	Quantity     float64 `gorm:"column:quantity"`
	TargetPrice  float64 `gorm:"column:target_price"`
	StopLoss     float64 `gorm:"column:stop_loss"`
	TrailingStop *float64 `gorm:"column:trailing_stop"`
	Status       string  `gorm:"column:status"`
	OpenedAt     time.Time `gorm:"column:opened_at"`
	ClosedAt     *time.Time `gorm:"column:closed_at"`
	ATRAtEntry   float64 `gorm:"column:atr_at_entry"`
	EntryFee     float64 `gorm:"column:entry_fee"`
}

func (positionRow) TableName() string { return "positions" }

type tradeRow struct {
	ID              uint   `gorm:"primaryKey"`
	BotID           string `gorm:"column:bot_id;index"`
	UserID          string `gorm:"column:user_id"`
	PositionID      string `gorm:"column:position_id"`
	Symbol          string `gorm:"column:symbol"`
	Side            string `gorm:"column:side"`
	EntryPrice      float64 `gorm:"column:entry_price"`
	ExitPrice       float64 `gorm:"column:exit_price"`
	Quantity        float64 `gorm:"column:quantity"`
	PnL             float64 `gorm:"column:pnl"`
	PnLPercentage   float64 `gorm:"column:pnl_percentage"`
	EntryFee        float64 `gorm:"column:entry_fee"`
	ExitFee         float64 `gorm:"column:exit_fee"`
	NetPnL          float64 `gorm:"column:net_pnl"`
	OpenedAt        time.Time `gorm:"column:opened_at"`
	ClosedAt        time.Time `gorm:"column:closed_at;index"`
	DurationMinutes int     `gorm:"column:duration_minutes"`
	ExitReason      string  `gorm:"column:exit_reason"`
}

func (tradeRow) TableName() string { return "trades" }

// GormStore implements StateStore against MySQL.
type GormStore struct {
	db *gorm.DB
}

// newGormStore opens the connection and migrates the four tables,
// following blackholedex's internal/db.NewConnection shape.
func newGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := db.AutoMigrate(&botRow{}, &exchangeConnectionRow{}, &positionRow{}, &tradeRow{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetBot(ctx context.Context, botID string) (*BotConfig, error) {
	var row botRow
	if err := s.db.WithContext(ctx).First(&row, "bot_id = ?", botID).Error; err != nil {
		return nil, fmt.Errorf("store: get bot %s: %w", botID, err)
	}
	var cfg BotConfig
	if err := json.Unmarshal([]byte(row.ConfigJSON), &cfg); err != nil {
		return nil, fmt.Errorf("store: decode bot config %s: %w", botID, err)
	}
	cfg.BotID = row.BotID
	cfg.UserID = row.UserID
	cfg.Exchange = row.Exchange
	cfg.applyDefaults()
	return &cfg, nil
}

func (s *GormStore) GetStatus(ctx context.Context, botID string) (BotStatus, error) {
	var row botRow
	if err := s.db.WithContext(ctx).Select("status").First(&row, "bot_id = ?", botID).Error; err != nil {
		return "", fmt.Errorf("store: get status %s: %w", botID, err)
	}
	return BotStatus(row.Status), nil
}

func (s *GormStore) UpdateStatus(ctx context.Context, botID string, status BotStatus, errMsg string) error {
	return s.db.WithContext(ctx).Model(&botRow{}).Where("bot_id = ?", botID).
		Updates(map[string]any{"status": string(status), "last_error": errMsg}).Error
}

func (s *GormStore) SendHeartbeat(ctx context.Context, botID string, now time.Time) error {
	return s.db.WithContext(ctx).Model(&botRow{}).Where("bot_id = ?", botID).
		Update("last_heartbeat", now).Error
}

func (s *GormStore) UpdatePerformance(ctx context.Context, botID string, snap PerformanceSnapshot) error {
	return s.db.WithContext(ctx).Model(&botRow{}).Where("bot_id = ?", botID).
		Updates(map[string]any{
			"realized_pnl":   snap.TotalRealizedPnL,
			"unrealized_pnl": snap.UnrealizedPnL,
			"trades_today":   snap.TradesToday,
			"win_rate":       snap.WinRate,
		}).Error
}

func (s *GormStore) GetExchangeConnection(ctx context.Context, userID, exchange string) (*ExchangeConnection, error) {
	var row exchangeConnectionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND exchange = ? AND status = ?", userID, exchange, string(ConnectionActive)).
		First(&row).Error
	if err != nil {
		return nil, fmt.Errorf("store: get exchange connection: %w", err)
	}
	return &ExchangeConnection{
		UserID: row.UserID, Exchange: row.Exchange,
		APIKey: row.APIKey, APISecret: row.APISecret,
		Status: ConnectionStatus(row.Status),
	}, nil
}

func (s *GormStore) SavePosition(ctx context.Context, pos *Position) (string, error) {
	row := positionFromDomain(pos)
	if row.ID == "" {
		row.ID = newID()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("store: save position: %w", err)
	}
	return row.ID, nil
}

func (s *GormStore) UpdatePosition(ctx context.Context, pos *Position) error {
	row := positionFromDomain(pos)
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *GormStore) ClosePosition(ctx context.Context, pos *Position, trade *Trade) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := positionFromDomain(pos)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		tr := tradeFromDomain(trade)
		return tx.Create(&tr).Error
	})
}

func (s *GormStore) GetOpenPositions(ctx context.Context, botID string) ([]*Position, error) {
	var rows []positionRow
	if err := s.db.WithContext(ctx).Where("bot_id = ? AND status = ?", botID, string(PositionOpen)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: get open positions: %w", err)
	}
	out := make([]*Position, len(rows))
	for i, r := range rows {
		out[i] = positionToDomain(r)
	}
	return out, nil
}

func (s *GormStore) SaveTrade(ctx context.Context, trade *Trade) error {
	row := tradeFromDomain(trade)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) GetBotTrades(ctx context.Context, botID string, since time.Time) ([]*Trade, error) {
	var rows []tradeRow
	if err := s.db.WithContext(ctx).Where("bot_id = ? AND closed_at >= ?", botID, since).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: get bot trades: %w", err)
	}
	out := make([]*Trade, len(rows))
	for i, r := range rows {
		out[i] = tradeToDomain(r)
	}
	return out, nil
}

// GetDailyStats mirrors mongodb_client.py.get_daily_stats: win_rate is
// wins/total over trades closed since dayStart, 0 when no trades.
func (s *GormStore) GetDailyStats(ctx context.Context, botID string, dayStart time.Time) (DailyStats, error) {
	var rows []tradeRow
	if err := s.db.WithContext(ctx).Where("bot_id = ? AND closed_at >= ?", botID, dayStart).Find(&rows).Error; err != nil {
		return DailyStats{}, fmt.Errorf("store: get daily stats: %w", err)
	}
	var total, wins float64
	var sum float64
	for _, r := range rows {
		total++
		sum += r.PnL
		if r.PnL > 0 {
			wins++
		}
	}
	stats := DailyStats{TradesCount: len(rows), TotalPnL: sum}
	if total > 0 {
		stats.WinRate = wins / total
	}
	return stats, nil
}

func positionFromDomain(p *Position) positionRow {
	return positionRow{
		ID: p.ID, BotID: p.BotID, UserID: p.UserID, Symbol: p.Symbol,
		Side: string(p.Side), EntryPrice: p.EntryPrice, Quantity: p.Quantity,
		TargetPrice: p.TargetPrice, StopLoss: p.StopLoss, TrailingStop: p.TrailingStop,
		Status: string(p.Status), OpenedAt: p.OpenedAt, ClosedAt: p.ClosedAt,
		ATRAtEntry: p.ATRAtEntry, EntryFee: p.EntryFee,
	}
}

func positionToDomain(r positionRow) *Position {
	return &Position{
		ID: r.ID, BotID: r.BotID, UserID: r.UserID, Symbol: r.Symbol,
		Side: Side(r.Side), EntryPrice: r.EntryPrice, Quantity: r.Quantity,
		TargetPrice: r.TargetPrice, StopLoss: r.StopLoss, TrailingStop: r.TrailingStop,
		Status: PositionStatus(r.Status), OpenedAt: r.OpenedAt, ClosedAt: r.ClosedAt,
		ATRAtEntry: r.ATRAtEntry, EntryFee: r.EntryFee,
	}
}

func tradeFromDomain(t *Trade) tradeRow {
	return tradeRow{
		BotID: t.BotID, UserID: t.UserID, PositionID: t.PositionID, Symbol: t.Symbol,
		Side: string(t.Side), EntryPrice: t.EntryPrice, ExitPrice: t.ExitPrice,
		Quantity: t.Quantity, PnL: t.PnL, PnLPercentage: t.PnLPercentage,
		EntryFee: t.EntryFee, ExitFee: t.ExitFee, NetPnL: t.NetPnL,
		OpenedAt: t.OpenedAt, ClosedAt: t.ClosedAt, DurationMinutes: t.DurationMinutes,
		ExitReason: string(t.ExitReason),
	}
}

func tradeToDomain(r tradeRow) *Trade {
	return &Trade{
		BotID: r.BotID, UserID: r.UserID, PositionID: r.PositionID, Symbol: r.Symbol,
		Side: Side(r.Side), EntryPrice: r.EntryPrice, ExitPrice: r.ExitPrice,
		Quantity: r.Quantity, PnL: r.PnL, PnLPercentage: r.PnLPercentage,
		EntryFee: r.EntryFee, ExitFee: r.ExitFee, NetPnL: r.NetPnL,
		OpenedAt: r.OpenedAt, ClosedAt: r.ClosedAt, DurationMinutes: r.DurationMinutes,
		ExitReason: ExitReason(r.ExitReason),
	}
}
