// FILE: config.go
// Package main – Runtime configuration: a closed, versioned BotConfig
// schema loaded once per worker from the StateStore, plus the
// process-level InfraConfig loaded from the environment.
//
// Re-expresses trading_bot_engine/models/__init__.py's BotConfig (and
// nested pydantic models) as plain Go structs with enumerated option
// sets, per spec.md §9 ("Dynamic config objects → explicit schemas").
package main

import "fmt"

// TimeframeConfig controls candle bucketing and loop cadence (spec.md §3, §4.2).
type TimeframeConfig struct {
	CandleSize     string // "1m","5m","15m","30m","1h","4h","1d"
	UpdateInterval int    // seconds between loop iterations; default 5
}

// ATRConfig controls the ATRCalculator and entry/target/stop multipliers (spec.md §4.3).
type ATRConfig struct {
	Period             int
	EntryMultiplier    float64
	TargetMultiplier   float64
	StopLossMultiplier float64
}

// PositionSizingLevel is one (atr_multiplier, budget_percentage) rung (spec.md §4.4).
type PositionSizingLevel struct {
	ATRMultiplier    float64
	BudgetPercentage float64
}

// BudgetConfig controls BudgetManager (spec.md §4.4).
type BudgetConfig struct {
	AllocatedAmount float64
	MaxPositionPct  float64
	SizingLevels    []PositionSizingLevel // must be sorted descending by ATRMultiplier
}

// TrailingStopConfig controls PositionManager.UpdateTrailingStop (spec.md §4.5).
type TrailingStopConfig struct {
	Enabled                    bool
	ActivationATRMultiplier    float64
	TrailDistanceATRMultiplier float64
}

// TradingConfig names the instrument and leverage (spec.md §3).
type TradingConfig struct {
	Symbol   string
	Mode     string // "ISOLATED" (glossary) — informational only at this layer
	Leverage int
}

// FeeConfig holds maker/taker fee rates, both bounded to [0, 0.01] (spec.md §3).
type FeeConfig struct {
	Maker float64
	Taker float64
}

// BotConfig is the closed schema loaded once at startup (spec.md §3, §4.7 step 1).
type BotConfig struct {
	BotID     string
	UserID    string
	Exchange  string // registry key: "bitunix" | "bybit"
	Trading   TradingConfig
	Timeframe TimeframeConfig
	ATR       ATRConfig
	Budget    BudgetConfig
	Exit      TrailingStopConfig
	Fees      FeeConfig
}

// defaultUpdateIntervalSeconds is the loop cadence used when a stored
// config omits timeframe.update_interval, mirroring the pydantic default
// update_interval: int = 5 (original_source/trading_bot_engine/models/__init__.py:90).
const defaultUpdateIntervalSeconds = 5

// applyDefaults fills zero-valued optional fields with their documented
// defaults. Callers that load BotConfig from storage must call this
// before Validate, since a persisted document that predates a field (or
// simply omits it) decodes that field to Go's zero value rather than to
// the schema's default.
func (c *BotConfig) applyDefaults() {
	if c.Timeframe.UpdateInterval <= 0 {
		c.Timeframe.UpdateInterval = defaultUpdateIntervalSeconds
	}
}

// Validate enforces the invariants named in spec.md §3's BotConfig row.
// Callers that need sorted sizing levels should sort them before
// constructing the BotConfig; Validate only checks, never reorders.
func (c BotConfig) Validate() error {
	if c.BotID == "" {
		return fmt.Errorf("%w: empty bot_id", ErrConfigInvalid)
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: empty user_id", ErrConfigInvalid)
	}
	if c.Trading.Symbol == "" {
		return fmt.Errorf("%w: empty trading.symbol", ErrConfigInvalid)
	}
	if c.Trading.Leverage < 1 {
		return fmt.Errorf("%w: leverage must be >= 1, got %d", ErrConfigInvalid, c.Trading.Leverage)
	}
	if c.Fees.Maker < 0 || c.Fees.Maker > 0.01 || c.Fees.Taker < 0 || c.Fees.Taker > 0.01 {
		return fmt.Errorf("%w: fees must be within [0, 0.01]", ErrConfigInvalid)
	}
	for i := 1; i < len(c.Budget.SizingLevels); i++ {
		if c.Budget.SizingLevels[i].ATRMultiplier > c.Budget.SizingLevels[i-1].ATRMultiplier {
			return fmt.Errorf("%w: sizing levels must be sorted descending by atr_multiplier", ErrConfigInvalid)
		}
	}
	if _, ok := gatewayRegistry[c.Exchange]; !ok {
		return fmt.Errorf("%w: unsupported exchange %q", ErrConfigInvalid, c.Exchange)
	}
	return nil
}

// timeframeSeconds maps a candle-size label to its duration, defaulting
// unknown labels to 900s (spec.md §4.2).
func timeframeSeconds(label string) int {
	switch label {
	case "1m":
		return 60
	case "5m":
		return 300
	case "15m":
		return 900
	case "30m":
		return 1800
	case "1h":
		return 3600
	case "4h":
		return 14400
	case "1d":
		return 86400
	default:
		return 900
	}
}

// InfraConfig holds process-level knobs that, per spec.md §6, come from
// the environment rather than the StateStore: store DSN, notifier
// transport, and the metrics port.
type InfraConfig struct {
	StoreDSN       string
	NotifierKind   string // "webhook" | "telegram" | "" (disabled)
	WebhookURL     string
	TelegramToken  string
	TelegramChatID int64
	MetricsPort    int
}

// loadInfraConfigFromEnv reads InfraConfig from the process environment,
// after loadBotEnv() has best-effort hydrated it from .env.
func loadInfraConfigFromEnv() InfraConfig {
	return InfraConfig{
		StoreDSN:       getEnv("STORE_DSN", "bot:bot@tcp(127.0.0.1:3306)/trading_platform?parseTime=true"),
		NotifierKind:   getEnv("NOTIFIER_KIND", "webhook"),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: int64(getEnvInt("TELEGRAM_CHAT_ID", 0)),
		MetricsPort:    getEnvInt("PORT", 8080),
	}
}
