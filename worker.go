// FILE: worker.go
// Package main – BotWorker: the per-bot control loop (spec.md §4.7).
//
// Grounded on trading_bot_engine/bot_runner.py's BotRunner: load_config,
// initialize_exchange, initialize_strategy, run (the main loop with its
// heartbeat/performance/config-check cadences), send_heartbeat,
// update_performance, log_status, check_config_updates, shutdown.
// Wired the way the teacher's main.go assembles Broker+Trader, but with
// signal.NotifyContext-driven cancellation (main.go) rather than a
// should_stop flag set from a signal handler — context replaces the flag
// for the I/O paths, and config-driven remote STOPPED replaces it for
// the polled "stopped by operator" case the source also has.
package main

import (
	"context"
	"fmt"
	"log"
	"time"
)

// defaultConfigCheckInterval is how often runIteration polls the store
// for a remote STOPPED status. bot_runner.py pins this as a BotRunner
// instance constant (self.config_check_interval = 60), not a field of
// the persisted config — it is never part of BotConfig here either.
const defaultConfigCheckInterval = 60 * time.Second

// BotWorker owns one bot's lifecycle: CREATED -> RUNNING -> STOPPED,
// with ERROR reachable from any non-terminal state (spec.md §4.7).
// PAUSED is part of the state machine's vocabulary but nothing in this
// control loop transitions into it (spec.md §9 — reserved, unused).
type BotWorker struct {
	botID    string
	store    StateStore
	notifier Notifier
	log      *log.Logger

	cfg      BotConfig
	gateway  ExchangeGateway
	strategy *Strategy

	status             BotStatus
	totalRealizedPnL   float64
	tradesToday        int
	lastConfigCheck    time.Time
}

func newBotWorker(botID string, store StateStore, notifier Notifier) *BotWorker {
	return &BotWorker{
		botID:    botID,
		store:    store,
		notifier: notifier,
		log:      log.New(log.Writer(), fmt.Sprintf("[bot:%s] ", botID), log.LstdFlags),
		status:   BotCreated,
	}
}

// Run executes the full lifecycle: startup, main loop until ctx is
// canceled or the store reports remote STOPPED, then shutdown. It
// returns a non-nil error only on startup failure (spec.md §6 exit
// codes); loop-body errors are recovered internally per spec.md §7.
func (w *BotWorker) Run(ctx context.Context) error {
	if err := w.startup(ctx); err != nil {
		w.log.Printf("startup failed: %v", err)
		_ = w.store.UpdateStatus(context.Background(), w.botID, BotError, err.Error())
		return err
	}

	w.loop(ctx)
	w.shutdown()
	return nil
}

// startup performs the four steps named in spec.md §4.7: load config,
// resolve the ACTIVE exchange connection, build+validate the gateway,
// construct the strategy (caching the lot-size filter).
func (w *BotWorker) startup(ctx context.Context) error {
	w.log.Printf("loading config for bot %s", w.botID)
	cfg, err := w.store.GetBot(ctx, w.botID)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	w.cfg = *cfg

	conn, err := w.store.GetExchangeConnection(ctx, cfg.UserID, cfg.Exchange)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialMissing, err)
	}
	if conn.Status != ConnectionActive {
		return fmt.Errorf("%w: exchange connection status is %s", ErrCredentialMissing, conn.Status)
	}

	gw, err := buildGateway(ctx, cfg.Exchange, cfg.Trading.Symbol, conn.APIKey, conn.APISecret)
	if err != nil {
		return fmt.Errorf("initialize exchange: %w", err)
	}
	w.gateway = gw
	if streamer, ok := gw.(interface {
		StartTickerStream(ctx context.Context, symbol string)
	}); ok {
		streamer.StartTickerStream(ctx, cfg.Trading.Symbol)
	}

	strat, err := newStrategy(ctx, w.cfg, gw, w.log)
	if err != nil {
		return fmt.Errorf("initialize strategy: %w", err)
	}
	w.strategy = strat

	w.reconcilePositions(ctx)

	if err := w.store.UpdateStatus(ctx, w.botID, BotRunning, ""); err != nil {
		w.log.Printf("update status to RUNNING: %v", err)
	}
	w.status = BotRunning
	if err := w.notifier.Notify(ctx, EventBotStarted, map[string]any{"bot_id": w.botID}); err != nil {
		w.log.Printf("notify started: %v", err)
	}
	w.log.Printf("entering main loop")
	return nil
}

// reconcilePositions is the best-effort startup reconciliation read
// supplemented from the original (SPEC_FULL.md §5): it only logs a
// mismatch, never adjusts PositionManager/store state.
func (w *BotWorker) reconcilePositions(ctx context.Context) {
	venuePositions, err := w.gateway.GetOpenPositions(ctx, w.cfg.Trading.Symbol)
	if err != nil {
		w.log.Printf("reconciliation: get open positions: %v", err)
		return
	}
	stored, err := w.store.GetOpenPositions(ctx, w.botID)
	if err != nil {
		w.log.Printf("reconciliation: get stored positions: %v", err)
		return
	}
	if len(venuePositions) != len(stored) {
		w.log.Printf("reconciliation mismatch: venue reports %d open positions, store has %d", len(venuePositions), len(stored))
	}
}

func (w *BotWorker) loop(ctx context.Context) {
	iteration := 0
	w.lastConfigCheck = time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		iteration++
		if w.runIteration(ctx, iteration) {
			return // remote STOPPED observed
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(w.cfg.Timeframe.UpdateInterval) * time.Second):
		}
	}
}

// runIteration wraps runIterationBody in the broad recover() that
// bot_runner.py.run() gets from its `except Exception as e` around the
// whole loop body (original_source/trading_bot_engine/bot_runner.py:213-216).
// A panic anywhere in strategy/position/budget logic is logged, reported
// as BOT_ERROR, and swallowed after a 10s backoff — per spec.md §4.7 and
// §7 kind 6, repeated failures never terminate the bot on their own.
func (w *BotWorker) runIteration(ctx context.Context, iteration int) (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Printf("recovered panic in iteration %d: %v", iteration, r)
			if err := w.notifier.Notify(ctx, EventBotError, map[string]any{
				"bot_id": w.botID, "error": fmt.Sprintf("%v", r),
			}); err != nil {
				w.log.Printf("notify bot error: %v", err)
			}
			time.Sleep(10 * time.Second)
			stopped = false
		}
	}()
	return w.runIterationBody(ctx, iteration)
}

// runIterationBody executes one pass of the loop body (spec.md §4.7) and
// reports whether the bot was stopped remotely. Errors from any single
// step are logged and recovered, matching bot_runner.py's broad
// try/except around the loop body.
func (w *BotWorker) runIterationBody(ctx context.Context, iteration int) bool {
	price, ok, err := w.gateway.GetTicker(ctx, w.cfg.Trading.Symbol)
	if err != nil {
		w.log.Printf("get ticker: %v", err)
		time.Sleep(10 * time.Second)
		return false
	}
	if !ok {
		w.log.Printf("failed to get ticker, retrying")
		time.Sleep(5 * time.Second)
		return false
	}

	now := time.Now().UTC()
	w.strategy.Update(price, now)

	if sig := w.strategy.CheckEntry(price); sig != nil {
		mtxDecisions.WithLabelValues("buy").Inc()
		if pos := w.strategy.ExecuteEntry(ctx, sig, now); pos != nil {
			mtxOrders.WithLabelValues("buy").Inc()
			id, err := w.store.SavePosition(ctx, pos)
			if err != nil {
				w.log.Printf("save position: %v", err)
			} else {
				pos.ID = id
			}
			if err := w.notifier.Notify(ctx, EventPositionOpened, positionPayload(pos)); err != nil {
				w.log.Printf("notify position opened: %v", err)
			}
		}
	} else {
		mtxDecisions.WithLabelValues("none").Inc()
	}

	for _, exit := range w.strategy.CheckExits(price) {
		trade := w.strategy.ExecuteExit(ctx, exit.pos, price, exit.reason, now)
		if trade == nil {
			continue
		}
		mtxOrders.WithLabelValues("sell").Inc()
		mtxExitReasons.WithLabelValues(string(exit.reason)).Inc()
		if trade.NetPnL >= 0 {
			mtxTrades.WithLabelValues("win").Inc()
		} else {
			mtxTrades.WithLabelValues("loss").Inc()
		}

		if err := w.store.ClosePosition(ctx, exit.pos, trade); err != nil {
			w.log.Printf("close position: %v", err)
		}
		if err := w.store.SaveTrade(ctx, trade); err != nil {
			w.log.Printf("save trade: %v", err)
		}

		w.totalRealizedPnL += trade.NetPnL
		w.tradesToday++
		mtxPnL.WithLabelValues("realized").Set(w.totalRealizedPnL)

		if err := w.notifier.Notify(ctx, EventPositionClosed, tradePayload(trade)); err != nil {
			w.log.Printf("notify position closed: %v", err)
		}
	}

	w.strategy.UpdateTrailingStops(price)
	mtxOpenPositions.Set(float64(len(w.strategy.pos.Open())))
	mtxPnL.WithLabelValues("unrealized").Set(w.strategy.UnrealizedPnL(price))

	if iteration%6 == 0 {
		w.sendHeartbeat(ctx)
	}
	if iteration%60 == 0 {
		w.updatePerformance(ctx, price)
		w.logStatus(price)
		w.probeBalance(ctx)
	}

	if time.Since(w.lastConfigCheck) >= defaultConfigCheckInterval {
		stopped := w.checkConfigUpdates(ctx)
		w.lastConfigCheck = time.Now()
		if stopped {
			return true
		}
	}

	return false
}

func (w *BotWorker) sendHeartbeat(ctx context.Context) {
	if err := w.store.SendHeartbeat(ctx, w.botID, time.Now().UTC()); err != nil {
		w.log.Printf("send heartbeat: %v", err)
		return
	}
	mtxHeartbeats.Inc()
}

func (w *BotWorker) updatePerformance(ctx context.Context, price float64) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	stats, err := w.store.GetDailyStats(ctx, w.botID, dayStart)
	if err != nil {
		w.log.Printf("get daily stats: %v", err)
		return
	}
	snap := PerformanceSnapshot{
		TotalRealizedPnL: w.totalRealizedPnL,
		UnrealizedPnL:    w.strategy.UnrealizedPnL(price),
		TradesToday:      stats.TradesCount,
		WinRate:          stats.WinRate,
	}
	if err := w.store.UpdatePerformance(ctx, w.botID, snap); err != nil {
		w.log.Printf("update performance: %v", err)
	}
}

func (w *BotWorker) logStatus(price float64) {
	openCount := len(w.strategy.pos.Open())
	w.log.Printf("status: price=%.2f open=%d realized_pnl=%.2f unrealized_pnl=%.2f",
		price, openCount, w.totalRealizedPnL, w.strategy.UnrealizedPnL(price))
}

// probeBalance surfaces GetAccountBalance as a diagnostic gauge only
// (SPEC_FULL.md §5) — never used for sizing.
func (w *BotWorker) probeBalance(ctx context.Context) {
	balance, ok, err := w.gateway.GetAccountBalance(ctx)
	if err != nil || !ok {
		return
	}
	mtxAccountBalance.Set(balance)
}

// checkConfigUpdates polls the store for a remote STOPPED status
// (spec.md §4.7). Errors are ignored, matching bot_runner.py's
// no-op-on-missing-doc handling.
func (w *BotWorker) checkConfigUpdates(ctx context.Context) bool {
	status, err := w.store.GetStatus(ctx, w.botID)
	if err != nil {
		return false
	}
	if status == BotStopped {
		w.log.Printf("bot stopped remotely")
		return true
	}
	return false
}

func (w *BotWorker) shutdown() {
	w.log.Printf("shutting down")
	if err := w.store.UpdateStatus(context.Background(), w.botID, BotStopped, ""); err != nil {
		w.log.Printf("update status to STOPPED: %v", err)
	}
	if err := w.notifier.Notify(context.Background(), EventBotStopped, map[string]any{"bot_id": w.botID, "reason": "normal shutdown"}); err != nil {
		w.log.Printf("notify stopped: %v", err)
	}
	w.log.Printf("final realized pnl: %.2f", w.totalRealizedPnL)
	w.log.Printf("bot stopped")
}

func positionPayload(p *Position) map[string]any {
	return map[string]any{
		"id": p.ID, "symbol": p.Symbol, "side": p.Side,
		"entry_price": p.EntryPrice, "quantity": p.Quantity,
		"target_price": p.TargetPrice, "stop_loss": p.StopLoss,
	}
}

func tradePayload(t *Trade) map[string]any {
	return map[string]any{
		"symbol": t.Symbol, "side": t.Side, "entry_price": t.EntryPrice,
		"exit_price": t.ExitPrice, "quantity": t.Quantity, "pnl": t.PnL,
		"net_pnl": t.NetPnL, "exit_reason": t.ExitReason,
	}
}
