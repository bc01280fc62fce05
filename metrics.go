// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes the metrics BotWorker updates during operation:
//   • bot_orders_total{side}              – Count of orders placed
//   • bot_decisions_total{signal}          – Count of entry decisions (buy|none)
//   • bot_equity_usd{kind}                 – Realized/unrealized PnL gauges
//   • bot_trades_total{result}             – Trades by result (win|loss)
//   • bot_exit_reasons_total{reason}       – Exits split by reason
//   • bot_heartbeats_total                 – Count of heartbeats sent
//   • bot_account_balance_usd              – Venue-reported balance probe (SPEC_FULL.md §5)
//   • bot_open_positions                   – Current open-position count (gauge)
//
// Carried forward from the teacher's metrics.go (same registration-in-
// init(), same promhttp.Handler() wiring in main.go), relabeled for this
// domain instead of the ML/order-flow metrics it originally tracked.
package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders placed",
		},
		[]string{"side"},
	)

	mtxDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Entry decisions evaluated",
		},
		[]string{"signal"}, // buy|none
	)

	mtxPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_equity_usd",
			Help: "PnL in USD",
		},
		[]string{"kind"}, // realized|unrealized
	)

	mtxTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Closed trades by result",
		},
		[]string{"result"}, // win|loss
	)

	mtxExitReasons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_exit_reasons_total",
			Help: "Exits split by reason",
		},
		[]string{"reason"},
	)

	mtxHeartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_heartbeats_total",
			Help: "Heartbeats sent to the store",
		},
	)

	mtxAccountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_account_balance_usd",
			Help: "Venue-reported account balance, diagnostic only (not used for sizing)",
		},
	)

	mtxOpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Current count of open positions",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxOrders, mtxDecisions, mtxPnL, mtxTrades, mtxExitReasons)
	prometheus.MustRegister(mtxHeartbeats, mtxAccountBalance, mtxOpenPositions)
}
