// FILE: gateway_bitunix.go
// Package main – Bitunix ExchangeGateway implementation.
//
// REST signing is grounded on
// trading_bot_engine/exchanges/bitunix/core/client.py (_sign_request:
// HMAC-SHA256 over the sorted query string). The HTTP client shape
// (context-scoped requests, 10s timeout, JSON decode) follows the
// teacher's broker_hitbtc.go/broker_binance.go. GetTicker departs from
// a per-call REST round trip: a background goroutine keeps a websocket
// connection open (github.com/gorilla/websocket, as used by
// chkknight-nexus-bot/binance_provider.go and
// yohannesjx-sniperterminal/hub.go) and GetTicker reads the cached
// last-trade price, matching spec.md §6's get_ticker(symbol) -> price|null
// contract while giving the gateway a live stream instead of polling.
package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const bitunixTickerStaleAfter = 15 * time.Second

// BitunixGateway talks to the bitunix venue (spec.md §6).
type BitunixGateway struct {
	apiKey    string
	apiSecret string
	baseURL   string
	wsURL     string
	hc        *http.Client

	mu         sync.Mutex
	lastPrice  float64
	lastSeenAt time.Time
}

func newBitunixGateway(apiKey, apiSecret string) (ExchangeGateway, error) {
	g := &BitunixGateway{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   getEnv("BITUNIX_BASE_URL", "https://api.bitunix.com"),
		wsURL:     getEnv("BITUNIX_WS_URL", "wss://fapi.bitunix.com/public"),
		hc:        &http.Client{Timeout: 10 * time.Second},
	}
	return g, nil
}

func (g *BitunixGateway) Name() string { return "bitunix" }

// StartTickerStream runs the websocket reader until ctx is canceled.
// BotWorker starts this once at startup alongside the gateway it built
// (spec.md §4.7 step 3); it is safe to call more than once only because
// reconnects replace the old connection — callers should start it once.
func (g *BitunixGateway) StartTickerStream(ctx context.Context, symbol string) {
	go g.runTickerStream(ctx, symbol)
}

func (g *BitunixGateway) runTickerStream(ctx context.Context, symbol string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.wsURL, nil)
		if err != nil {
			time.Sleep(2 * time.Second)
			continue
		}
		sub := map[string]any{"op": "subscribe", "args": []string{"ticker:" + symbol}}
		if b, err := json.Marshal(sub); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
		g.readLoop(ctx, conn)
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func (g *BitunixGateway) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var payload struct {
			Data struct {
				Price string `json:"lastPrice"`
			} `json:"data"`
		}
		if err := json.Unmarshal(msg, &payload); err != nil {
			continue
		}
		price, err := strconv.ParseFloat(payload.Data.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		g.mu.Lock()
		g.lastPrice = price
		g.lastSeenAt = time.Now()
		g.mu.Unlock()
	}
}

// GetTicker returns the cached last-trade price. A missing or stale
// cache entry falls back to a single REST poll (used at startup before
// the stream has produced its first tick), returning (0, false, nil) if
// that poll also comes up empty — a transient failure, not an error.
func (g *BitunixGateway) GetTicker(ctx context.Context, symbol string) (float64, bool, error) {
	g.mu.Lock()
	price, seenAt := g.lastPrice, g.lastSeenAt
	g.mu.Unlock()

	if price > 0 && time.Since(seenAt) < bitunixTickerStaleAfter {
		return price, true, nil
	}

	var resp struct {
		Price string `json:"price"`
	}
	if err := g.get(ctx, "/api/v1/ticker", url.Values{"symbol": {symbol}}, false, &resp); err != nil {
		return 0, false, nil
	}
	p, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil || p <= 0 {
		return 0, false, nil
	}
	g.mu.Lock()
	g.lastPrice = p
	g.lastSeenAt = time.Now()
	g.mu.Unlock()
	return p, true, nil
}

func (g *BitunixGateway) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	var raw [][]any
	q := url.Values{"symbol": {symbol}, "interval": {interval}, "limit": {strconv.Itoa(limit)}}
	if err := g.get(ctx, "/api/v1/klines", q, false, &raw); err != nil {
		return nil, nil
	}
	out := make([]Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		out = append(out, Candle{
			Open:  toFloat(row[1]),
			High:  toFloat(row[2]),
			Low:   toFloat(row[3]),
			Close: toFloat(row[4]),
		})
	}
	return out, nil
}

func (g *BitunixGateway) PlaceOrder(ctx context.Context, symbol string, side Side, qty float64, tradeSide TradeSide, reduceOnly bool) (*PlacedOrder, error) {
	params := map[string]string{
		"symbol":   symbol,
		"side":     string(side),
		"quantity": strconv.FormatFloat(qty, 'f', -1, 64),
		"type":     "MARKET",
	}
	if tradeSide != "" {
		params["trade_side"] = string(tradeSide)
	}
	if reduceOnly {
		params["reduce_only"] = "true"
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/api/v1/order", params, &resp); err != nil || resp.ID == "" {
		return nil, nil // OrderRejected: nil result, no mutation (spec.md §7.4)
	}
	return &PlacedOrder{ID: resp.ID, Symbol: symbol, Side: side, Quantity: qty, CreateTime: time.Now().UTC()}, nil
}

func (g *BitunixGateway) GetOpenPositions(ctx context.Context, symbol string) ([]ExternalPosition, error) {
	var resp struct {
		Positions []struct {
			Symbol string  `json:"symbol"`
			Side   string  `json:"side"`
			Qty    float64 `json:"qty"`
			Entry  float64 `json:"entryPrice"`
		} `json:"positions"`
	}
	if err := g.get(ctx, "/api/v1/positions", url.Values{"symbol": {symbol}}, true, &resp); err != nil {
		return nil, nil
	}
	out := make([]ExternalPosition, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		out = append(out, ExternalPosition{Symbol: p.Symbol, Side: Side(p.Side), Quantity: p.Qty, Entry: p.Entry})
	}
	return out, nil
}

func (g *BitunixGateway) GetLotSizeFilter(ctx context.Context, symbol string) (LotSizeFilter, error) {
	def := LotSizeFilter{MinQty: 0.0001, MaxQty: 1000.0, StepSize: 0.0001}
	var resp struct {
		Filters []struct {
			FilterType string `json:"filterType"`
			MinQty     string `json:"minQty"`
			MaxQty     string `json:"maxQty"`
			StepSize   string `json:"stepSize"`
		} `json:"filters"`
	}
	if err := g.get(ctx, "/api/v1/exchangeInfo", url.Values{"symbol": {symbol}}, false, &resp); err != nil {
		return def, nil
	}
	for _, f := range resp.Filters {
		if f.FilterType != "LOT_SIZE" {
			continue
		}
		min, _ := strconv.ParseFloat(f.MinQty, 64)
		max, _ := strconv.ParseFloat(f.MaxQty, 64)
		step, _ := strconv.ParseFloat(f.StepSize, 64)
		if step > 0 {
			return LotSizeFilter{MinQty: min, MaxQty: max, StepSize: step}, nil
		}
	}
	return def, nil
}

func (g *BitunixGateway) GetAccountBalance(ctx context.Context) (float64, bool, error) {
	var resp struct {
		Balance float64 `json:"balance"`
	}
	if err := g.get(ctx, "/api/v1/account", nil, true, &resp); err != nil {
		return 0, false, nil
	}
	return resp.Balance, true, nil
}

// --- signing / transport ---

func (g *BitunixGateway) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params.Get(k))
	}
	mac := hmac.New(sha256.New, []byte(g.apiSecret))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *BitunixGateway) get(ctx context.Context, path string, params url.Values, sign bool, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if sign {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("signature", g.sign(params))
	}
	u := g.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-KEY", g.apiKey)
	return g.do(req, out)
}

func (g *BitunixGateway) post(ctx context.Context, path string, params map[string]string, out any) error {
	vals := url.Values{}
	for k, v := range params {
		vals.Set(k, v)
	}
	vals.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	vals.Set("signature", g.sign(vals))

	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", g.apiKey)
	req.Header.Set("X-API-SIGNATURE", vals.Get("signature"))
	return g.do(req, out)
}

func (g *BitunixGateway) do(req *http.Request, out any) error {
	resp, err := g.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bitunix %s: status %d", req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}
