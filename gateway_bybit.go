// FILE: gateway_bybit.go
// Package main – Bybit ExchangeGateway implementation.
//
// Bybit v5 signing (HMAC-SHA256 over timestamp+apiKey+recvWindow+body,
// per Bybit's documented scheme) replaces bitunix's sorted-query-string
// signature; both gateways otherwise share the same transport shape
// (10s http.Client, context-scoped requests, JSON decode) grounded in
// the teacher's broker_hitbtc.go/broker_binance.go, and the same
// websocket-backed ticker cache grounded in SPEC_FULL.md §4's domain-
// stack decision to exercise github.com/gorilla/websocket per gateway.
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
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const bybitTickerStaleAfter = 15 * time.Second
const bybitRecvWindow = "5000"

// BybitGateway talks to the bybit venue (spec.md §6).
type BybitGateway struct {
	apiKey    string
	apiSecret string
	baseURL   string
	wsURL     string
	hc        *http.Client

	mu         sync.Mutex
	lastPrice  float64
	lastSeenAt time.Time
}

func newBybitGateway(apiKey, apiSecret string) (ExchangeGateway, error) {
	g := &BybitGateway{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   getEnv("BYBIT_BASE_URL", "https://api.bybit.com"),
		wsURL:     getEnv("BYBIT_WS_URL", "wss://stream.bybit.com/v5/public/linear"),
		hc:        &http.Client{Timeout: 10 * time.Second},
	}
	return g, nil
}

func (g *BybitGateway) Name() string { return "bybit" }

func (g *BybitGateway) StartTickerStream(ctx context.Context, symbol string) {
	go g.runTickerStream(ctx, symbol)
}

func (g *BybitGateway) runTickerStream(ctx context.Context, symbol string) {
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
		sub := map[string]any{"op": "subscribe", "args": []string{"tickers." + symbol}}
		if b, err := json.Marshal(sub); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
		g.readLoop(ctx, conn)
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func (g *BybitGateway) readLoop(ctx context.Context, conn *websocket.Conn) {
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
				LastPrice string `json:"lastPrice"`
			} `json:"data"`
		}
		if err := json.Unmarshal(msg, &payload); err != nil {
			continue
		}
		price, err := strconv.ParseFloat(payload.Data.LastPrice, 64)
		if err != nil || price <= 0 {
			continue
		}
		g.mu.Lock()
		g.lastPrice = price
		g.lastSeenAt = time.Now()
		g.mu.Unlock()
	}
}

func (g *BybitGateway) GetTicker(ctx context.Context, symbol string) (float64, bool, error) {
	g.mu.Lock()
	price, seenAt := g.lastPrice, g.lastSeenAt
	g.mu.Unlock()

	if price > 0 && time.Since(seenAt) < bybitTickerStaleAfter {
		return price, true, nil
	}

	var resp struct {
		Result struct {
			List []struct {
				LastPrice string `json:"lastPrice"`
			} `json:"list"`
		} `json:"result"`
	}
	q := url.Values{"category": {"linear"}, "symbol": {symbol}}
	if err := g.get(ctx, "/v5/market/tickers", q, false, &resp); err != nil || len(resp.Result.List) == 0 {
		return 0, false, nil
	}
	p, err := strconv.ParseFloat(resp.Result.List[0].LastPrice, 64)
	if err != nil || p <= 0 {
		return 0, false, nil
	}
	g.mu.Lock()
	g.lastPrice = p
	g.lastSeenAt = time.Now()
	g.mu.Unlock()
	return p, true, nil
}

func (g *BybitGateway) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	var resp struct {
		Result struct {
			List [][]string `json:"list"`
		} `json:"result"`
	}
	q := url.Values{
		"category": {"linear"},
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	if err := g.get(ctx, "/v5/market/kline", q, false, &resp); err != nil {
		return nil, nil
	}
	// Bybit returns newest-first; reverse into chronological order.
	rows := resp.Result.List
	out := make([]Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 5 {
			continue
		}
		out = append(out, Candle{
			Open:  parseF(row[1]),
			High:  parseF(row[2]),
			Low:   parseF(row[3]),
			Close: parseF(row[4]),
		})
	}
	return out, nil
}

func (g *BybitGateway) PlaceOrder(ctx context.Context, symbol string, side Side, qty float64, tradeSide TradeSide, reduceOnly bool) (*PlacedOrder, error) {
	body := map[string]any{
		"category":   "linear",
		"symbol":     symbol,
		"side":       bybitSide(side),
		"orderType":  "Market",
		"qty":        strconv.FormatFloat(qty, 'f', -1, 64),
		"reduceOnly": reduceOnly,
	}
	var resp struct {
		Result struct {
			OrderID string `json:"orderId"`
		} `json:"result"`
		RetCode int `json:"retCode"`
	}
	if err := g.post(ctx, "/v5/order/create", body, &resp); err != nil || resp.RetCode != 0 || resp.Result.OrderID == "" {
		return nil, nil
	}
	return &PlacedOrder{ID: resp.Result.OrderID, Symbol: symbol, Side: side, Quantity: qty, CreateTime: time.Now().UTC()}, nil
}

func bybitSide(s Side) string {
	if isLongSide(s) {
		return "Buy"
	}
	return "Sell"
}

func (g *BybitGateway) GetOpenPositions(ctx context.Context, symbol string) ([]ExternalPosition, error) {
	var resp struct {
		Result struct {
			List []struct {
				Symbol string `json:"symbol"`
				Side   string `json:"side"`
				Size   string `json:"size"`
				Entry  string `json:"avgPrice"`
			} `json:"list"`
		} `json:"result"`
	}
	q := url.Values{"category": {"linear"}, "symbol": {symbol}}
	if err := g.get(ctx, "/v5/position/list", q, true, &resp); err != nil {
		return nil, nil
	}
	out := make([]ExternalPosition, 0, len(resp.Result.List))
	for _, p := range resp.Result.List {
		if parseF(p.Size) == 0 {
			continue
		}
		side := SideSell
		if p.Side == "Buy" {
			side = SideBuy
		}
		out = append(out, ExternalPosition{Symbol: p.Symbol, Side: side, Quantity: parseF(p.Size), Entry: parseF(p.Entry)})
	}
	return out, nil
}

func (g *BybitGateway) GetLotSizeFilter(ctx context.Context, symbol string) (LotSizeFilter, error) {
	def := LotSizeFilter{MinQty: 0.001, MaxQty: 1000.0, StepSize: 0.001}
	var resp struct {
		Result struct {
			List []struct {
				LotSizeFilter struct {
					MinOrderQty string `json:"minOrderQty"`
					MaxOrderQty string `json:"maxOrderQty"`
					QtyStep     string `json:"qtyStep"`
				} `json:"lotSizeFilter"`
			} `json:"list"`
		} `json:"result"`
	}
	q := url.Values{"category": {"linear"}, "symbol": {symbol}}
	if err := g.get(ctx, "/v5/market/instruments-info", q, false, &resp); err != nil || len(resp.Result.List) == 0 {
		return def, nil
	}
	f := resp.Result.List[0].LotSizeFilter
	step := parseF(f.QtyStep)
	if step <= 0 {
		return def, nil
	}
	return LotSizeFilter{MinQty: parseF(f.MinOrderQty), MaxQty: parseF(f.MaxOrderQty), StepSize: step}, nil
}

func (g *BybitGateway) GetAccountBalance(ctx context.Context) (float64, bool, error) {
	var resp struct {
		Result struct {
			List []struct {
				TotalEquity string `json:"totalEquity"`
			} `json:"list"`
		} `json:"result"`
	}
	q := url.Values{"accountType": {"UNIFIED"}}
	if err := g.get(ctx, "/v5/account/wallet-balance", q, true, &resp); err != nil || len(resp.Result.List) == 0 {
		return 0, false, nil
	}
	return parseF(resp.Result.List[0].TotalEquity), true, nil
}

// --- signing / transport ---

func (g *BybitGateway) authHeaders(payload string) (ts string, sign string) {
	ts = strconv.FormatInt(time.Now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(g.apiSecret))
	mac.Write([]byte(ts + g.apiKey + bybitRecvWindow + payload))
	return ts, hex.EncodeToString(mac.Sum(nil))
}

func (g *BybitGateway) get(ctx context.Context, path string, params url.Values, signed bool, out any) error {
	query := ""
	if params != nil {
		query = params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+query, nil)
	if err != nil {
		return err
	}
	if signed {
		ts, sign := g.authHeaders(query)
		req.Header.Set("X-BAPI-API-KEY", g.apiKey)
		req.Header.Set("X-BAPI-TIMESTAMP", ts)
		req.Header.Set("X-BAPI-RECV-WINDOW", bybitRecvWindow)
		req.Header.Set("X-BAPI-SIGN", sign)
	}
	return g.do(req, out)
}

func (g *BybitGateway) post(ctx context.Context, path string, body map[string]any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	ts, sign := g.authHeaders(string(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BAPI-API-KEY", g.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", bybitRecvWindow)
	req.Header.Set("X-BAPI-SIGN", sign)
	return g.do(req, out)
}

func (g *BybitGateway) do(req *http.Request, out any) error {
	resp, err := g.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bybit %s: status %d", req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
