package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-exchange/domain"
	"pulse-exchange/matching"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine := matching.NewEngineWithCapacity(nil, 1024)
	require.True(t, engine.AddInstrument(domain.NewSymbol("BTCUSD")))
	return NewServer(engine, nil, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func placeOrder(t *testing.T, s *Server, side, price string, qty int64) orderResponse {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/order", orderRequest{
		Symbol: "BTCUSD", Side: side, Type: "LIMIT", Price: price, Quantity: qty,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPostOrderAcceptsLimit(t *testing.T) {
	s := newTestServer(t)
	resp := placeOrder(t, s, "BUY", "42917.25", 3)
	assert.Equal(t, "ACCEPTED", resp.Status)
	assert.NotZero(t, resp.OrderID)
	assert.NotEmpty(t, resp.RequestID)
}

func TestPostOrderValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		req  orderRequest
	}{
		{"missing symbol", orderRequest{Side: "BUY", Price: "1", Quantity: 1}},
		{"bad side", orderRequest{Symbol: "BTCUSD", Side: "LONG", Price: "1", Quantity: 1}},
		{"bad type", orderRequest{Symbol: "BTCUSD", Side: "BUY", Type: "TRAILING", Price: "1", Quantity: 1}},
		{"zero quantity", orderRequest{Symbol: "BTCUSD", Side: "BUY", Price: "1", Quantity: 0}},
		{"bad price", orderRequest{Symbol: "BTCUSD", Side: "BUY", Price: "abc", Quantity: 1}},
		{"negative price", orderRequest{Symbol: "BTCUSD", Side: "BUY", Price: "-1", Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/order", tc.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPostOrderUnknownSymbolRejected(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/v1/order", orderRequest{
		Symbol: "NOPE", Side: "BUY", Price: "1", Quantity: 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "REJECTED", resp.Status)
	assert.Zero(t, resp.OrderID)
}

func TestDeleteOrder(t *testing.T) {
	s := newTestServer(t)
	resp := placeOrder(t, s, "BUY", "100", 5)

	w := doJSON(t, s, http.MethodDelete, "/api/v1/order/BTCUSD/"+jsonUint(resp.OrderID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodDelete, "/api/v1/order/BTCUSD/"+jsonUint(resp.OrderID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodDelete, "/api/v1/order/BTCUSD/notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteAndDepth(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/quote/BTCUSD", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	placeOrder(t, s, "BUY", "99.5", 10)
	placeOrder(t, s, "SELL", "100.5", 20)

	w = doJSON(t, s, http.MethodGet, "/api/v1/quote/BTCUSD", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var q quoteDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, "99.5", q.BidPrice)
	assert.Equal(t, "100.5", q.AskPrice)
	assert.Equal(t, "1", q.Spread)

	w = doJSON(t, s, http.MethodGet, "/api/v1/depth/BTCUSD?levels=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d depthDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	require.Len(t, d.Bids, 1)
	require.Len(t, d.Asks, 1)
	assert.Equal(t, int64(20), d.Asks[0].Quantity)

	w = doJSON(t, s, http.MethodGet, "/api/v1/depth/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/quote/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	placeOrder(t, s, "BUY", "100", 10)
	placeOrder(t, s, "SELL", "100", 10)

	w := doJSON(t, s, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats["ordersReceived"])
	assert.EqualValues(t, 1, stats["ordersMatched"])
	assert.EqualValues(t, 10, stats["totalVolume"])
}

func TestMetricsExposition(t *testing.T) {
	s := newTestServer(t)
	placeOrder(t, s, "BUY", "100", 10)

	w := doJSON(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "pulse_orders_received_total 1")
	assert.Contains(t, body, `pulse_resting_orders{symbol="BTCUSD"} 1`)
	assert.Contains(t, body, "pulse_submit_latency_seconds")
}

func jsonUint(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
