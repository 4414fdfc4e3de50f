package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/exsim/exsim/pkg/engine"
)

func newTestAPI(t *testing.T) (*engine.Matcher, *httptest.Server) {
	t.Helper()
	matcher := engine.NewMatcher("BTC-USDT", zap.NewNop().Sugar())
	api := NewAPIServer(matcher, zap.NewNop().Sugar())
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	return matcher, ts
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthz(t *testing.T) {
	_, ts := newTestAPI(t)

	var body map[string]string
	resp := getJSON(t, ts.URL+"/healthz", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}

func TestGetBookDepth(t *testing.T) {
	matcher, ts := newTestAPI(t)

	resp := getJSON(t, ts.URL+"/api/v1/books/BTC-USDT", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	sink := nopSink{}
	trader := matcher.GetTrader("trader-1", sink)
	require.NoError(t, matcher.HandleMessage(trader,
		[]byte(`{"orderId": 1, "price": 100, "message": "createOrder", "side": "BUY", "quantity": 5}`)))
	require.NoError(t, matcher.HandleMessage(trader,
		[]byte(`{"orderId": 2, "price": 110, "message": "createOrder", "side": "SELL", "quantity": 3}`)))

	var body struct {
		Symbol string `json:"symbol"`
		Bids   []struct {
			Price int64 `json:"price"`
			Qty   int64 `json:"quantity"`
		} `json:"bids"`
		Asks []struct {
			Price int64 `json:"price"`
			Qty   int64 `json:"quantity"`
		} `json:"asks"`
	}
	resp = getJSON(t, ts.URL+"/api/v1/books/BTC-USDT", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "BTC-USDT", body.Symbol)
	require.Len(t, body.Bids, 1)
	require.Equal(t, int64(100), body.Bids[0].Price)
	require.Equal(t, int64(5), body.Bids[0].Qty)
	require.Len(t, body.Asks, 1)
	require.Equal(t, int64(110), body.Asks[0].Price)

	var books struct {
		Symbols []string `json:"symbols"`
	}
	getJSON(t, ts.URL+"/api/v1/books", &books)
	require.Equal(t, []string{"BTC-USDT"}, books.Symbols)
}

type nopSink struct{}

func (nopSink) Write(p []byte) (int, error) { return len(p), nil }
func (nopSink) Close() error                { return nil }
