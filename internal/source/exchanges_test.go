package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricepulse-bot/internal/types"
)

func testSymbolMap() map[types.Asset]string {
	return map[types.Asset]string{
		types.AssetBTC: "BTCUSDT",
		types.AssetETH: "ETHUSDT",
		types.AssetBNB: "BNBUSDT",
		types.AssetTRX: "TRXUSDT",
	}
}

func TestListTickerAdapter_ParsesSymbolPriceList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","price":"90000.5"},
			{"symbol":"ETHUSDT","price":"3000.25"},
			{"symbol":"DOGEUSDT","price":"0.1"}
		]`))
	}))
	defer srv.Close()

	adapter := &ListTickerAdapter{SourceName: "Binance", URL: srv.URL, SymbolMap: testSymbolMap()}
	prices, err := adapter.Fetch(context.Background(), srv.Client())
	require.NoError(t, err)

	assert.Equal(t, 90000.5, prices[types.AssetBTC])
	assert.Equal(t, 3000.25, prices[types.AssetETH])
	assert.NotContains(t, prices, types.AssetBNB)
	assert.NotContains(t, prices, types.AssetTRX)
}

func TestListTickerAdapter_PinsStablecoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"BTCUSDT","price":"90000"}]`))
	}))
	defer srv.Close()

	adapter := &ListTickerAdapter{SourceName: "Binance", URL: srv.URL, SymbolMap: testSymbolMap()}
	prices, err := adapter.Fetch(context.Background(), srv.Client())
	require.NoError(t, err)

	assert.Equal(t, 1.0, prices[types.AssetUSDT])
}

func TestListTickerAdapter_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := &ListTickerAdapter{SourceName: "Binance", URL: srv.URL, SymbolMap: testSymbolMap()}
	_, err := adapter.Fetch(context.Background(), srv.Client())
	assert.Error(t, err)
}

func TestListTickerAdapter_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>rate limited</html>`))
	}))
	defer srv.Close()

	adapter := &ListTickerAdapter{SourceName: "Binance", URL: srv.URL, SymbolMap: testSymbolMap()}
	_, err := adapter.Fetch(context.Background(), srv.Client())
	assert.Error(t, err)
}

func TestLBankAdapter_ParsesNestedTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"symbol":"btc_usdt","ticker":{"latest":"89999.9"}},
			{"symbol":"trx_usdt","ticker":{"latest":0.24}}
		]}`))
	}))
	defer srv.Close()

	adapter := &LBankAdapter{URL: srv.URL, SymbolMap: map[types.Asset]string{
		types.AssetBTC: "btc_usdt",
		types.AssetTRX: "trx_usdt",
	}}
	prices, err := adapter.Fetch(context.Background(), srv.Client())
	require.NoError(t, err)

	assert.Equal(t, 89999.9, prices[types.AssetBTC])
	assert.Equal(t, 0.24, prices[types.AssetTRX])
	assert.Equal(t, 1.0, prices[types.AssetUSDT])
}

func TestCoinGeckoAdapter_ParsesAllAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"bitcoin":{"usd":90000},
			"ethereum":{"usd":3000},
			"binancecoin":{"usd":600},
			"tether":{"usd":1.0},
			"tron":{"usd":0.25}
		}`))
	}))
	defer srv.Close()

	adapter := &CoinGeckoAdapter{URL: srv.URL}
	prices, err := adapter.Fetch(context.Background(), srv.Client())
	require.NoError(t, err)

	assert.Len(t, prices, 5)
	assert.Equal(t, float64(90000), prices[types.AssetBTC])
	assert.Equal(t, 0.25, prices[types.AssetTRX])
}
