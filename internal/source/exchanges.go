package source

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pricepulse-bot/internal/types"
)

const exchangeTimeout = 4 * time.Second

// ListTickerAdapter handles exchanges whose ticker endpoint returns a flat
// list of {symbol, price} objects (Binance, MEXC and compatible APIs).
type ListTickerAdapter struct {
	SourceName string
	URL        string
	SymbolMap  map[types.Asset]string
}

func (a *ListTickerAdapter) Name() string { return a.SourceName }

func (a *ListTickerAdapter) Fetch(ctx context.Context, client *http.Client) (map[types.Asset]float64, error) {
	var tickers []struct {
		Symbol string      `json:"symbol"`
		Price  json.Number `json:"price"`
	}
	if err := getJSON(ctx, client, a.URL, exchangeTimeout, &tickers); err != nil {
		return nil, err
	}

	market := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		if p, err := t.Price.Float64(); err == nil {
			market[t.Symbol] = p
		}
	}

	prices := make(map[types.Asset]float64)
	for _, asset := range types.CryptoAssets {
		if asset == types.AssetUSDT {
			// The stablecoin is not quoted against itself; pin it.
			prices[asset] = 1.0
			continue
		}
		if pair, ok := a.SymbolMap[asset]; ok {
			if p, ok := market[pair]; ok {
				prices[asset] = p
			}
		}
	}
	return prices, nil
}

// LBankAdapter handles LBank's 24h ticker endpoint, which wraps each pair in
// a {symbol, ticker: {latest}} object under a top-level data array.
type LBankAdapter struct {
	URL       string
	SymbolMap map[types.Asset]string
}

func (a *LBankAdapter) Name() string { return "LBank" }

func (a *LBankAdapter) Fetch(ctx context.Context, client *http.Client) (map[types.Asset]float64, error) {
	var payload struct {
		Data []struct {
			Symbol string `json:"symbol"`
			Ticker struct {
				Latest json.Number `json:"latest"`
			} `json:"ticker"`
		} `json:"data"`
	}
	if err := getJSON(ctx, client, a.URL, exchangeTimeout, &payload); err != nil {
		return nil, err
	}

	market := make(map[string]float64, len(payload.Data))
	for _, item := range payload.Data {
		if p, err := item.Ticker.Latest.Float64(); err == nil {
			market[item.Symbol] = p
		}
	}

	prices := make(map[types.Asset]float64)
	for _, asset := range types.CryptoAssets {
		if asset == types.AssetUSDT {
			prices[asset] = 1.0
			continue
		}
		if pair, ok := a.SymbolMap[asset]; ok {
			if p, ok := market[pair]; ok {
				prices[asset] = p
			}
		}
	}
	return prices, nil
}

// DefaultAdapters returns the primary crypto sources in priority order.
func DefaultAdapters() []Adapter {
	usdtPairs := map[types.Asset]string{
		types.AssetBTC: "BTCUSDT",
		types.AssetETH: "ETHUSDT",
		types.AssetBNB: "BNBUSDT",
		types.AssetTRX: "TRXUSDT",
	}
	return []Adapter{
		&ListTickerAdapter{
			SourceName: "Binance",
			URL:        "https://api.binance.com/api/v3/ticker/price",
			SymbolMap:  usdtPairs,
		},
		&ListTickerAdapter{
			SourceName: "Mexc",
			URL:        "https://api.mexc.com/api/v3/ticker/price",
			SymbolMap:  usdtPairs,
		},
		&LBankAdapter{
			URL: "https://api.lbkex.com/v2/ticker/24hr.do",
			SymbolMap: map[types.Asset]string{
				types.AssetBTC: "btc_usdt",
				types.AssetETH: "eth_usdt",
				types.AssetBNB: "bnb_usdt",
				types.AssetTRX: "trx_usdt",
			},
		},
	}
}
