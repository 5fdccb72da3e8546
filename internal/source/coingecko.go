package source

import (
	"context"
	"net/http"
	"time"

	"pricepulse-bot/internal/types"
)

const aggregatorTimeout = 5 * time.Second

// CoinGeckoAdapter is the last-resort aggregator: one request returns every
// tracked asset. The pipeline uses its result whole-or-nothing, never merged
// with exchange data.
type CoinGeckoAdapter struct {
	URL string
}

func NewCoinGeckoAdapter() *CoinGeckoAdapter {
	return &CoinGeckoAdapter{
		URL: "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin,ethereum,binancecoin,tether,tron&vs_currencies=usd",
	}
}

var coinGeckoIDs = map[string]types.Asset{
	"bitcoin":     types.AssetBTC,
	"ethereum":    types.AssetETH,
	"binancecoin": types.AssetBNB,
	"tether":      types.AssetUSDT,
	"tron":        types.AssetTRX,
}

func (a *CoinGeckoAdapter) Name() string { return "CoinGecko" }

func (a *CoinGeckoAdapter) Fetch(ctx context.Context, client *http.Client) (map[types.Asset]float64, error) {
	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := getJSON(ctx, client, a.URL, aggregatorTimeout, &payload); err != nil {
		return nil, err
	}

	prices := make(map[types.Asset]float64)
	for id, asset := range coinGeckoIDs {
		if entry, ok := payload[id]; ok {
			prices[asset] = entry.USD
		}
	}
	return prices, nil
}
