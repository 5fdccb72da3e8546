package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/source"
	"pricepulse-bot/internal/types"
)

type fakeAdapter struct {
	name   string
	prices map[types.Asset]float64
	err    error
	calls  int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, client *http.Client) (map[types.Asset]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[types.Asset]float64, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out, nil
}

func fullQuote() map[types.Asset]float64 {
	return map[types.Asset]float64{
		types.AssetBTC:  90000,
		types.AssetETH:  3000,
		types.AssetBNB:  600,
		types.AssetUSDT: 1,
		types.AssetTRX:  0.25,
	}
}

func TestFetchCrypto_FirstSourceSatisfiesThreshold(t *testing.T) {
	// Four of five assets meets the all-but-one threshold; the second source
	// must never be consulted.
	partial := fullQuote()
	delete(partial, types.AssetTRX)

	first := &fakeAdapter{name: "Binance", prices: partial}
	second := &fakeAdapter{name: "Mexc", prices: fullQuote()}

	p := &Pipeline{Adapters: []source.Adapter{first, second}}
	prices := p.FetchCrypto(context.Background())

	assert.Len(t, prices, 4)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestFetchCrypto_LaterSourcesOnlyFillGaps(t *testing.T) {
	first := &fakeAdapter{name: "Binance", prices: map[types.Asset]float64{
		types.AssetBTC:  90000,
		types.AssetUSDT: 1,
	}}
	second := &fakeAdapter{name: "Mexc", prices: map[types.Asset]float64{
		types.AssetBTC: 1, // conflicting value, must not overwrite
		types.AssetETH: 3000,
		types.AssetBNB: 600,
	}}

	p := &Pipeline{Adapters: []source.Adapter{first, second}}
	prices := p.FetchCrypto(context.Background())

	assert.Equal(t, float64(90000), prices[types.AssetBTC])
	assert.Equal(t, float64(3000), prices[types.AssetETH])
	assert.Equal(t, float64(600), prices[types.AssetBNB])
}

func TestFetchCrypto_FailedSourceSkipped(t *testing.T) {
	first := &fakeAdapter{name: "Binance", err: assert.AnError}
	second := &fakeAdapter{name: "Mexc", prices: fullQuote()}

	p := &Pipeline{Adapters: []source.Adapter{first, second}}
	prices := p.FetchCrypto(context.Background())

	assert.Len(t, prices, 5)
	assert.Equal(t, 1, second.calls)
}

func TestFetchCrypto_AggregatorReplacesWholeOrNothing(t *testing.T) {
	// Two resolved assets is below the fallback floor. The aggregator result
	// must replace the partial exchange data entirely, not merge into it.
	first := &fakeAdapter{name: "Binance", prices: map[types.Asset]float64{
		types.AssetBTC:  1111,
		types.AssetUSDT: 1,
	}}
	fallback := &fakeAdapter{name: "CoinGecko", prices: map[types.Asset]float64{
		types.AssetBTC: 90000,
		types.AssetETH: 3000,
		types.AssetTRX: 0.25,
	}}

	p := &Pipeline{Adapters: []source.Adapter{first}, Fallback: fallback}
	prices := p.FetchCrypto(context.Background())

	assert.Equal(t, float64(90000), prices[types.AssetBTC])
	assert.NotContains(t, prices, types.AssetUSDT)
}

func TestFetchCrypto_AggregatorFailureKeepsPartial(t *testing.T) {
	first := &fakeAdapter{name: "Binance", prices: map[types.Asset]float64{
		types.AssetBTC:  90000,
		types.AssetUSDT: 1,
	}}
	fallback := &fakeAdapter{name: "CoinGecko", err: assert.AnError}

	p := &Pipeline{Adapters: []source.Adapter{first}, Fallback: fallback}
	prices := p.FetchCrypto(context.Background())

	assert.Len(t, prices, 2)
	assert.Equal(t, float64(90000), prices[types.AssetBTC])
}

func TestRunCycle_RecordsFailedObservations(t *testing.T) {
	goldSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="priceValue">$3,312.54</div></body></html>`))
	}))
	defer goldSrv.Close()

	adapter := &fakeAdapter{name: "Binance", prices: map[types.Asset]float64{
		types.AssetBTC:  90000,
		types.AssetETH:  3000,
		types.AssetBNB:  600,
		types.AssetUSDT: 1,
	}}
	store := snapshot.NewStore("")
	p := &Pipeline{
		Adapters: []source.Adapter{adapter},
		Gold:     &source.GoldFetcher{URL: goldSrv.URL},
		Store:    store,
		Client:   goldSrv.Client(),
	}
	p.RunCycle(context.Background())

	snap := store.Read()
	require.Len(t, snap, len(types.AllAssets))

	btc := snap[types.AssetBTC]
	require.NotNil(t, btc.PriceNum)
	assert.Equal(t, float64(90000), *btc.PriceNum)
	assert.Equal(t, "$90,000.00", *btc.Price)
	assert.Empty(t, btc.Error)

	trx := snap[types.AssetTRX]
	assert.Nil(t, trx.Price)
	assert.Nil(t, trx.PriceNum)
	assert.Equal(t, "Failed", trx.Error)
	assert.False(t, trx.TS.IsZero())
}

func TestRunCycle_GoldFailureDoesNotTouchCrypto(t *testing.T) {
	goldSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer goldSrv.Close()

	adapter := &fakeAdapter{name: "Binance", prices: fullQuote()}
	store := snapshot.NewStore("")
	p := &Pipeline{
		Adapters: []source.Adapter{adapter},
		Gold:     &source.GoldFetcher{URL: goldSrv.URL},
		Store:    store,
		Client:   goldSrv.Client(),
	}
	p.RunCycle(context.Background())

	snap := store.Read()
	assert.Equal(t, "Failed", snap[types.AssetGold].Error)
	for _, asset := range types.CryptoAssets {
		assert.NotNil(t, snap[asset].PriceNum, "crypto asset %s must be unaffected", asset)
	}
}
