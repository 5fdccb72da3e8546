// Package scraper runs the acquisition cycle: primary sources in priority
// order with an early-exit threshold, an aggregator fallback, the independent
// gold fetch, and the snapshot publish.
package scraper

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/internal/normalize"
	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/source"
	"pricepulse-bot/internal/types"
)

// acquisition failure marker recorded per asset
const errFailed = "Failed"

// fallbackFloor: below this many resolved assets the aggregator source is
// consulted.
const fallbackFloor = 3

// Pipeline orchestrates one acquisition cycle per interval. Metrics fields
// are optional; nil collectors are skipped.
type Pipeline struct {
	Adapters []source.Adapter
	Fallback source.Adapter
	Gold     *source.GoldFetcher
	Store    *snapshot.Store
	Client   *http.Client
	Interval time.Duration

	CyclesTotal    prometheus.Counter
	SourceHits     *prometheus.CounterVec
	AssetsResolved prometheus.Gauge
}

// NewPipeline wires the default source set against a store.
func NewPipeline(store *snapshot.Store, interval time.Duration) *Pipeline {
	return &Pipeline{
		Adapters: source.DefaultAdapters(),
		Fallback: source.NewCoinGeckoAdapter(),
		Gold:     source.NewGoldFetcher(),
		Store:    store,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Interval: interval,
	}
}

// FetchCrypto walks the primary sources in priority order. Later sources only
// fill gaps left by earlier ones; once all but one tracked asset is resolved
// the walk stops. If fewer than fallbackFloor assets resolved after all
// primaries, the aggregator's result replaces the accumulated mapping
// whole-or-nothing.
func (p *Pipeline) FetchCrypto(ctx context.Context) map[types.Asset]float64 {
	threshold := len(types.CryptoAssets) - 1
	prices := make(map[types.Asset]float64)

	for _, adapter := range p.Adapters {
		if len(prices) >= threshold {
			break
		}

		result, err := adapter.Fetch(ctx, p.Client)
		if err != nil {
			log.Warnf("failed to fetch from %s: %v", adapter.Name(), err)
			continue
		}
		for asset, price := range result {
			if _, resolved := prices[asset]; !resolved {
				prices[asset] = price
			}
		}
		if p.SourceHits != nil {
			p.SourceHits.WithLabelValues(adapter.Name()).Inc()
		}
		if len(prices) >= threshold {
			log.Debugf("prices fetched from %s", adapter.Name())
			return prices
		}
	}

	if len(prices) < fallbackFloor && p.Fallback != nil {
		log.Warn("exchanges failed, trying aggregator fallback")
		result, err := p.Fallback.Fetch(ctx, p.Client)
		if err != nil {
			log.Warnf("failed to fetch from %s: %v", p.Fallback.Name(), err)
		} else if len(result) > 0 {
			// Whole-or-nothing: never mix aggregator values with partial
			// exchange data captured at different times.
			if p.SourceHits != nil {
				p.SourceHits.WithLabelValues(p.Fallback.Name()).Inc()
			}
			return result
		}
	}

	return prices
}

// RunCycle produces and publishes one snapshot.
func (p *Pipeline) RunCycle(ctx context.Context) {
	ts := time.Now().UTC()
	snap := make(types.Snapshot, len(types.AllAssets))

	crypto := p.FetchCrypto(ctx)
	for _, asset := range types.CryptoAssets {
		if num, ok := crypto[asset]; ok {
			snap[asset] = observation(normalize.NormalizeFloat(num), ts)
		} else {
			snap[asset] = failedObservation(ts)
		}
	}

	snap[types.AssetGold] = p.fetchGold(ctx, ts)

	resolved := 0
	for _, obs := range snap {
		if obs.PriceNum != nil {
			resolved++
		}
	}
	if p.AssetsResolved != nil {
		p.AssetsResolved.Set(float64(resolved))
	}
	if p.CyclesTotal != nil {
		p.CyclesTotal.Inc()
	}

	if err := p.Store.Publish(snap); err != nil {
		// In-memory snapshot is already swapped; the next cycle retries the
		// file write.
		log.Errorf("failed to persist snapshot: %v", err)
	}
}

// fetchGold acquires the non-crypto asset. Its failures never touch the
// crypto results.
func (p *Pipeline) fetchGold(ctx context.Context, ts time.Time) types.PriceObservation {
	raw, err := p.Gold.Fetch(ctx, p.Client)
	if err != nil {
		log.Warnf("gold fetch failed: %v", err)
		return failedObservation(ts)
	}
	val, ok := normalize.NormalizeString(raw)
	if !ok {
		log.Warnf("gold price %q did not normalize", raw)
		return failedObservation(ts)
	}
	return observation(val, ts)
}

// Run loops forever with a fixed delay between cycles. No failure below ever
// stops the loop.
func (p *Pipeline) Run(ctx context.Context) {
	log.Info("scraper started with multi-layer fallback strategy")
	for {
		p.runCycleSafe(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *Pipeline) runCycleSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from panic in acquisition cycle: %v", r)
		}
	}()
	p.RunCycle(ctx)
}

func observation(v normalize.Value, ts time.Time) types.PriceObservation {
	display := v.Display
	num := v.Num
	return types.PriceObservation{Price: &display, PriceNum: &num, TS: ts}
}

func failedObservation(ts time.Time) types.PriceObservation {
	return types.PriceObservation{TS: ts, Error: errFailed}
}
