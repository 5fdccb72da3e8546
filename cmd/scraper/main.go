package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/config"
	"pricepulse-bot/internal/scraper"
	"pricepulse-bot/internal/snapshot"
)

type ScraperMetrics struct {
	CyclesTotal    prometheus.Counter
	SourceHits     *prometheus.CounterVec
	AssetsResolved prometheus.Gauge
}

var metrics = NewScraperMetrics()

func init() {
	config.InitConfig()
	setupLogging()
}

func NewScraperMetrics() *ScraperMetrics {
	m := &ScraperMetrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "scraper",
			Name:      "cycles_total",
			Help:      "The total number of completed acquisition cycles",
		}),
		SourceHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricepulse",
				Subsystem: "scraper",
				Name:      "source_hits_total",
				Help:      "Successful fetches per upstream source",
			},
			[]string{"source"},
		),
		AssetsResolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pricepulse",
			Subsystem: "scraper",
			Name:      "assets_resolved",
			Help:      "Assets with a current price in the latest snapshot",
		}),
	}

	prometheus.MustRegister(m.CyclesTotal)
	prometheus.MustRegister(m.SourceHits)
	prometheus.MustRegister(m.AssetsResolved)

	return m
}

func main() {
	store := snapshot.NewStore(config.GetString("snapshot_path"))

	interval := time.Duration(config.GetInt("scrape_interval_seconds")) * time.Second
	pipeline := scraper.NewPipeline(store, interval)
	pipeline.CyclesTotal = metrics.CyclesTotal
	pipeline.SourceHits = metrics.SourceHits
	pipeline.AssetsResolved = metrics.AssetsResolved

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()

	pipeline.Run(ctx)
	log.Println("Scraper stopped.")
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting scraper...")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
