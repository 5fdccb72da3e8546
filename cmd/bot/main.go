package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/config"
	"pricepulse-bot/internal/alert"
	"pricepulse-bot/internal/broadcast"
	"pricepulse-bot/internal/database"
	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/telegram"
)

type BotMetrics struct {
	UpdatesHandled  prometheus.Counter
	AlertsTriggered prometheus.Counter
	BroadcastsSent  prometheus.Counter
}

var metrics = NewBotMetrics()

func init() {
	config.InitConfig()
	setupLogging()
}

func NewBotMetrics() *BotMetrics {
	m := &BotMetrics{
		UpdatesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "telegram_bot",
			Name:      "updates_handled",
			Help:      "The total number of handled telegram updates",
		}),
		AlertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "telegram_bot",
			Name:      "alerts_triggered",
			Help:      "The total number of triggered price alerts",
		}),
		BroadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "telegram_bot",
			Name:      "broadcasts_sent",
			Help:      "The total number of delivered price broadcasts",
		}),
	}

	prometheus.MustRegister(m.UpdatesHandled)
	prometheus.MustRegister(m.AlertsTriggered)
	prometheus.MustRegister(m.BroadcastsSent)

	return m
}

func main() {
	err := database.InitDB(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	LoadMetricsFromDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := snapshot.NewStore("")
	watcher := &snapshot.FileWatcher{
		Store:    store,
		Path:     config.GetString("snapshot_path"),
		Interval: 2 * time.Second,
	}
	go watcher.Run(ctx)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:           config.GetString("telegram_bot_token"),
		Debug:           config.GetBool("debug"),
		UpdatesTimeout:  60,
		RequiredChannel: config.GetString("channel_id"),
	}, store)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	scheduler := broadcast.NewScheduler(store, bot)
	scheduler.Sent = metrics.BroadcastsSent
	bot.WireScheduler(scheduler)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start broadcast scheduler: %v", err)
	}
	defer scheduler.Stop()

	alertService := &alert.Service{
		Store:     store,
		Sender:    bot,
		Lang:      database.GetChatLanguage,
		Interval:  time.Duration(config.GetInt("alert_interval_seconds")) * time.Second,
		Triggered: metrics.AlertsTriggered,
	}
	go alertService.Run(ctx)

	go handleUpdates(bot)

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			SaveMetricsToDB()
		}
	}()

	go func() {
		<-ctx.Done()
		SaveMetricsToDB()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func handleUpdates(bot *telegram.Bot) {
	for update := range bot.GetUpdatesChannel() {
		metrics.UpdatesHandled.Inc()
		bot.HandleUpdate(update)
	}
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

func LoadMetricsFromDB() {
	updatesHandled, _ := database.GetMetric("updates_handled")
	alertsTriggered, _ := database.GetMetric("alerts_triggered")
	broadcastsSent, _ := database.GetMetric("broadcasts_sent")

	metrics.UpdatesHandled.Add(updatesHandled)
	metrics.AlertsTriggered.Add(alertsTriggered)
	metrics.BroadcastsSent.Add(broadcastsSent)

	log.Println("Metrics loaded from database.")
}

func SaveMetricsToDB() {
	database.SaveMetric("updates_handled", GetMetricValue(metrics.UpdatesHandled))
	database.SaveMetric("alerts_triggered", GetMetricValue(metrics.AlertsTriggered))
	database.SaveMetric("broadcasts_sent", GetMetricValue(metrics.BroadcastsSent))

	log.Println("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
