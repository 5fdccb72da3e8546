package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		// Secrets live in .env during local runs; missing file is fine.
		_ = godotenv.Load()

		viper.AutomaticEnv()

		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("channel_id", "CHANNEL_ID")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("snapshot_path", "SNAPSHOT_PATH")
		viper.BindEnv("scrape_interval_seconds", "SCRAPE_INTERVAL_SECONDS")
		viper.BindEnv("alert_interval_seconds", "ALERT_INTERVAL_SECONDS")
		viper.BindEnv("api_port", "API_PORT")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("db_path", "data/bot.db")
		viper.SetDefault("snapshot_path", "data/prices.json")
		viper.SetDefault("scrape_interval_seconds", 5)
		viper.SetDefault("alert_interval_seconds", 3)
		viper.SetDefault("api_port", 8000)
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "fa")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
