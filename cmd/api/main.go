package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/config"
	"pricepulse-bot/internal/api"
)

func init() {
	config.InitConfig()

	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

func main() {
	router := api.NewRouter(config.GetString("snapshot_path"))

	addr := fmt.Sprintf(":%d", config.GetInt("api_port"))
	log.Infof("Launching price API on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start price API: %v", err)
	}
}
