// Package api is the read-only query surface over the persisted snapshot.
// It never touches the acquisition pipeline; every request re-reads the file
// the scraper process maintains.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/types"
)

// NewRouter builds the gin engine serving the price endpoints.
func NewRouter(snapshotPath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/prices", func(c *gin.Context) {
		snap := readSnapshot(snapshotPath)
		if len(snap) == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"detail": "Price data is currently unavailable. The scraper might be running.",
			})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	r.GET("/price/:asset", func(c *gin.Context) {
		snap := readSnapshot(snapshotPath)
		asset := types.Asset(strings.ToUpper(c.Param("asset")))

		obs, ok := snap[asset]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Asset not found"})
			return
		}
		c.JSON(http.StatusOK, obs)
	})

	r.GET("/health", func(c *gin.Context) {
		snap := readSnapshot(snapshotPath)
		tracked := make([]types.Asset, 0, len(snap))
		for _, asset := range types.AllAssets {
			if _, ok := snap[asset]; ok {
				tracked = append(tracked, asset)
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "tracked_assets": tracked})
	})

	return r
}

func readSnapshot(path string) types.Snapshot {
	snap, err := snapshot.LoadFile(path)
	if err != nil {
		log.Errorf("failed to load snapshot: %v", err)
		return types.Snapshot{}
	}
	return snap
}
