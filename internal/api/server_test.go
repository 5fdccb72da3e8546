package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.json")
	store := snapshot.NewStore(path)

	price := "$90,000.00"
	num := 90000.0
	ts := time.Now().UTC()
	require.NoError(t, store.Publish(types.Snapshot{
		types.AssetBTC:  {Price: &price, PriceNum: &num, TS: ts},
		types.AssetGold: {TS: ts, Error: "Failed"},
	}))
	return path
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestPrices_EmptySnapshotIs503(t *testing.T) {
	router := NewRouter(filepath.Join(t.TempDir(), "absent.json"))

	w := get(router, "/prices")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["detail"], "unavailable")
}

func TestPrices_ReturnsFullSnapshot(t *testing.T) {
	router := NewRouter(writeSnapshot(t))

	w := get(router, "/prices")
	require.Equal(t, http.StatusOK, w.Code)

	var snap types.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Contains(t, snap, types.AssetBTC)
	assert.Equal(t, "$90,000.00", *snap[types.AssetBTC].Price)

	// Failed observations are served too, marked as such.
	require.Contains(t, snap, types.AssetGold)
	assert.Nil(t, snap[types.AssetGold].Price)
	assert.Equal(t, "Failed", snap[types.AssetGold].Error)
}

func TestPrice_SingleAssetCaseInsensitive(t *testing.T) {
	router := NewRouter(writeSnapshot(t))

	w := get(router, "/price/btc")
	require.Equal(t, http.StatusOK, w.Code)

	var obs types.PriceObservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &obs))
	require.NotNil(t, obs.PriceNum)
	assert.Equal(t, 90000.0, *obs.PriceNum)
}

func TestPrice_UnknownAssetIs404(t *testing.T) {
	router := NewRouter(writeSnapshot(t))

	w := get(router, "/price/doge")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Asset not found", body["detail"])
}

func TestHealth_ListsTrackedAssets(t *testing.T) {
	router := NewRouter(writeSnapshot(t))

	w := get(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status        string        `json:"status"`
		TrackedAssets []types.Asset `json:"tracked_assets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.ElementsMatch(t, []types.Asset{types.AssetBTC, types.AssetGold}, body.TrackedAssets)
}

func TestHealth_OKEvenWithoutSnapshot(t *testing.T) {
	router := NewRouter(filepath.Join(t.TempDir(), "absent.json"))

	w := get(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
