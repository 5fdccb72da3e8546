package broadcast

import (
	"fmt"
	"strings"

	"pricepulse-bot/internal/snapshot"
	"pricepulse-bot/internal/types"
	"pricepulse-bot/lib/translation"
)

func trendEmoji(t snapshot.Trend) string {
	switch t {
	case snapshot.TrendUp:
		return "🟢"
	case snapshot.TrendDown:
		return "🔴"
	case snapshot.TrendFlat:
		return "⚪️"
	default:
		return ""
	}
}

// EnabledAssets expands the stored asset filter ("ALL" or comma-separated
// codes) into a lookup set.
func EnabledAssets(filter string) map[types.Asset]bool {
	enabled := make(map[types.Asset]bool)
	if filter == "ALL" {
		for _, asset := range types.AllAssets {
			enabled[asset] = true
		}
		return enabled
	}
	for _, code := range strings.Split(filter, ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			enabled[types.Asset(code)] = true
		}
	}
	return enabled
}

// FormatPriceMessage renders the live-prices message for a chat, honoring its
// asset filter and language. Assets without a current value are left out; an
// entirely empty snapshot becomes the "not available" notice.
func FormatPriceMessage(snap types.Snapshot, store *snapshot.Store, lang, assetFilter string) string {
	if len(snap) == 0 {
		return translation.Translate(lang, "⚠️ Price not available.")
	}

	enabled := EnabledAssets(assetFilter)
	lines := []string{translation.Translate(lang, "📊 <b>Live Market Prices:</b>\n")}
	hasData := false

	for _, asset := range types.AllAssets {
		if !enabled[asset] {
			continue
		}
		obs, ok := snap[asset]
		if !ok || obs.Price == nil || obs.PriceNum == nil {
			continue
		}

		trend := ""
		if store != nil {
			trend = trendEmoji(store.Trend(asset, *obs.PriceNum))
		}
		lines = append(lines, fmt.Sprintf("%s <b>%s</b>: <code>%s</code>", trend, types.AssetNames[asset], *obs.Price))
		hasData = true
	}

	if !hasData {
		return translation.Translate(lang, "No assets selected.")
	}
	return strings.Join(lines, "\n")
}
