package types

import "time"

// Asset is a short uppercase code identifying a tracked instrument.
type Asset string

const (
	AssetBTC  Asset = "BTC"
	AssetETH  Asset = "ETH"
	AssetBNB  Asset = "BNB"
	AssetUSDT Asset = "USDT"
	AssetTRX  Asset = "TRX"
	AssetGold Asset = "GOLD"
)

// CryptoAssets lists the crypto instruments in acquisition order. GOLD is
// fetched separately and is deliberately not part of this set.
var CryptoAssets = []Asset{AssetBTC, AssetETH, AssetBNB, AssetUSDT, AssetTRX}

// AllAssets lists every tracked instrument in display order.
var AllAssets = []Asset{AssetBTC, AssetETH, AssetBNB, AssetUSDT, AssetTRX, AssetGold}

// AssetNames maps asset codes to their display names.
var AssetNames = map[Asset]string{
	AssetBTC:  "🪙 Bitcoin",
	AssetETH:  "♦️ Ethereum",
	AssetBNB:  "🔶 BNB",
	AssetUSDT: "💲 Tether",
	AssetTRX:  "🔴 TRON",
	AssetGold: "⚜️ Gold",
}

// IsKnownAsset reports whether code names a tracked instrument.
func IsKnownAsset(code Asset) bool {
	_, ok := AssetNames[code]
	return ok
}

// PriceObservation is one asset's value at one acquisition cycle. A nil
// PriceNum means acquisition failed for that asset in that cycle; the
// observation is still recorded so consumers can tell "stale" from
// "known-bad".
type PriceObservation struct {
	Price    *string   `json:"price"`
	PriceNum *float64  `json:"price_num"`
	TS       time.Time `json:"ts"`
	Error    string    `json:"error,omitempty"`
}

// Snapshot maps every tracked asset to its latest observation.
type Snapshot map[Asset]PriceObservation

// Direction says which way a price must cross an alert target.
type Direction string

const (
	DirectionAbove Direction = "ABOVE"
	DirectionBelow Direction = "BELOW"
)

// Alert is a user-registered fire-once trigger condition.
type Alert struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Asset       Asset     `json:"asset"`
	TargetPrice float64   `json:"target_price"`
	Direction   Direction `json:"direction"`
	CreatedAt   string    `json:"created_at"`
}

// Chat is a subscription record for a chat the bot lives in. Interval is the
// broadcast period in seconds, 0 meaning broadcasts are off. EnabledAssets is
// a comma-separated asset list or "ALL".
type Chat struct {
	ChatID        int64  `json:"chat_id"`
	UserID        int64  `json:"user_id"`
	Title         string `json:"title"`
	Interval      int    `json:"interval"`
	EnabledAssets string `json:"enabled_assets"`
	Language      string `json:"language"`
}
