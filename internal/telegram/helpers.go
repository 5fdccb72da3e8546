package telegram

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"pricepulse-bot/internal/types"
	"pricepulse-bot/lib/helpers"
)

// parseCalcArguments parses "/calc <amount> <asset>" arguments.
func parseCalcArguments(args string) (float64, types.Asset, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, "", errors.New("expected amount and asset")
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil {
		return 0, "", errors.Wrap(err, "invalid amount")
	}

	asset := types.Asset(strings.ToUpper(fields[1]))
	if !types.IsKnownAsset(asset) {
		return 0, "", errors.Errorf("unknown asset %s", fields[1])
	}
	return amount, asset, nil
}

func formatAmount(v float64) string {
	return helpers.FormatAmountUS(v)
}
