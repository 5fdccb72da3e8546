// Package source holds one adapter per upstream price source. Every adapter
// translates its source's response shape into the uniform asset → USD price
// mapping and keeps transport or parse failures behind its boundary.
package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"pricepulse-bot/internal/types"
)

// Browser-ish headers; some of the upstreams reject obvious bots.
var requestHeaders = map[string]string{
	"User-Agent":    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Cache-Control": "no-cache",
	"Pragma":        "no-cache",
}

// Adapter fetches current USD prices for the tracked crypto assets from one
// upstream source. A non-nil error means the source contributed nothing this
// cycle; a partial map is fine.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, client *http.Client) (map[types.Asset]float64, error)
}

func getJSON(ctx context.Context, client *http.Client, url string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "could not build request")
	}
	for k, v := range requestHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "could not read response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "could not parse response body")
	}
	return nil
}
