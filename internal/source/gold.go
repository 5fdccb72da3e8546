package source

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const goldTimeout = 10 * time.Second

// goldSelectors are tried in order; the page markup has changed across
// CoinMarketCap redesigns, so older selectors stay in the list.
var goldSelectors = []string{
	"div.priceValue",
	"span[data-test='text-cdp-price-display']",
	"div.sc-142c02c-0.lmjbLF",
}

var currencyAmountRe = regexp.MustCompile(`\$\d{1,3}(,\d{3})*(\.\d+)?`)

// GoldFetcher acquires the gold price by scraping a quote page. It is
// independent of the crypto adapters; its failures never touch their results.
type GoldFetcher struct {
	URL string
}

func NewGoldFetcher() *GoldFetcher {
	return &GoldFetcher{URL: "https://coinmarketcap.com/real-world-assets/gold/"}
}

// Fetch downloads the quote page and extracts the raw price text, e.g.
// "$3,312.54".
func (g *GoldFetcher) Fetch(ctx context.Context, client *http.Client) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, goldTimeout)
	defer cancel()

	// Random query parameter defeats CDN caching.
	url := fmt.Sprintf("%s?t=%d", g.URL, rand.Intn(99999)+1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "could not build gold request")
	}
	for k, v := range requestHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "gold request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status %d from gold source", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read gold page")
	}

	raw, ok := ExtractGoldPrice(string(body))
	if !ok {
		return "", errors.New("no price pattern found in gold page")
	}
	return raw, nil
}

// ExtractGoldPrice searches a document for a recognizable price: structural
// selectors first, then a generic currency-amount scan over the full text.
func ExtractGoldPrice(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		for _, sel := range goldSelectors {
			if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
				return text, true
			}
		}
	}

	if match := currencyAmountRe.FindString(html); match != "" {
		return match, true
	}
	return "", false
}
