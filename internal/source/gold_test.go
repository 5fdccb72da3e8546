package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractGoldPrice_PriceValueDiv(t *testing.T) {
	html := `<html><body><div class="priceValue"> $3,312.54 </div></body></html>`
	raw, ok := ExtractGoldPrice(html)
	require.True(t, ok)
	assert.Equal(t, "$3,312.54", raw)
}

func TestExtractGoldPrice_DataTestSpan(t *testing.T) {
	html := `<html><body><span data-test="text-cdp-price-display">$2,650.10</span></body></html>`
	raw, ok := ExtractGoldPrice(html)
	require.True(t, ok)
	assert.Equal(t, "$2,650.10", raw)
}

func TestExtractGoldPrice_StyledComponentDiv(t *testing.T) {
	html := `<html><body><div class="sc-142c02c-0 lmjbLF">$2,700</div></body></html>`
	raw, ok := ExtractGoldPrice(html)
	require.True(t, ok)
	assert.Equal(t, "$2,700", raw)
}

func TestExtractGoldPrice_SelectorPrecedence(t *testing.T) {
	// Both markers present; the structural selector wins over the regex scan.
	html := `<html><body>
		<p>volume $999,999.99</p>
		<div class="priceValue">$3,000.00</div>
	</body></html>`
	raw, ok := ExtractGoldPrice(html)
	require.True(t, ok)
	assert.Equal(t, "$3,000.00", raw)
}

func TestExtractGoldPrice_RegexFallback(t *testing.T) {
	html := `<html><body><p>Gold is trading at $2,655.77 per ounce today.</p></body></html>`
	raw, ok := ExtractGoldPrice(html)
	require.True(t, ok)
	assert.Equal(t, "$2,655.77", raw)
}

func TestExtractGoldPrice_NoMatch(t *testing.T) {
	html := `<html><body><p>Service temporarily unavailable.</p></body></html>`
	_, ok := ExtractGoldPrice(html)
	assert.False(t, ok)
}

func TestGoldFetcher_Fetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("t")
		w.Write([]byte(`<html><body><div class="priceValue">$3,312.54</div></body></html>`))
	}))
	defer srv.Close()

	fetcher := &GoldFetcher{URL: srv.URL}
	raw, err := fetcher.Fetch(context.Background(), srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "$3,312.54", raw)
	assert.NotEmpty(t, gotQuery, "expected a cache-busting query parameter")
}

func TestGoldFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	fetcher := &GoldFetcher{URL: srv.URL}
	_, err := fetcher.Fetch(context.Background(), srv.Client())
	assert.Error(t, err)
}
