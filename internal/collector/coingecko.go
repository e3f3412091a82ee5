package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// DefaultCoinGeckoURL is the public CoinGecko API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// ErrPriceMissing is returned when the response has no price for the requested pair.
var ErrPriceMissing = errors.New("price missing from response")

// CoinGeckoFetcher implements Fetcher using the CoinGecko simple price endpoint.
type CoinGeckoFetcher struct {
	BaseURL string
	Client  *resty.Client
}

// NewCoinGeckoFetcher creates a new fetcher with optional proxy support.
func NewCoinGeckoFetcher(baseURL, proxyURL string) *CoinGeckoFetcher {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Accept", "application/json")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &CoinGeckoFetcher{BaseURL: baseURL, Client: client}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// FetchCurrentPrice performs a single GET /simple/price and returns the quoted price.
func (f *CoinGeckoFetcher) FetchCurrentPrice(ctx context.Context, coinID, currency string) (float64, error) {
	resp, err := f.Client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           coinID,
			"vs_currencies": currency,
		}).
		Get("/simple/price")
	if err != nil {
		return 0, fmt.Errorf("fetch current price: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("fetch current price: status %d", resp.StatusCode())
	}

	// {"bitcoin": {"usd": 67890.12}}
	var result map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return 0, fmt.Errorf("decode price: %w", err)
	}
	quotes, ok := result[coinID]
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", coinID, currency, ErrPriceMissing)
	}
	price, ok := quotes[currency]
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", coinID, currency, ErrPriceMissing)
	}
	if !price.IsPositive() {
		return 0, fmt.Errorf("%s/%s: non-positive price %s", coinID, currency, price.String())
	}
	return price.InexactFloat64(), nil
}
