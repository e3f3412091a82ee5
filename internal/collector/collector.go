package collector

import (
	"context"
	"log"

	"CoinForecast/internal/model"
)

// MockFetcher returns a controllable fixed price for development and testing.
type MockFetcher struct {
	Price float64
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, _, _ string) (float64, error) {
	m.Calls++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Price, nil
}

// Collector resolves the anchor quote for a run.
type Collector struct {
	Fetcher       Fetcher
	CoinID        string
	Currency      string
	FallbackPrice float64
}

// NewCollector creates a new Collector. A non-positive fallback selects the per-coin default.
func NewCollector(fetcher Fetcher, coinID, currency string, fallback float64) *Collector {
	if fallback <= 0 {
		fallback = FallbackPrice(coinID)
	}
	return &Collector{
		Fetcher:       fetcher,
		CoinID:        coinID,
		Currency:      currency,
		FallbackPrice: fallback,
	}
}

// Quote fetches the current price once. Any fetch failure is logged and the fallback
// price is returned instead, so Quote never fails.
func (c *Collector) Quote(ctx context.Context) model.Quote {
	q := model.Quote{CoinID: c.CoinID, Currency: c.Currency}

	price, err := c.Fetcher.FetchCurrentPrice(ctx, c.CoinID, c.Currency)
	if err != nil {
		log.Printf("[WARN] %s price fetch failed: %v, using fallback %.2f", c.Fetcher.Name(), err, c.FallbackPrice)
		q.Price = c.FallbackPrice
		q.Source = model.PriceSourceFallback
		q.FetchErr = err
		return q
	}

	log.Printf("[INFO] current %s price: %.2f %s", c.CoinID, price, c.Currency)
	q.Price = price
	q.Source = model.PriceSourceAPI
	return q
}
