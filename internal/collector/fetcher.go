package collector

import "context"

// Fetcher defines the interface for fetching a coin's spot price.
type Fetcher interface {
	FetchCurrentPrice(ctx context.Context, coinID, currency string) (float64, error)
	Name() string
}
