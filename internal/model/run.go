package model

import "time"

// PriceSource tells where the anchor price of a run came from.
type PriceSource string

const (
	PriceSourceAPI      PriceSource = "api"
	PriceSourceFallback PriceSource = "fallback"
)

// Quote is the anchor price used to generate a run.
type Quote struct {
	CoinID   string
	Currency string
	Price    float64
	Source   PriceSource
	FetchErr error // set when Source is PriceSourceFallback
}

// RunResult holds everything a single pipeline run produced.
type RunResult struct {
	Quote          Quote
	AnchorTime     time.Time
	History        []PricePoint
	HistorySummary SeriesSummary
	Forecasts      ForecastBundle
	Summaries      map[Horizon]SeriesSummary
	OutputPath     string
	FinishedAt     time.Time
}
