package model

import "time"

// PricePoint is a single price observation or simulated value.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// Horizon labels a forecast window.
type Horizon string

const (
	Horizon1D Horizon = "1D"
	Horizon1W Horizon = "1W"
	Horizon1M Horizon = "1M"
)

// Horizons lists every forecast window in output order.
var Horizons = []Horizon{Horizon1D, Horizon1W, Horizon1M}

// Hours returns the number of hourly points the horizon covers, or 0 for an unknown label.
func (h Horizon) Hours() int {
	switch h {
	case Horizon1D:
		return 24
	case Horizon1W:
		return 24 * 7
	case Horizon1M:
		return 24 * 30
	default:
		return 0
	}
}

// ForecastBundle maps each horizon to its hourly forecast series.
type ForecastBundle map[Horizon][]PricePoint

// SeriesSummary describes a price series without carrying its points.
type SeriesSummary struct {
	Points int     `json:"points"`
	First  float64 `json:"first"`
	Last   float64 `json:"last"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}
