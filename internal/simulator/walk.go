package simulator

import (
	"errors"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"CoinForecast/internal/model"
)

const (
	// HistorySeed keeps the simulated history identical across runs.
	HistorySeed  = 42
	HistoryDays  = 30
	HistoryScale = 100.0
	// ForecastScale is the per-step price multiplier for forecast walks.
	ForecastScale = 50.0
)

var (
	errNilSource = errors.New("random source is nil")
	errNoPoints  = errors.New("series length must be positive")
)

// RandomWalk returns n values start + scale*cumsum(z) with z drawn from N(0,1).
func RandomWalk(src rand.Source, start float64, n int, scale float64) ([]float64, error) {
	if src == nil {
		return nil, errNilSource
	}
	if n <= 0 {
		return nil, errNoPoints
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	out := make([]float64, n)
	var sum float64
	for i := range n {
		sum += norm.Rand()
		out[i] = start + sum*scale
	}
	return out, nil
}

// GenerateHistory simulates days*24 hourly prices starting days before now.
func GenerateHistory(src rand.Source, now time.Time, days int, initialPrice, scale float64) ([]model.PricePoint, error) {
	if days <= 0 {
		return nil, errors.New("history days must be positive")
	}
	n := days * 24
	prices, err := RandomWalk(src, initialPrice, n, scale)
	if err != nil {
		return nil, err
	}
	start := now.Add(-time.Duration(days) * 24 * time.Hour)
	points := make([]model.PricePoint, n)
	for i, p := range prices {
		points[i] = model.PricePoint{Time: start.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return points, nil
}

// GenerateForecast simulates hourly prices from anchor+1h through anchor+hours.
func GenerateForecast(src rand.Source, anchor time.Time, anchorPrice float64, hours int, scale float64) ([]model.PricePoint, error) {
	prices, err := RandomWalk(src, anchorPrice, hours, scale)
	if err != nil {
		return nil, err
	}
	points := make([]model.PricePoint, hours)
	for i, p := range prices {
		points[i] = model.PricePoint{Time: anchor.Add(time.Duration(i+1) * time.Hour), Price: p}
	}
	return points, nil
}
