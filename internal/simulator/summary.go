package simulator

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"CoinForecast/internal/model"
)

// Summarize reduces a series to its descriptive statistics.
func Summarize(points []model.PricePoint) model.SeriesSummary {
	if len(points) == 0 {
		return model.SeriesSummary{}
	}
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	s := model.SeriesSummary{
		Points: len(prices),
		First:  prices[0],
		Last:   prices[len(prices)-1],
		Min:    floats.Min(prices),
		Max:    floats.Max(prices),
	}
	if len(prices) < 2 {
		s.Mean = prices[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(prices, nil)
	return s
}

// SummarizeBundle summarizes every horizon of a bundle.
func SummarizeBundle(b model.ForecastBundle) map[model.Horizon]model.SeriesSummary {
	out := make(map[model.Horizon]model.SeriesSummary, len(b))
	for h, points := range b {
		out[h] = Summarize(points)
	}
	return out
}
