package simulator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"CoinForecast/internal/model"
)

// Forecaster builds a ForecastBundle for every horizon in model.Horizons.
type Forecaster struct {
	Sources SourceFactory
	Scale   float64
}

// NewForecaster creates a Forecaster. A zero seed selects fresh entropy per run.
func NewForecaster(seed uint64, scale float64) *Forecaster {
	sources := Entropy()
	if seed != 0 {
		sources = Seeded(seed)
	}
	if scale <= 0 {
		scale = ForecastScale
	}
	return &Forecaster{Sources: sources, Scale: scale}
}

// Bundle generates one independent walk per horizon. Horizon i draws from stream i+1,
// so the shorter series are never prefixes of the longer ones.
func (f *Forecaster) Bundle(ctx context.Context, anchor time.Time, anchorPrice float64) (model.ForecastBundle, error) {
	series := make([][]model.PricePoint, len(model.Horizons))

	g, ctx := errgroup.WithContext(ctx)
	for i, h := range model.Horizons {
		src := f.Sources(uint64(i + 1))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			points, err := GenerateForecast(src, anchor, anchorPrice, h.Hours(), f.Scale)
			if err != nil {
				return fmt.Errorf("forecast %s: %w", h, err)
			}
			series[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundle := make(model.ForecastBundle, len(model.Horizons))
	for i, h := range model.Horizons {
		bundle[h] = series[i]
	}
	return bundle, nil
}
