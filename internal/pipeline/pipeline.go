package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"CoinForecast/internal/collector"
	"CoinForecast/internal/exporter"
	"CoinForecast/internal/model"
	"CoinForecast/internal/recorder"
	"CoinForecast/internal/simulator"
)

// HistorySettings controls the simulated trailing price series.
type HistorySettings struct {
	Days  int
	Seed  uint64
	Scale float64
}

// Pipeline runs fetch -> history -> forecasts -> write -> record.
type Pipeline struct {
	Collector  *collector.Collector
	Forecaster *simulator.Forecaster
	History    HistorySettings
	OutputPath string
	Recorder   recorder.Recorder
	Now        func() time.Time
}

// New creates a Pipeline with the wall clock and a no-op recorder.
func New(col *collector.Collector, fc *simulator.Forecaster, hist HistorySettings, outputPath string) *Pipeline {
	return &Pipeline{
		Collector:  col,
		Forecaster: fc,
		History:    hist,
		OutputPath: outputPath,
		Recorder:   recorder.NewNoopRecorder(),
		Now:        time.Now,
	}
}

// Run executes one full pass and returns what it produced. A failed price fetch
// degrades to the fallback price; every later failure is returned.
func (p *Pipeline) Run(ctx context.Context) (*model.RunResult, error) {
	quote := p.Collector.Quote(ctx)
	res := &model.RunResult{Quote: quote, OutputPath: p.OutputPath}

	now := p.Now()
	history, err := simulator.GenerateHistory(simulator.Seeded(p.History.Seed)(0), now, p.History.Days, quote.Price, p.History.Scale)
	if err != nil {
		return nil, fmt.Errorf("generate history: %w", err)
	}
	res.History = history
	res.HistorySummary = simulator.Summarize(history)
	log.Printf("[INFO] simulated %d-day history: %d points, mean %.2f", p.History.Days, len(history), res.HistorySummary.Mean)

	res.AnchorTime = p.Now()
	bundle, err := p.Forecaster.Bundle(ctx, res.AnchorTime, quote.Price)
	if err != nil {
		return nil, fmt.Errorf("generate forecasts: %w", err)
	}
	res.Forecasts = bundle
	res.Summaries = simulator.SummarizeBundle(bundle)
	for _, h := range model.Horizons {
		s := res.Summaries[h]
		log.Printf("[INFO] forecast %s: %d points, last %.2f", h, s.Points, s.Last)
	}

	if err := exporter.Write(p.OutputPath, bundle); err != nil {
		return nil, err
	}
	res.FinishedAt = p.Now()
	log.Printf("[INFO] predictions written to %s", p.OutputPath)

	if err := p.Recorder.RecordRun(recorder.NewRunEvent(res)); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}
	return res, nil
}
