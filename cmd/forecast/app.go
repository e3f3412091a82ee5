package main

import (
	"log"
	"os"

	"CoinForecast/internal/collector"
	"CoinForecast/internal/config"
	"CoinForecast/internal/pipeline"
	"CoinForecast/internal/recorder"
	"CoinForecast/internal/simulator"
)

const defaultConfigPath = "configs/config.yaml"

func loadConfig(flagPath string) (*config.Config, error) {
	path := defaultConfigPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	if flagPath != "" {
		path = flagPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func buildPipeline(cfg *config.Config, rec recorder.Recorder) *pipeline.Pipeline {
	fetcher := collector.NewCoinGeckoFetcher(cfg.PriceAPI.BaseURL, cfg.Proxy)
	log.Printf("[INFO] data source: %s", fetcher.Name())

	col := collector.NewCollector(fetcher, cfg.Coin.ID, cfg.Coin.Currency, cfg.Coin.FallbackPrice)
	fc := simulator.NewForecaster(cfg.Forecast.Seed, cfg.Forecast.Scale)
	p := pipeline.New(col, fc, pipeline.HistorySettings{
		Days:  cfg.History.Days,
		Seed:  cfg.History.Seed,
		Scale: cfg.History.Scale,
	}, cfg.Output.Path)
	p.Recorder = rec
	return p
}
