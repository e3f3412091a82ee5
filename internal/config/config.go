package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Root anchors relative output and database paths. It is itself relative
	// to the directory holding the config file.
	Root string `yaml:"root"`
	Coin struct {
		ID            string  `yaml:"id"`
		Currency      string  `yaml:"vs_currency"`
		FallbackPrice float64 `yaml:"fallback_price"`
	} `yaml:"coin"`
	PriceAPI struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"price_api"`
	History struct {
		Days  int     `yaml:"days"`
		Seed  uint64  `yaml:"seed"`
		Scale float64 `yaml:"scale"`
	} `yaml:"history"`
	Forecast struct {
		Seed  uint64  `yaml:"seed"` // 0 draws fresh entropy every run
		Scale float64 `yaml:"scale"`
	} `yaml:"forecast"`
	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr          string `yaml:"addr"`
		AllowedOrigin string `yaml:"allowed_origin"`
	} `yaml:"server"`
	Schedule struct {
		ForecastCron string `yaml:"forecast_cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file yields the defaults, with paths left relative to the working
// directory.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if len(data) > 0 {
		if err := cfg.resolvePaths(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// resolvePaths makes relative output and database paths absolute under Root,
// so the binary writes to the same place whatever directory it runs from.
func (c *Config) resolvePaths(configDir string) error {
	base := c.Root
	if !filepath.IsAbs(base) {
		abs, err := filepath.Abs(filepath.Join(configDir, base))
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}
		base = abs
	}
	base = filepath.Clean(base)
	c.Root = base
	c.Output.Path = under(base, c.Output.Path)
	c.Database.SQLitePath = under(base, c.Database.SQLitePath)
	return nil
}

func under(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		c.PriceAPI.BaseURL = v
	}
	if v := os.Getenv("COIN_ID"); v != "" {
		c.Coin.ID = v
	}
	if v := os.Getenv("VS_CURRENCY"); v != "" {
		c.Coin.Currency = v
	}
	if v := os.Getenv("FALLBACK_PRICE"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FALLBACK_PRICE: %w", err)
		}
		c.Coin.FallbackPrice = p
	}
	if v := os.Getenv("FORECAST_SEED"); v != "" {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FORECAST_SEED: %w", err)
		}
		c.Forecast.Seed = s
	}
	if v := os.Getenv("OUTPUT_PATH"); v != "" {
		c.Output.Path = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CRON_FORECAST"); v != "" {
		c.Schedule.ForecastCron = v
	}
	if os.Getenv("RUN_ON_START") == "true" {
		c.Schedule.RunOnStart = true
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Coin.ID == "" {
		c.Coin.ID = "bitcoin"
	}
	if c.Coin.Currency == "" {
		c.Coin.Currency = "usd"
	}
	if c.PriceAPI.BaseURL == "" {
		c.PriceAPI.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.History.Days == 0 {
		c.History.Days = 30
	}
	if c.History.Seed == 0 {
		c.History.Seed = 42
	}
	if c.History.Scale == 0 {
		c.History.Scale = 100
	}
	if c.Forecast.Scale == 0 {
		c.Forecast.Scale = 50
	}
	if c.Output.Path == "" {
		c.Output.Path = "public/predictions.json"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.AllowedOrigin == "" {
		c.Server.AllowedOrigin = "http://localhost:3000"
	}
	if c.Schedule.ForecastCron == "" {
		c.Schedule.ForecastCron = "0 0 * * * *"
	}
}

// Validate checks that generation settings are usable.
func (c *Config) Validate() error {
	if c.Coin.FallbackPrice < 0 {
		return fmt.Errorf("coin.fallback_price must not be negative")
	}
	if c.History.Days <= 0 {
		return fmt.Errorf("history.days must be positive")
	}
	if c.History.Scale <= 0 {
		return fmt.Errorf("history.scale must be positive")
	}
	if c.Forecast.Scale <= 0 {
		return fmt.Errorf("forecast.scale must be positive")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// NotifierEnabled reports whether Telegram credentials are configured.
func (c *Config) NotifierEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
