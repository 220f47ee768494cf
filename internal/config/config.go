// Package config loads and validates the YAML configuration file and
// converts it into the typed configs of each subsystem.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/strikecast/strikecast/internal/domain/options"
	"github.com/strikecast/strikecast/internal/domain/predict"
	"github.com/strikecast/strikecast/internal/engine"
	httpapi "github.com/strikecast/strikecast/internal/interfaces/http"
	"github.com/strikecast/strikecast/internal/marketdata"
	"github.com/strikecast/strikecast/internal/pricing"
	"github.com/strikecast/strikecast/internal/strategy"
)

// Config is the full application configuration.
type Config struct {
	LogLevel  string   `yaml:"log_level"`
	Watchlist []string `yaml:"watchlist"`

	Engine struct {
		LookbackDays        int           `yaml:"lookback_days"`
		ExpirationDaysAhead int           `yaml:"expiration_days_ahead"`
		Workers             int           `yaml:"workers"`
		CacheTTL            time.Duration `yaml:"cache_ttl"`
		RegimeMultiplier    float64       `yaml:"regime_multiplier"`
	} `yaml:"engine"`

	Strategies []string          `yaml:"strategies"`
	Criteria   strategy.Criteria `yaml:"criteria"`

	Pricing struct {
		Model               string             `yaml:"model"`
		DefaultVolatility   float64            `yaml:"default_volatility"`
		VolatilityOverrides map[string]float64 `yaml:"volatility_overrides"`
	} `yaml:"pricing"`

	Provider struct {
		Timeout time.Duration `yaml:"timeout"`
		Retries int           `yaml:"retries"`
		RPS     float64       `yaml:"rps"`
		Burst   int           `yaml:"burst"`
	} `yaml:"provider"`

	Server httpapi.ServerConfig `yaml:"server"`
}

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	var c Config
	c.LogLevel = "info"
	c.Watchlist = []string{"SPY", "QQQ", "IWM", "AAPL", "MSFT", "NVDA"}

	ec := engine.DefaultConfig()
	c.Engine.LookbackDays = ec.LookbackDays
	c.Engine.ExpirationDaysAhead = ec.ExpirationDaysAhead
	c.Engine.Workers = ec.Workers
	c.Engine.CacheTTL = ec.CacheTTL
	c.Engine.RegimeMultiplier = ec.Predict.RegimeMultiplier

	c.Strategies = nil
	c.Criteria = ec.Criteria

	pc := pricing.DefaultConfig()
	c.Pricing.Model = string(pc.Model)
	c.Pricing.DefaultVolatility = pc.DefaultVolatility
	c.Pricing.VolatilityOverrides = pc.VolatilityOverrides

	rc := marketdata.DefaultResilientConfig()
	c.Provider.Timeout = rc.Timeout
	c.Provider.Retries = rc.Retries
	c.Provider.RPS = rc.RPS
	c.Provider.Burst = rc.Burst

	c.Server = httpapi.DefaultServerConfig()
	return c
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("config: watchlist is empty")
	}
	if c.Engine.LookbackDays < 15 {
		return fmt.Errorf("config: lookback_days %d below indicator warm-up", c.Engine.LookbackDays)
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive")
	}
	if c.Pricing.DefaultVolatility <= 0 || c.Pricing.DefaultVolatility > 3 {
		return fmt.Errorf("config: default_volatility %.2f out of range", c.Pricing.DefaultVolatility)
	}
	switch pricing.Model(c.Pricing.Model) {
	case pricing.ModelTiered, pricing.ModelBlackScholes:
	default:
		return fmt.Errorf("config: unknown pricing model %q", c.Pricing.Model)
	}
	if _, err := c.Kinds(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// EngineConfig converts to the engine's typed config.
func (c Config) EngineConfig() (engine.Config, error) {
	kinds, err := c.Kinds()
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		LookbackDays:        c.Engine.LookbackDays,
		ExpirationDaysAhead: c.Engine.ExpirationDaysAhead,
		Workers:             c.Engine.Workers,
		CacheTTL:            c.Engine.CacheTTL,
		Predict:             predict.Config{RegimeMultiplier: c.Engine.RegimeMultiplier},
		Criteria:            c.Criteria,
		Kinds:               kinds,
	}, nil
}

// PricerConfig converts to the pricing engine's typed config.
func (c Config) PricerConfig() pricing.Config {
	return pricing.Config{
		Model:               pricing.Model(c.Pricing.Model),
		DefaultVolatility:   c.Pricing.DefaultVolatility,
		VolatilityOverrides: c.Pricing.VolatilityOverrides,
	}
}

// ResilientConfig converts to the provider wrapper's typed config.
func (c Config) ResilientConfig() marketdata.ResilientConfig {
	rc := marketdata.DefaultResilientConfig()
	if c.Provider.Timeout > 0 {
		rc.Timeout = c.Provider.Timeout
	}
	if c.Provider.Retries > 0 {
		rc.Retries = c.Provider.Retries
	}
	if c.Provider.RPS > 0 {
		rc.RPS = c.Provider.RPS
	}
	if c.Provider.Burst > 0 {
		rc.Burst = c.Provider.Burst
	}
	return rc
}

// Kinds parses the configured strategy names. Empty means all.
func (c Config) Kinds() ([]options.StrategyKind, error) {
	if len(c.Strategies) == 0 {
		return options.Kinds(), nil
	}
	kinds := make([]options.StrategyKind, 0, len(c.Strategies))
	for _, name := range c.Strategies {
		k, err := options.ParseStrategyKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
