// Command strikecast screens a watchlist of tickers, predicts 1-2 week price
// ranges and proposes premium-selling option strategies anchored to them.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/strikecast/strikecast/internal/config"
	"github.com/strikecast/strikecast/internal/engine"
	"github.com/strikecast/strikecast/internal/marketdata"
	"github.com/strikecast/strikecast/internal/metrics"
	"github.com/strikecast/strikecast/internal/pricing"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "strikecast",
		Short: "Price-range prediction and options strategy screening",
		Long: `strikecast predicts a 1-2 week price range per ticker from RSI, MACD,
momentum and ATR, then constructs credit spreads, iron condors and broken-wing
butterflies anchored to that range.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (debug|info|warn|error)")

	root.AddCommand(newScreenCmd(), newPredictCmd(), newURLCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app bundles the wired application services.
type app struct {
	cfg      config.Config
	engine   *engine.Engine
	provider *marketdata.Resilient
	metrics  *metrics.Set
	log      zerolog.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg, flagLogLevel)

	mset := metrics.NewSet()

	// The bundled provider is a deterministic offline data set; swap in a
	// live feed behind the same interface for production use.
	static := marketdata.SeedDemo(time.Now())
	provider := marketdata.NewResilient(static, cfg.ResilientConfig(), log).WithRecorder(mset)

	engCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	pricer := pricing.NewEngine(cfg.PricerConfig())
	eng := engine.New(engCfg, provider, pricer, mset, log)

	return &app{cfg: cfg, engine: eng, provider: provider, metrics: mset, log: log}, nil
}

func newLogger(cfg config.Config, override string) zerolog.Logger {
	level := cfg.LogLevel
	if override != "" {
		level = override
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}
