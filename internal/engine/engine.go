// Package engine orchestrates the screening pipeline: price history in,
// indicators and regime scoring, range prediction, strategy construction,
// ranking and URL encoding.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strikecast/strikecast/internal/cache"
	"github.com/strikecast/strikecast/internal/domain/indicators"
	"github.com/strikecast/strikecast/internal/domain/market"
	"github.com/strikecast/strikecast/internal/domain/options"
	"github.com/strikecast/strikecast/internal/domain/predict"
	"github.com/strikecast/strikecast/internal/domain/regime"
	"github.com/strikecast/strikecast/internal/marketdata"
	"github.com/strikecast/strikecast/internal/metrics"
	"github.com/strikecast/strikecast/internal/pricing"
	"github.com/strikecast/strikecast/internal/strategy"
)

// Config holds the engine tunables.
type Config struct {
	// LookbackDays bounds the history fetch. Must cover the indicator
	// warm-up window with margin.
	LookbackDays int `yaml:"lookback_days"`
	// ExpirationDaysAhead is the minimum days until the target expiration.
	ExpirationDaysAhead int `yaml:"expiration_days_ahead"`
	// Workers bounds screening concurrency.
	Workers int `yaml:"workers"`
	// CacheTTL bounds how long per-ticker results are reused within a
	// single screening batch. Caches never outlive the batch they were
	// filled in.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	Predict  predict.Config    `yaml:"predict"`
	Criteria strategy.Criteria `yaml:"criteria"`
	// Kinds selects the strategy shapes to build. Empty means all.
	Kinds []options.StrategyKind `yaml:"-"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		LookbackDays:        90,
		ExpirationDaysAhead: 7,
		Workers:             4,
		CacheTTL:            5 * time.Minute,
		Predict:             predict.DefaultConfig(),
		Criteria:            strategy.Criteria{AllowSynthetic: true},
		Kinds:               options.Kinds(),
	}
}

// TickerResult is the outcome for one ticker in a batch. Err is set when the
// ticker failed; the rest of the batch is unaffected.
type TickerResult struct {
	Ticker     string              `json:"ticker"`
	Prediction predict.Prediction  `json:"prediction"`
	Candidates []options.Candidate `json:"candidates"`
	Err        error               `json:"-"`
	ErrText    string              `json:"error,omitempty"`
}

// BatchResult is one full screening run.
type BatchResult struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Results   []TickerResult `json:"results"`
}

// Engine wires the provider, pricing and strategy layers together.
type Engine struct {
	cfg      Config
	provider marketdata.Provider
	pricer   *pricing.Engine
	builder  *strategy.Builder
	metrics  *metrics.Set
	log      zerolog.Logger
	now      func() time.Time
}

// session holds the per-ticker caches for one unit of work: a single Screen
// batch, or one standalone PredictRange/BuildCandidates call. Entries are
// reused freely inside the session (a prediction computed for a ticker feeds
// its candidate build without a refetch) but never survive it, so two
// unrelated batches always see fresh market data.
type session struct {
	series  *cache.TTL[market.Series]
	predict *cache.TTL[predict.Prediction]
}

func (e *Engine) newSession() *session {
	return &session{
		series:  cache.NewTTL[market.Series](256),
		predict: cache.NewTTL[predict.Prediction](256),
	}
}

// New builds an engine. The metrics set may be nil for metric-free use.
func New(cfg Config, provider marketdata.Provider, pricer *pricing.Engine, m *metrics.Set, log zerolog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 90
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = options.Kinds()
	}
	return &Engine{
		cfg:      cfg,
		provider: provider,
		pricer:   pricer,
		builder:  strategy.NewBuilder(pricer, log),
		metrics:  m,
		log:      log.With().Str("component", "engine").Logger(),
		now:      time.Now,
	}
}

// WithClock overrides the engine clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) series(ctx context.Context, sess *session, ticker string) (market.Series, error) {
	if s, ok := sess.series.Get(ticker); ok {
		return s, nil
	}
	s, err := e.provider.PriceHistory(ctx, ticker, e.cfg.LookbackDays)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}
	sess.series.Set(ticker, s, e.cfg.CacheTTL)
	return s, nil
}

// PredictRange produces the range prediction for one ticker, with the IV
// comparison overlay attached when the provider reports one. IV failures are
// never fatal; the ATR range stands on its own. Each call fetches fresh data;
// caching only happens inside a Screen batch.
func (e *Engine) PredictRange(ctx context.Context, ticker string) (predict.Prediction, error) {
	return e.predictRange(ctx, e.newSession(), ticker)
}

func (e *Engine) predictRange(ctx context.Context, sess *session, ticker string) (predict.Prediction, error) {
	if p, ok := sess.predict.Get(ticker); ok {
		return p, nil
	}

	series, err := e.series(ctx, sess, ticker)
	if err != nil {
		return predict.Prediction{}, err
	}
	snap, err := indicators.Compute(series)
	if err != nil {
		return predict.Prediction{}, fmt.Errorf("%s: %w", ticker, err)
	}
	bias := regime.ScoreSnapshot(snap)
	pred, err := predict.Range(ticker, snap, bias, e.cfg.Predict)
	if err != nil {
		return predict.Prediction{}, err
	}

	if iv, ok, ivErr := e.provider.ImpliedVolatility(ctx, ticker); ivErr != nil {
		e.log.Warn().Str("ticker", ticker).Err(ivErr).Msg("implied volatility unavailable, skipping overlay")
	} else if ok {
		pred = pred.WithIVOverlay(iv)
	}

	sess.predict.Set(ticker, pred, e.cfg.CacheTTL)
	return pred, nil
}

// BuildCandidates constructs, filters and ranks strategy candidates for one
// ticker at the next target expiration. Kinds that cannot be built (no
// usable strikes, unpriceable legs, negative risk) are dropped, not patched.
func (e *Engine) BuildCandidates(ctx context.Context, ticker string) ([]options.Candidate, predict.Prediction, error) {
	return e.buildCandidates(ctx, e.newSession(), ticker)
}

func (e *Engine) buildCandidates(ctx context.Context, sess *session, ticker string) ([]options.Candidate, predict.Prediction, error) {
	pred, err := e.predictRange(ctx, sess, ticker)
	if err != nil {
		return nil, predict.Prediction{}, err
	}

	expiration := e.NextExpiration()

	chain, err := e.provider.OptionChain(ctx, ticker, expiration)
	if err != nil {
		e.log.Warn().Str("ticker", ticker).Err(err).Msg("option chain unavailable, pricing synthetically")
		chain = nil
	}

	var liquidity float64
	if series, sErr := e.series(ctx, sess, ticker); sErr == nil {
		liquidity = series.AvgVolume(20)
	} else {
		e.log.Warn().Str("ticker", ticker).Err(sErr).Msg("liquidity history unavailable, volume treated as zero")
	}

	in := strategy.Inputs{
		Prediction: pred,
		Expiration: expiration,
		Chain:      chain,
		Liquidity:  liquidity,
	}

	built := make([]options.Candidate, 0, len(e.cfg.Kinds))
	for _, kind := range e.cfg.Kinds {
		cand, buildErr := e.builder.Build(kind, in)
		if buildErr != nil {
			e.log.Debug().Str("ticker", ticker).Stringer("kind", kind).Err(buildErr).Msg("candidate rejected")
			e.countRejected(kind)
			continue
		}
		strategy.SortLegs(&cand)
		e.countBuilt(cand)
		built = append(built, cand)
	}

	kept := strategy.Filter(built, e.cfg.Criteria)
	strategy.Sort(kept)
	return kept, pred, nil
}

// EncodeURL renders the strategy-visualization URL for a candidate.
func (e *Engine) EncodeURL(c options.Candidate) (string, error) {
	return strategy.Encode(c)
}

// NextExpiration returns the next Friday at least ExpirationDaysAhead away,
// normalized to UTC midnight.
func (e *Engine) NextExpiration() time.Time {
	t := e.now().AddDate(0, 0, e.cfg.ExpirationDaysAhead)
	for t.Weekday() != time.Friday {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Screen runs the full pipeline across a watchlist with a bounded worker
// pool. One failing ticker never sinks the batch; its result carries the
// error and the rest complete normally.
func (e *Engine) Screen(ctx context.Context, tickers []string) BatchResult {
	start := e.now()
	batch := BatchResult{
		ID:        uuid.NewString(),
		StartedAt: start,
		Results:   make([]TickerResult, len(tickers)),
	}

	log := e.log.With().Str("batch_id", batch.ID).Logger()
	log.Info().Int("tickers", len(tickers)).Msg("screening batch started")

	// One session per batch: tickers inside the batch share fetched data,
	// later batches start cold.
	sess := e.newSession()

	type job struct {
		idx    int
		ticker string
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	workers := e.cfg.Workers
	if workers > len(tickers) {
		workers = len(tickers)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				batch.Results[j.idx] = e.screenOne(ctx, sess, j.ticker)
			}
		}()
	}

feed:
	for i, t := range tickers {
		select {
		case <-ctx.Done():
			for k := i; k < len(tickers); k++ {
				batch.Results[k] = TickerResult{Ticker: tickers[k], Err: ctx.Err(), ErrText: ctx.Err().Error()}
			}
			break feed
		case jobs <- job{idx: i, ticker: t}:
		}
	}
	close(jobs)
	wg.Wait()

	batch.Duration = e.now().Sub(start)
	if e.metrics != nil {
		e.metrics.ScreensTotal.Inc()
		e.metrics.ScreenDuration.Observe(batch.Duration.Seconds())
	}
	log.Info().Dur("duration", batch.Duration).Msg("screening batch finished")
	return batch
}

func (e *Engine) screenOne(ctx context.Context, sess *session, ticker string) TickerResult {
	if err := ctx.Err(); err != nil {
		return TickerResult{Ticker: ticker, Err: err, ErrText: err.Error()}
	}
	cands, pred, err := e.buildCandidates(ctx, sess, ticker)
	if err != nil {
		e.log.Warn().Str("ticker", ticker).Err(err).Msg("ticker skipped")
		return TickerResult{Ticker: ticker, Err: err, ErrText: err.Error()}
	}
	return TickerResult{Ticker: ticker, Prediction: pred, Candidates: cands}
}

func (e *Engine) countBuilt(c options.Candidate) {
	if e.metrics == nil {
		return
	}
	e.metrics.CandidatesBuilt.WithLabelValues(c.Kind.Slug()).Inc()
	for _, l := range c.Legs {
		if l.Provenance == options.ProvenanceSynthetic {
			e.metrics.PricingFallbacks.Inc()
		}
	}
}

func (e *Engine) countRejected(kind options.StrategyKind) {
	if e.metrics != nil {
		e.metrics.CandidatesRejected.WithLabelValues(kind.Slug()).Inc()
	}
}
