package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dnldd/screener/indicator"
	"github.com/dnldd/screener/market"
	"github.com/dnldd/screener/shared"
	"github.com/rs/zerolog"
)

const (
	// maxWorkers is the default maximum number of concurrently analyzed assets.
	maxWorkers = 16
)

// Policy represents how timeframe failures affect an asset's analysis.
type Policy int

const (
	// Strict aborts an asset's analysis on any timeframe failure.
	Strict Policy = iota + 1
	// Partial drops failed timeframes and fuses the remaining ones.
	Partial
)

// String stringifies the provided policy.
func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Partial:
		return "partial"
	default:
		return "unknown"
	}
}

// ParsePolicy parses the provided policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "partial":
		return Partial, nil
	default:
		return 0, fmt.Errorf("unknown failure policy %q, expected strict or partial", s)
	}
}

// SeriesSource provides candle series by asset and timeframe.
type SeriesSource interface {
	// Series returns the candle series of the provided asset and timeframe.
	Series(asset string, timeframe shared.Timeframe) (*market.CandleSeries, error)
}

// Recorder records analysis outcomes.
type Recorder interface {
	// RecordTimeframe records the outcome of a timeframe computation.
	RecordTimeframe(asset string, timeframe shared.Timeframe, elapsed time.Duration, err error)
	// RecordSignal records a fused signal.
	RecordSignal(signal *shared.FusedSignal)
	// RecordFailure records a failed asset analysis.
	RecordFailure(asset string, err error)
}

// EngineConfig represents the analysis engine configuration.
type EngineConfig struct {
	// Bank computes the indicators of every timeframe.
	Bank *indicator.Bank
	// Scorer reduces indicator readings into timeframe signals.
	Scorer *Scorer
	// Fusion combines timeframe signals.
	Fusion *Fusion
	// Weights represents the fusion weight of each timeframe.
	Weights Weights
	// Policy represents the timeframe failure policy.
	Policy Policy
	// MaxWorkers bounds the number of concurrently analyzed assets.
	MaxWorkers int
	// Recorder records analysis outcomes, optional.
	Recorder Recorder
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.Bank == nil {
		errs = errors.Join(errs, fmt.Errorf("indicator bank cannot be nil"))
	}
	if cfg.Scorer == nil {
		errs = errors.Join(errs, fmt.Errorf("scorer cannot be nil"))
	}
	if cfg.Fusion == nil {
		errs = errors.Join(errs, fmt.Errorf("fusion cannot be nil"))
	}
	if len(cfg.Weights) == 0 {
		errs = errors.Join(errs, fmt.Errorf("timeframe weights cannot be empty"))
	}
	if cfg.Policy != Strict && cfg.Policy != Partial {
		errs = errors.Join(errs, fmt.Errorf("failure policy must be strict or partial"))
	}
	if cfg.MaxWorkers < 0 {
		errs = errors.Join(errs, fmt.Errorf("max workers cannot be negative, got %d", cfg.MaxWorkers))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Report represents the outcome of analyzing a set of assets.
type Report struct {
	// Signals holds the fused signals of successfully analyzed assets.
	Signals []shared.FusedSignal
	// Failures maps assets to the error that aborted their analysis.
	Failures map[string]error
}

// Engine analyzes assets across timeframes into fused signals.
type Engine struct {
	cfg     *EngineConfig
	workers chan struct{}
}

// NewEngine initializes a new analysis engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}

	workers := cfg.MaxWorkers
	if workers == 0 {
		workers = maxWorkers
	}

	return &Engine{
		cfg:     cfg,
		workers: make(chan struct{}, workers),
	}, nil
}

// timeframeResult represents the outcome of a timeframe computation.
type timeframeResult struct {
	signal shared.TimeframeSignal
	err    error
}

// scoreTimeframe computes and scores the indicators of an asset's timeframe.
func (e *Engine) scoreTimeframe(source SeriesSource, asset string, timeframe shared.Timeframe) (shared.TimeframeSignal, error) {
	series, err := source.Series(asset, timeframe)
	if err != nil {
		return shared.TimeframeSignal{}, fmt.Errorf("fetching series: %w", err)
	}

	readings, err := e.cfg.Bank.Compute(indicator.NewRunContext(series))
	if err != nil {
		return shared.TimeframeSignal{}, err
	}

	signal := e.cfg.Scorer.ScoreTimeframe(readings)
	signal.Timeframe = timeframe

	last := series.Last()
	signal.Close = last.Close
	signal.At = last.Date

	return signal, nil
}

// AnalyzeAsset computes a fused signal for the provided asset across the
// provided timeframes. Timeframes are computed concurrently and failures
// are handled according to the configured policy.
func (e *Engine) AnalyzeAsset(source SeriesSource, asset string, timeframes []shared.Timeframe) (shared.FusedSignal, error) {
	if len(timeframes) == 0 {
		return shared.FusedSignal{}, &shared.NoTimeframeDataError{Asset: asset}
	}

	for idx, timeframe := range timeframes {
		if slices.Contains(timeframes[:idx], timeframe) {
			return shared.FusedSignal{}, fmt.Errorf("duplicate timeframe %s requested for %s",
				timeframe.String(), asset)
		}
	}

	err := e.cfg.Weights.Validate(timeframes)
	if err != nil {
		return shared.FusedSignal{}, err
	}

	results := make([]timeframeResult, len(timeframes))
	var wg sync.WaitGroup
	for idx, timeframe := range timeframes {
		wg.Add(1)
		go func(idx int, timeframe shared.Timeframe) {
			defer wg.Done()

			start := time.Now()
			signal, err := e.scoreTimeframe(source, asset, timeframe)
			if e.cfg.Recorder != nil {
				e.cfg.Recorder.RecordTimeframe(asset, timeframe, time.Since(start), err)
			}

			results[idx] = timeframeResult{signal: signal, err: err}
		}(idx, timeframe)
	}
	wg.Wait()

	signals := make([]shared.TimeframeSignal, 0, len(results))
	var errs error
	for idx, result := range results {
		if result.err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s (%s): %w", asset, timeframes[idx].String(), result.err))
			continue
		}

		signals = append(signals, result.signal)
	}

	if errs != nil {
		switch e.cfg.Policy {
		case Strict:
			return shared.FusedSignal{}, errs
		case Partial:
			e.cfg.Logger.Warn().Msgf("dropping failed timeframes: %v", errs)
			if len(signals) == 0 {
				return shared.FusedSignal{}, errors.Join(&shared.NoTimeframeDataError{Asset: asset}, errs)
			}
		}
	}

	return e.cfg.Fusion.FuseSignals(asset, signals, e.cfg.Weights)
}

// Analyze computes fused signals for the provided assets concurrently.
// Signals are reported in asset order, failed assets are reported with
// their errors.
func (e *Engine) Analyze(source SeriesSource, assets []string, timeframes []shared.Timeframe) *Report {
	type assetResult struct {
		signal shared.FusedSignal
		err    error
	}

	results := make([]assetResult, len(assets))
	var wg sync.WaitGroup
	for idx, asset := range assets {
		wg.Add(1)
		e.workers <- struct{}{}
		go func(idx int, asset string) {
			defer func() {
				<-e.workers
				wg.Done()
			}()

			signal, err := e.AnalyzeAsset(source, asset, timeframes)
			results[idx] = assetResult{signal: signal, err: err}
		}(idx, asset)
	}
	wg.Wait()

	report := &Report{
		Signals:  make([]shared.FusedSignal, 0, len(assets)),
		Failures: make(map[string]error),
	}

	for idx, result := range results {
		asset := assets[idx]
		if result.err != nil {
			e.cfg.Logger.Error().Msgf("analyzing %s: %v", asset, result.err)
			report.Failures[asset] = result.err
			if e.cfg.Recorder != nil {
				e.cfg.Recorder.RecordFailure(asset, result.err)
			}
			continue
		}

		report.Signals = append(report.Signals, result.signal)
		if e.cfg.Recorder != nil {
			e.cfg.Recorder.RecordSignal(&result.signal)
		}
	}

	return report
}
