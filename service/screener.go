package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dnldd/screener/config"
	"github.com/dnldd/screener/database"
	"github.com/dnldd/screener/engine"
	"github.com/dnldd/screener/export"
	"github.com/dnldd/screener/fetch"
	"github.com/dnldd/screener/indicator"
	"github.com/dnldd/screener/market"
	"github.com/dnldd/screener/metrics"
	"github.com/dnldd/screener/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// ScreenerConfig represents the configuration struct for the screener service.
type ScreenerConfig struct {
	// Analysis represents the resolved analysis settings.
	Analysis *config.Settings
	// NoFetch loads candles from the historic data file instead of fetching them.
	NoFetch bool
	// DataFilepath is the filepath to the historic market data.
	DataFilepath string
	// BinanceURL is the binance api base url.
	BinanceURL string
	// ExportJSON writes ranked signals to the output file.
	ExportJSON bool
	// Output is the json export filepath.
	Output string
	// DBEndpoint is the signal database endpoint, signals are not persisted when empty.
	DBEndpoint string
	// DBUser is the signal database user.
	DBUser string
	// DBPass is the signal database user pass.
	DBPass string
	// Interval is the analysis interval, a single analysis runs when zero.
	Interval time.Duration
	// MetricsAddr is the metrics server address, metrics are not served when empty.
	MetricsAddr string
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *ScreenerConfig) Validate() error {
	var errs error

	if cfg.Analysis == nil {
		errs = errors.Join(errs, fmt.Errorf("analysis settings cannot be nil"))
	}
	if cfg.NoFetch && cfg.DataFilepath == "" {
		errs = errors.Join(errs, fmt.Errorf("historic data filepath cannot be an empty string"))
	}
	if !cfg.NoFetch && cfg.BinanceURL == "" {
		errs = errors.Join(errs, fmt.Errorf("binance url cannot be an empty string"))
	}
	if cfg.ExportJSON && cfg.Output == "" {
		errs = errors.Join(errs, fmt.Errorf("output filepath cannot be an empty string"))
	}
	if cfg.Interval < 0 {
		errs = errors.Join(errs, fmt.Errorf("interval cannot be negative, got %s", cfg.Interval))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Screener represents the multi-timeframe signal screening service.
type Screener struct {
	cfg          *ScreenerConfig
	engine       *engine.Engine
	fetchManager *fetch.Manager
	historicData *shared.HistoricData
	store        *market.Store
	exporter     *export.JSONExporter
	db           *database.Database
	recorder     *metrics.Recorder
	logger       *zerolog.Logger
	storeLogger  *zerolog.Logger
	runMtx       sync.Mutex
	wg           sync.WaitGroup
}

// NewScreener initializes a new screener service.
func NewScreener(ctx context.Context, cfg *ScreenerConfig) (*Screener, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating screener config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "screener").Logger()
	settings := cfg.Analysis

	bank, err := indicator.NewBank(settings.Kinds, settings.Params)
	if err != nil {
		return nil, fmt.Errorf("creating indicator bank: %w", err)
	}

	scorer, err := engine.NewScorer(&engine.ScorerConfig{
		Thresholds: settings.Thresholds,
		Weights:    settings.IndicatorWeights,
		Gain:       settings.ConfidenceGain,
	})
	if err != nil {
		return nil, fmt.Errorf("creating scorer: %w", err)
	}

	fusion, err := engine.NewFusion(&engine.FusionConfig{
		AgreementBonus:      settings.AgreementBonus,
		DisagreementPenalty: settings.DisagreementPenalty,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fusion: %w", err)
	}

	recorder := metrics.New()

	engineLogger := logger.With().Str("component", "engine").Logger()
	eng, err := engine.NewEngine(&engine.EngineConfig{
		Bank:     bank,
		Scorer:   scorer,
		Fusion:   fusion,
		Weights:  settings.Weights,
		Policy:   settings.Policy,
		Recorder: recorder,
		Logger:   &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	storeLogger := logger.With().Str("component", "store").Logger()
	store, err := market.NewStore(&market.StoreConfig{
		Limit:  int32(settings.CandleLimit),
		Logger: &storeLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating candle store: %w", err)
	}

	screener := &Screener{
		cfg:         cfg,
		engine:      eng,
		store:       store,
		recorder:    recorder,
		logger:      &logger,
		storeLogger: &storeLogger,
	}

	switch cfg.NoFetch {
	case true:
		historicDataLogger := logger.With().Str("component", "historicdata").Logger()
		screener.historicData, err = shared.NewHistoricData(&shared.HistoricDataConfig{
			FilePath: cfg.DataFilepath,
			Logger:   &historicDataLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating historic data: %w", err)
		}

		gaps, err := checkCoverage(screener.historicData, settings.Assets, settings.Timeframes)
		if err != nil {
			return nil, fmt.Errorf("checking historic data: %w", err)
		}
		for _, gap := range gaps {
			historicDataLogger.Warn().Msgf("historic data has no %s candles", gap)
		}
		historicDataLogger.Info().Msgf("historic data spans %s to %s",
			screener.historicData.FetchStartTime().Format(time.RFC3339),
			screener.historicData.FetchEndTime().Format(time.RFC3339))
	case false:
		client, err := fetch.NewBinanceClient(&fetch.BinanceConfig{
			BaseURL: cfg.BinanceURL,
			Quote:   fetch.DefaultQuote,
			Timeout: time.Second * 10,
		})
		if err != nil {
			return nil, fmt.Errorf("creating binance client: %w", err)
		}

		fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
		screener.fetchManager, err = fetch.NewManager(&fetch.ManagerConfig{
			Fetcher: client,
			Limit:   settings.CandleLimit,
			Logger:  &fetchMgrLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating fetch manager: %w", err)
		}
	}

	if cfg.ExportJSON {
		exporterLogger := logger.With().Str("component", "exporter").Logger()
		screener.exporter, err = export.NewJSONExporter(&export.JSONExporterConfig{
			Path:          cfg.Output,
			MinConfidence: settings.RankOptions.MinConfidence,
			Logger:        &exporterLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating json exporter: %w", err)
		}
	}

	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		screener.db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}
	}

	return screener, nil
}

// checkCoverage lists the analyzed asset and timeframe pairs missing from the
// provided historic data. It errors when none of the assets are covered.
func checkCoverage(data *shared.HistoricData, assets []string, timeframes []shared.Timeframe) ([]string, error) {
	markets := data.FetchMarkets()
	gaps := []string{}
	covered := 0

	for _, asset := range assets {
		if !slices.Contains(markets, asset) {
			gaps = append(gaps, asset)
			continue
		}

		covered++
		available := data.FetchTimeframes(asset)
		for _, timeframe := range timeframes {
			if !slices.Contains(available, timeframe) {
				gaps = append(gaps, fmt.Sprintf("%s (%s)", asset, timeframe.String()))
			}
		}
	}

	if covered == 0 {
		return gaps, fmt.Errorf("no candles for any of the analyzed assets %v, found %v", assets, markets)
	}

	return gaps, nil
}

// populate reloads the candles of the analyzed assets and timeframes into
// the screener's store.
func (s *Screener) populate(ctx context.Context) error {
	settings := s.cfg.Analysis
	s.store.Reset()

	if s.historicData != nil {
		return s.historicData.Replay(s.store.Update)
	}

	err := s.fetchManager.Populate(ctx, s.store, settings.Assets, settings.Timeframes)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn().Msgf("incomplete market data: %v", err)
	}

	return nil
}

// RunOnce runs a single analysis over the configured assets and timeframes,
// returning the ranked report.
func (s *Screener) RunOnce(ctx context.Context) (*engine.Report, error) {
	s.runMtx.Lock()
	defer s.runMtx.Unlock()

	settings := s.cfg.Analysis

	err := s.populate(ctx)
	if err != nil {
		return nil, fmt.Errorf("populating candle store: %w", err)
	}

	held := s.store.Assets()
	s.storeLogger.Debug().Msgf("holding candles for %v", held)
	for _, asset := range settings.Assets {
		if !slices.Contains(held, asset) {
			s.storeLogger.Warn().Msgf("no candles held for %s", asset)
			continue
		}

		timeframes := s.store.Timeframes(asset)
		if len(timeframes) < len(settings.Timeframes) {
			s.storeLogger.Warn().Msgf("holding %d of %d timeframes for %s", len(timeframes),
				len(settings.Timeframes), asset)
		}
	}

	report := s.engine.Analyze(s.store, settings.Assets, settings.Timeframes)
	ranked := &engine.Report{
		Signals:  engine.Rank(report.Signals, settings.RankOptions),
		Failures: report.Failures,
	}

	for idx := range ranked.Signals {
		signal := &ranked.Signals[idx]
		s.logger.Info().Msgf("%s %s %s signal (%s), confidence %.3f, price %.4f, stop loss %.4f", signal.Asset,
			signal.Strength.String(), signal.Direction.String(), signal.Agreement.String(), signal.Confidence,
			signal.Price, signal.StopLoss)
	}

	var errs error
	if s.exporter != nil {
		err := s.exporter.Export(ranked)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("exporting report: %w", err))
		}
	}

	if s.db != nil {
		err := s.db.PersistSignals(ctx, ranked.Signals)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("persisting signals: %w", err))
		}
	}

	s.recorder.RecordRun(time.Now())
	s.logger.Info().Msgf("analysis done: %d of %d assets qualified, %d failed", len(ranked.Signals),
		len(settings.Assets), len(ranked.Failures))

	return ranked, errs
}

// serveMetrics serves the recorded metrics until the provided context is cancelled.
func (s *Screener) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.recorder.Handler())

	server := &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error().Msgf("serving metrics: %v", err)
	}
}

// Run handles the lifecycle processes of the screener service. A single
// analysis is run when no interval is configured, otherwise analyses are
// scheduled on the interval until the context is cancelled.
func (s *Screener) Run(ctx context.Context) {
	if s.cfg.MetricsAddr != "" {
		s.wg.Add(1)
		go func() {
			s.serveMetrics(ctx)
			s.wg.Done()
		}()
	}

	runFunc := func() {
		_, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Error().Msgf("running analysis: %v", err)
		}
	}

	switch s.cfg.Interval {
	case 0:
		runFunc()
		s.cfg.Cancel()
	default:
		scheduler := gocron.NewScheduler(time.UTC)
		scheduler.SingletonModeAll()

		_, err := scheduler.Every(s.cfg.Interval).Do(runFunc)
		if err != nil {
			s.logger.Error().Msgf("scheduling analysis: %v", err)
			s.cfg.Cancel()
			break
		}

		scheduler.StartAsync()
		<-ctx.Done()
		scheduler.Stop()
	}

	s.wg.Wait()
}
