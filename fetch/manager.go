package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dnldd/screener/shared"
	"github.com/rs/zerolog"
)

const (
	// maxWorkers is the default maximum number of concurrent fetches.
	maxWorkers = 8
)

// CandleLoader defines the requirements for loading fetched candles.
type CandleLoader interface {
	// Load adds the provided candles for an asset and timeframe.
	Load(asset string, timeframe shared.Timeframe, candles []shared.Candlestick) error
}

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Fetcher represents the market data client.
	Fetcher shared.MarketFetcher
	// Limit is the number of candles fetched per asset and timeframe.
	Limit int
	// MaxWorkers bounds the number of concurrent fetches.
	MaxWorkers int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("market fetcher cannot be nil"))
	}
	if cfg.Limit <= 0 {
		errs = errors.Join(errs, fmt.Errorf("candle limit must be positive, got %d", cfg.Limit))
	}
	if cfg.MaxWorkers < 0 {
		errs = errors.Join(errs, fmt.Errorf("max workers cannot be negative, got %d", cfg.MaxWorkers))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager populates candle stores with fetched market data.
type Manager struct {
	cfg     *ManagerConfig
	workers chan struct{}
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fetch manager config: %w", err)
	}

	workers := cfg.MaxWorkers
	if workers == 0 {
		workers = maxWorkers
	}

	return &Manager{
		cfg:     cfg,
		workers: make(chan struct{}, workers),
	}, nil
}

// fetch fetches and loads the candles of the provided asset and timeframe.
func (m *Manager) fetch(ctx context.Context, loader CandleLoader, asset string, timeframe shared.Timeframe) error {
	data, err := m.cfg.Fetcher.FetchKlines(ctx, asset, timeframe, m.cfg.Limit)
	if err != nil {
		return err
	}

	candles, err := m.cfg.Fetcher.ParseCandlesticks(data, asset, timeframe)
	if err != nil {
		return fmt.Errorf("parsing candlesticks for %s (%s): %w", asset, timeframe.String(), err)
	}

	if len(candles) == 0 {
		return fmt.Errorf("no candles fetched for %s (%s)", asset, timeframe.String())
	}

	return loader.Load(asset, timeframe, candles)
}

// Populate fetches every provided asset and timeframe concurrently and loads
// the candles. Failed fetches are logged and leave their series absent, the
// returned error joins them.
func (m *Manager) Populate(ctx context.Context, loader CandleLoader, assets []string, timeframes []shared.Timeframe) error {
	var wg sync.WaitGroup
	var errsMtx sync.Mutex
	var errs error

	for _, asset := range assets {
		for _, timeframe := range timeframes {
			if ctx.Err() != nil {
				wg.Wait()
				return errors.Join(errs, ctx.Err())
			}

			m.workers <- struct{}{}

			wg.Add(1)
			go func(asset string, timeframe shared.Timeframe) {
				defer func() {
					<-m.workers
					wg.Done()
				}()

				err := m.fetch(ctx, loader, asset, timeframe)
				if err != nil {
					m.cfg.Logger.Error().Msgf("populating %s (%s): %v", asset, timeframe.String(), err)

					errsMtx.Lock()
					errs = errors.Join(errs, err)
					errsMtx.Unlock()
				}
			}(asset, timeframe)
		}
	}

	wg.Wait()

	return errs
}
