package market

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dnldd/screener/shared"
	"github.com/rs/zerolog"
)

// ErrSeriesNotFound is returned when no candles are held for a requested
// asset and timeframe.
var ErrSeriesNotFound = errors.New("series not found")

// StoreConfig represents the candle store configuration.
type StoreConfig struct {
	// Limit is the maximum number of candles retained per asset and timeframe.
	Limit int32
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *StoreConfig) Validate() error {
	var errs error

	if cfg.Limit <= 0 {
		errs = errors.Join(errs, fmt.Errorf("candle limit must be positive, got %d", cfg.Limit))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// seriesKey uniquely identifies a series in the store.
type seriesKey struct {
	asset     string
	timeframe shared.Timeframe
}

// Store holds the candles of every tracked asset and timeframe for an
// analysis run. Candles are fed in chronological order and materialized
// into immutable series on request.
type Store struct {
	cfg          *StoreConfig
	snapshots    map[seriesKey]*shared.CandlestickSnapshot
	snapshotsMtx sync.RWMutex
}

// NewStore initializes a new candle store.
func NewStore(cfg *StoreConfig) (*Store, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating store config: %w", err)
	}

	return &Store{
		cfg:       cfg,
		snapshots: make(map[seriesKey]*shared.CandlestickSnapshot),
	}, nil
}

// Update adds the provided candle to its asset and timeframe series.
func (s *Store) Update(candle shared.Candlestick) error {
	if candle.Market == "" {
		return errors.New("candle market cannot be an empty string")
	}

	candle.Date = candle.Timeframe.Truncate(candle.Date)
	err := candle.Validate()
	if err != nil {
		return fmt.Errorf("invalid %s (%s) candle: %w", candle.Market, candle.Timeframe.String(), err)
	}

	key := seriesKey{asset: candle.Market, timeframe: candle.Timeframe}

	s.snapshotsMtx.Lock()
	snapshot, ok := s.snapshots[key]
	if !ok {
		snapshot, err = shared.NewCandlestickSnapshot(s.cfg.Limit, candle.Timeframe)
		if err != nil {
			s.snapshotsMtx.Unlock()
			return fmt.Errorf("creating candlestick snapshot: %w", err)
		}
		s.snapshots[key] = snapshot
	}
	s.snapshotsMtx.Unlock()

	return snapshot.Update(&candle)
}

// Load adds the provided candles for an asset and timeframe, ordering them
// chronologically first.
func (s *Store) Load(asset string, timeframe shared.Timeframe, candles []shared.Candlestick) error {
	set := slices.Clone(candles)
	slices.SortStableFunc(set, func(a, b shared.Candlestick) int {
		return a.Date.Compare(b.Date)
	})

	for idx := range set {
		set[idx].Market = asset
		set[idx].Timeframe = timeframe

		err := s.Update(set[idx])
		if err != nil {
			return fmt.Errorf("loading %s (%s) candles: %w", asset, timeframe.String(), err)
		}
	}

	s.cfg.Logger.Debug().Msgf("loaded %d %s (%s) candles", len(set), asset, timeframe.String())

	return nil
}

// Series returns the immutable candle series for the provided asset and timeframe.
func (s *Store) Series(asset string, timeframe shared.Timeframe) (*CandleSeries, error) {
	s.snapshotsMtx.RLock()
	snapshot, ok := s.snapshots[seriesKey{asset: asset, timeframe: timeframe}]
	s.snapshotsMtx.RUnlock()

	if !ok || snapshot.Count() == 0 {
		return nil, fmt.Errorf("%s (%s): %w", asset, timeframe.String(), ErrSeriesNotFound)
	}

	entries := snapshot.LastN(snapshot.Count())
	candles := make([]shared.Candlestick, len(entries))
	for idx := range entries {
		candles[idx] = *entries[idx]
	}

	return NewCandleSeries(asset, timeframe, candles)
}

// Assets returns the assets held by the store, sorted.
func (s *Store) Assets() []string {
	s.snapshotsMtx.RLock()
	defer s.snapshotsMtx.RUnlock()

	assets := make([]string, 0, len(s.snapshots))
	for key := range s.snapshots {
		if !slices.Contains(assets, key.asset) {
			assets = append(assets, key.asset)
		}
	}

	slices.Sort(assets)
	return assets
}

// Timeframes returns the timeframes held for the provided asset, shortest first.
func (s *Store) Timeframes(asset string) []shared.Timeframe {
	s.snapshotsMtx.RLock()
	defer s.snapshotsMtx.RUnlock()

	timeframes := []shared.Timeframe{}
	for key := range s.snapshots {
		if key.asset == asset {
			timeframes = append(timeframes, key.timeframe)
		}
	}

	slices.Sort(timeframes)
	return timeframes
}

// Reset drops every held candle.
func (s *Store) Reset() {
	s.snapshotsMtx.Lock()
	s.snapshots = make(map[seriesKey]*shared.CandlestickSnapshot)
	s.snapshotsMtx.Unlock()
}
