package market

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dnldd/screener/shared"
)

// CandleSeries represents an immutable, chronologically ordered sequence of
// candles for a single asset and timeframe. Open times are aligned to the
// timeframe and strictly increasing.
type CandleSeries struct {
	asset     string
	timeframe shared.Timeframe
	candles   []shared.Candlestick
}

// NewCandleSeries initializes a candle series from the provided candles. The
// candles are copied, aligned to the timeframe and ordered; invalid candles or
// duplicate open times are rejected.
func NewCandleSeries(asset string, timeframe shared.Timeframe, candles []shared.Candlestick) (*CandleSeries, error) {
	if asset == "" {
		return nil, errors.New("series asset cannot be an empty string")
	}

	set := make([]shared.Candlestick, len(candles))
	for idx := range candles {
		candle := candles[idx]
		candle.Market = asset
		candle.Timeframe = timeframe
		candle.Date = timeframe.Truncate(candle.Date)

		err := candle.Validate()
		if err != nil {
			return nil, fmt.Errorf("invalid %s (%s) candle at index %d: %w",
				asset, timeframe.String(), idx, err)
		}

		set[idx] = candle
	}

	slices.SortStableFunc(set, func(a, b shared.Candlestick) int {
		return a.Date.Compare(b.Date)
	})

	for idx := 1; idx < len(set); idx++ {
		if !set[idx].Date.After(set[idx-1].Date) {
			return nil, fmt.Errorf("duplicate %s (%s) candle open time %s",
				asset, timeframe.String(), set[idx].Date.Format(shared.DateLayout))
		}
	}

	return &CandleSeries{
		asset:     asset,
		timeframe: timeframe,
		candles:   set,
	}, nil
}

// Asset returns the series asset.
func (s *CandleSeries) Asset() string {
	return s.asset
}

// Timeframe returns the series timeframe.
func (s *CandleSeries) Timeframe() shared.Timeframe {
	return s.timeframe
}

// Len returns the number of candles in the series.
func (s *CandleSeries) Len() int {
	return len(s.candles)
}

// At returns the candle at the provided index.
func (s *CandleSeries) At(idx int) shared.Candlestick {
	return s.candles[idx]
}

// Last returns the most recent candle, the series must not be empty.
func (s *CandleSeries) Last() shared.Candlestick {
	return s.candles[len(s.candles)-1]
}

// Candles returns a copy of the series candles.
func (s *CandleSeries) Candles() []shared.Candlestick {
	return slices.Clone(s.candles)
}

// column extracts a price column from the series.
func (s *CandleSeries) column(fetch func(c *shared.Candlestick) float64) []float64 {
	set := make([]float64, len(s.candles))
	for idx := range s.candles {
		set[idx] = fetch(&s.candles[idx])
	}

	return set
}

// Opens returns the open prices of the series.
func (s *CandleSeries) Opens() []float64 {
	return s.column(func(c *shared.Candlestick) float64 { return c.Open })
}

// Highs returns the high prices of the series.
func (s *CandleSeries) Highs() []float64 {
	return s.column(func(c *shared.Candlestick) float64 { return c.High })
}

// Lows returns the low prices of the series.
func (s *CandleSeries) Lows() []float64 {
	return s.column(func(c *shared.Candlestick) float64 { return c.Low })
}

// Closes returns the close prices of the series.
func (s *CandleSeries) Closes() []float64 {
	return s.column(func(c *shared.Candlestick) float64 { return c.Close })
}

// Volumes returns the volumes of the series.
func (s *CandleSeries) Volumes() []float64 {
	return s.column(func(c *shared.Candlestick) float64 { return c.Volume })
}
