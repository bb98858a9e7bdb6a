package market

import (
	"math"
	"testing"
	"time"

	"github.com/dnldd/screener/shared"
	"github.com/peterldowns/testy/assert"
)

// generateCandles creates n ascending candles for the provided timeframe.
func generateCandles(n int, timeframe shared.Timeframe, start time.Time) []shared.Candlestick {
	candles := make([]shared.Candlestick, n)
	for idx := range n {
		price := float64(100 + idx)
		candles[idx] = shared.Candlestick{
			Open:   price,
			Close:  price + 1,
			High:   price + 2,
			Low:    price - 1,
			Volume: float64(10 + idx),
			Date:   start.Add(timeframe.Duration() * time.Duration(idx)),
		}
	}

	return candles
}

func TestNewCandleSeries(t *testing.T) {
	start := time.Date(2025, time.February, 4, 0, 0, 0, 0, time.UTC)
	candles := generateCandles(5, shared.OneHour, start)

	// Ensure an asset is required.
	_, err := NewCandleSeries("", shared.OneHour, candles)
	assert.Error(t, err)

	// Ensure out of order candles are sorted.
	shuffled := []shared.Candlestick{candles[3], candles[0], candles[4], candles[1], candles[2]}
	series, err := NewCandleSeries("BTC", shared.OneHour, shuffled)
	assert.NoError(t, err)
	assert.Equal(t, series.Len(), 5)
	assert.Equal(t, series.Asset(), "BTC")
	assert.Equal(t, series.Timeframe(), shared.OneHour)
	for idx := range series.Len() {
		assert.True(t, series.At(idx).Date.Equal(candles[idx].Date))
		assert.Equal(t, series.At(idx).Market, "BTC")
		assert.Equal(t, series.At(idx).Timeframe, shared.OneHour)
	}
	assert.Equal(t, series.Closes(), []float64{101, 102, 103, 104, 105})
	assert.Equal(t, series.Opens(), []float64{100, 101, 102, 103, 104})
	assert.Equal(t, series.Highs(), []float64{102, 103, 104, 105, 106})
	assert.Equal(t, series.Lows(), []float64{99, 100, 101, 102, 103})
	assert.Equal(t, series.Volumes(), []float64{10, 11, 12, 13, 14})
	assert.Equal(t, series.Last().Close, float64(105))

	// Ensure the input candles are not mutated.
	assert.True(t, shuffled[0].Date.Equal(candles[3].Date))
	assert.Equal(t, shuffled[0].Market, "")

	// Ensure returned candles are copies.
	set := series.Candles()
	set[0].Close = 0
	assert.Equal(t, series.At(0).Close, float64(101))

	// Ensure open times are aligned to the timeframe.
	offset := generateCandles(2, shared.OneHour, start.Add(time.Minute*7))
	series, err = NewCandleSeries("BTC", shared.OneHour, offset)
	assert.NoError(t, err)
	assert.True(t, series.At(0).Date.Equal(start))

	// Ensure duplicate open times are rejected.
	duplicate := []shared.Candlestick{candles[0], candles[1], candles[1]}
	_, err = NewCandleSeries("BTC", shared.OneHour, duplicate)
	assert.Error(t, err)

	// Ensure candles that collapse to the same open time are rejected.
	collapsed := []shared.Candlestick{candles[0], candles[0]}
	collapsed[1].Date = collapsed[1].Date.Add(time.Minute * 30)
	_, err = NewCandleSeries("BTC", shared.OneHour, collapsed)
	assert.Error(t, err)

	// Ensure invalid candles are rejected.
	invalid := generateCandles(3, shared.OneHour, start)
	invalid[1].High = invalid[1].Low - 1
	_, err = NewCandleSeries("BTC", shared.OneHour, invalid)
	assert.Error(t, err)

	invalid = generateCandles(3, shared.OneHour, start)
	invalid[2].Close = math.NaN()
	_, err = NewCandleSeries("BTC", shared.OneHour, invalid)
	assert.Error(t, err)

	// Ensure an empty series can be created.
	series, err = NewCandleSeries("BTC", shared.OneHour, nil)
	assert.NoError(t, err)
	assert.Equal(t, series.Len(), 0)
	assert.Equal(t, len(series.Closes()), 0)
}
