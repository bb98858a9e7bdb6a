package indicator

import (
	"testing"
	"time"

	"github.com/dnldd/screener/shared"
	"github.com/peterldowns/testy/assert"
)

func TestVWAPGenerator(t *testing.T) {
	// Ensure vwap can be created.
	timeframe := shared.FifteenMinute
	vwap := NewVWAPGenerator(2)
	date := time.Date(2025, time.February, 4, 15, 0, 0, 0, time.UTC)
	assert.Nil(t, vwap.Current())

	// Ensure candles without volume do not produce a point.
	candle := &shared.Candlestick{
		Open:      float64(5),
		Close:     float64(8),
		High:      float64(9),
		Low:       float64(3),
		Volume:    float64(0),
		Date:      date,
		Market:    "BTC",
		Timeframe: timeframe,
	}

	vwp := vwap.Update(candle)
	assert.Nil(t, vwp)
	assert.Nil(t, vwap.Current())

	// Ensure vwap can be updated.
	candle = &shared.Candlestick{
		Open:      float64(5),
		Close:     float64(8),
		High:      float64(9),
		Low:       float64(4),
		Volume:    float64(2),
		Date:      date.Add(timeframe.Duration()),
		Market:    "BTC",
		Timeframe: timeframe,
	}

	vwp = vwap.Update(candle)
	assert.NotNil(t, vwp)
	assert.Equal(t, vwp.Value, float64(7))
	assert.True(t, vwp.Date.Equal(candle.Date))

	// Ensure the vwap is volume weighted.
	candle = &shared.Candlestick{
		Open:      float64(10),
		Close:     float64(12),
		High:      float64(13),
		Low:       float64(8),
		Volume:    float64(6),
		Date:      date.Add(timeframe.Duration() * 2),
		Market:    "BTC",
		Timeframe: timeframe,
	}

	vwp = vwap.Update(candle)
	assert.Equal(t, vwp.Value, float64(10))
	assert.Equal(t, vwap.Current().Value, float64(10))

	// Ensure the oldest candle is evicted once the window is full.
	candle = &shared.Candlestick{
		Open:      float64(12),
		Close:     float64(16),
		High:      float64(17),
		Low:       float64(12),
		Volume:    float64(2),
		Date:      date.Add(timeframe.Duration() * 3),
		Market:    "BTC",
		Timeframe: timeframe,
	}

	vwp = vwap.Update(candle)
	assert.Equal(t, vwp.Value, float64(12))

	// Ensure windows that lose all volume keep the previous point.
	empty := &shared.Candlestick{
		Open:      float64(1),
		Close:     float64(1),
		High:      float64(1),
		Low:       float64(1),
		Volume:    float64(0),
		Date:      date.Add(timeframe.Duration() * 4),
		Market:    "BTC",
		Timeframe: timeframe,
	}

	vwp = vwap.Update(empty)
	assert.Equal(t, vwp.Value, float64(15))
	assert.True(t, vwp.Date.Equal(empty.Date))

	drained := *empty
	drained.Date = date.Add(timeframe.Duration() * 5)
	vwp = vwap.Update(&drained)
	assert.Equal(t, vwp.Value, float64(15))
	assert.True(t, vwp.Date.Equal(empty.Date))
}
