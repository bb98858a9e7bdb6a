package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

func TestParseCandlesticks(t *testing.T) {
	market := "ETH"
	timeframe := FifteenMinute
	data := `[{"open":10,"close":12,"high":15,"low":8, "volume":5,"date":"2025-02-04 15:05:00"},
		{"open":"12","close":"11","high":"13","low":"10","volume":"4","timestamp":1738681800000}]`
	gjd := gjson.Parse(data).Array()

	// Ensure candlesticks data can be parsed from dates and millisecond timestamps.
	candles, err := ParseCandlesticks(gjd, market, timeframe)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, candles[0].Open, float64(10))
	assert.Equal(t, candles[0].Close, float64(12))
	assert.Equal(t, candles[0].High, float64(15))
	assert.Equal(t, candles[0].Low, float64(8))
	assert.Equal(t, candles[0].Volume, float64(5))
	assert.Equal(t, candles[0].Date.Year(), 2025)
	assert.Equal(t, candles[0].Date.Month(), 2)
	assert.Equal(t, candles[0].Date.Day(), 4)
	assert.Equal(t, candles[0].Market, market)
	assert.Equal(t, candles[0].Timeframe, timeframe)

	assert.Equal(t, candles[1].Open, float64(12))
	assert.True(t, candles[1].Date.Equal(time.Date(2025, time.February, 4, 15, 10, 0, 0, time.UTC)))

	// Ensure candles without open times error.
	_, err = ParseCandlesticks(gjson.Parse(`[{"open":10}]`).Array(), market, timeframe)
	assert.Error(t, err)

	// Ensure malformed dates error.
	_, err = ParseCandlesticks(gjson.Parse(`[{"open":10,"date":"yesterday"}]`).Array(), market, timeframe)
	assert.Error(t, err)
}

func TestHistoricData(t *testing.T) {
	// Ensure historic data files must exist.
	_, err := NewHistoricData(&HistoricDataConfig{FilePath: "../testdata/missing.json", Logger: &log.Logger})
	assert.Error(t, err)

	// Ensure multi market historic data can be initialized.
	historicData, err := NewHistoricData(&HistoricDataConfig{
		FilePath: "../testdata/historicdata.json",
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)
	assert.Equal(t, historicData.FetchMarkets(), []string{"ETH", "SOL"})
	assert.Equal(t, historicData.FetchTimeframes("ETH"), []Timeframe{FifteenMinute, FourHour})
	assert.Equal(t, historicData.FetchTimeframes("SOL"), []Timeframe{FifteenMinute})
	assert.True(t, historicData.FetchStartTime().Equal(time.Date(2025, time.February, 4, 12, 0, 0, 0, time.UTC)))
	assert.True(t, historicData.FetchEndTime().Equal(time.Date(2025, time.February, 4, 15, 30, 0, 0, time.UTC)))

	// Ensure candles are replayed in chronological order.
	replayed := []Candlestick{}
	err = historicData.Replay(func(candle Candlestick) error {
		replayed = append(replayed, candle)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, len(replayed), 6)
	assert.Equal(t, replayed[0].Timeframe, FourHour)
	for idx := 1; idx < len(replayed); idx++ {
		assert.False(t, replayed[idx].Date.Before(replayed[idx-1].Date))
	}

	// Ensure replay errors are propagated.
	count := 0
	err = historicData.Replay(func(candle Candlestick) error {
		count++
		return errors.New("store unavailable")
	})
	assert.Error(t, err)
	assert.Equal(t, count, 1)

	// Ensure single market historic data can be initialized.
	single, err := NewHistoricData(&HistoricDataConfig{
		FilePath: "../testdata/single.json",
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)
	assert.Equal(t, single.FetchMarkets(), []string{"ETH"})
	assert.Equal(t, single.FetchTimeframes("ETH"), []Timeframe{OneDay})
}
