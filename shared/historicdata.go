package shared

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data.
	FilePath string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents historic market data loaded from file, used in
// place of live fetches.
type HistoricData struct {
	cfg        *HistoricDataConfig
	markets    []string
	candles    []Candlestick
	timeframes map[string][]Timeframe
	startTime  time.Time
	endTime    time.Time
}

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) (*gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %v", filepath, err)
	}

	if !gjson.ValidBytes(readb) {
		return nil, fmt.Errorf("historic data at '%s' is not valid json", filepath)
	}

	b := gjson.ParseBytes(readb)

	return &b, nil
}

// ParseCandlesticks parses candlesticks from the provided json objects. Open
// times are read from either a "date" field in the date layout (utc) or a
// "timestamp" field in unix milliseconds.
func ParseCandlesticks(data []gjson.Result, market string, timeframe Timeframe) ([]Candlestick, error) {
	candles := make([]Candlestick, 0, len(data))

	for idx := range data {
		var candle Candlestick

		candle.Open = data[idx].Get("open").Float()
		candle.Low = data[idx].Get("low").Float()
		candle.High = data[idx].Get("high").Float()
		candle.Close = data[idx].Get("close").Float()
		candle.Volume = data[idx].Get("volume").Float()

		candle.Market = market
		candle.Timeframe = timeframe

		switch {
		case data[idx].Get("date").Exists():
			dt, err := time.ParseInLocation(DateLayout, data[idx].Get("date").String(), time.UTC)
			if err != nil {
				return nil, fmt.Errorf("parsing candlestick date: %w", err)
			}
			candle.Date = dt
		case data[idx].Get("timestamp").Exists():
			candle.Date = time.UnixMilli(data[idx].Get("timestamp").Int()).UTC()
		default:
			return nil, fmt.Errorf("candlestick %d for %s (%s) has no open time", idx, market, timeframe.String())
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

// NewHistoricData initializes a new historic data source. The file holds either
// a single market object ({"market": "ETH", "15m": [...], ...}) or a
// collection of them under "markets".
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	b, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %v", err)
	}

	entries := []gjson.Result{*b}
	if b.Get("markets").IsArray() {
		entries = b.Get("markets").Array()
	}

	historicData := HistoricData{
		cfg:        cfg,
		timeframes: make(map[string][]Timeframe),
	}

	for _, entry := range entries {
		market := entry.Get("market").String()
		if market == "" {
			return nil, fmt.Errorf("historic data entry has no market")
		}

		historicData.markets = append(historicData.markets, market)

		for _, timeframe := range Timeframes {
			data := entry.Get(timeframe.String()).Array()
			if len(data) == 0 {
				continue
			}

			candles, err := ParseCandlesticks(data, market, timeframe)
			if err != nil {
				return nil, fmt.Errorf("parsing candlesticks: %v", err)
			}

			historicData.timeframes[market] = append(historicData.timeframes[market], timeframe)
			historicData.candles = append(historicData.candles, candles...)
		}
	}

	if len(historicData.candles) == 0 {
		return nil, fmt.Errorf("no candles found in historic data at '%s'", cfg.FilePath)
	}

	// Sort the multi timeframe data by timestamp, shorter timeframes first.
	slices.SortStableFunc(historicData.candles, func(a, b Candlestick) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		default:
			return int(a.Timeframe) - int(b.Timeframe)
		}
	})

	historicData.startTime = historicData.candles[0].Date
	historicData.endTime = historicData.candles[len(historicData.candles)-1].Date

	return &historicData, nil
}

// Replay streams the historical candles in chronological order to the
// provided handler, stopping at the first error.
func (h *HistoricData) Replay(notify func(candle Candlestick) error) error {
	first := h.candles[0].Date
	last := h.candles[len(h.candles)-1].Date

	if h.cfg.Logger != nil {
		h.cfg.Logger.Info().Msgf("replaying historical [%s] data covering %.2f hours, from %s, to %s",
			strings.Join(h.markets, ","), last.Sub(first).Hours(),
			first.Format(time.RFC1123), last.Format(time.RFC1123))
	}

	for idx := range h.candles {
		err := notify(h.candles[idx])
		if err != nil {
			return fmt.Errorf("replaying historical data: %v", err)
		}
	}

	return nil
}

// FetchMarkets returns the markets covered by the historical data.
func (h *HistoricData) FetchMarkets() []string {
	return slices.Clone(h.markets)
}

// FetchTimeframes returns the timeframes available for the provided market.
func (h *HistoricData) FetchTimeframes(market string) []Timeframe {
	return slices.Clone(h.timeframes[market])
}

// FetchStartTime returns the start time of the loaded historical data.
func (h *HistoricData) FetchStartTime() time.Time {
	return h.startTime
}

// FetchEndTime returns the end time of the loaded historical data.
func (h *HistoricData) FetchEndTime() time.Time {
	return h.endTime
}
