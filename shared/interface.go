package shared

import (
	"context"

	"github.com/tidwall/gjson"
)

// MarketFetcher defines the requirements for fetching asset market data.
type MarketFetcher interface {
	// FetchKlines fetches the latest limit candles of raw market data for the
	// provided asset and timeframe.
	FetchKlines(ctx context.Context, asset string, timeframe Timeframe, limit int) ([]gjson.Result, error)
	// ParseCandlesticks parses candlesticks from the provided raw market data.
	ParseCandlesticks(data []gjson.Result, asset string, timeframe Timeframe) ([]Candlestick, error)
}
