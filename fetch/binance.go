package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/screener/shared"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the default binance api base url.
	DefaultBaseURL = "https://api.binance.com"
	// DefaultQuote is the default quote asset of requested symbols.
	DefaultQuote = "USDT"
	// maxKlines is the maximum number of klines binance serves per request.
	maxKlines = 1000
	// klinesPath is the binance klines endpoint.
	klinesPath = "/api/v3/klines"
)

// BinanceConfig represents the configuration for the binance client.
type BinanceConfig struct {
	// BaseURL is the binance api base url.
	BaseURL string
	// Quote is the quote asset appended to requested assets.
	Quote string
	// Timeout is the http request timeout.
	Timeout time.Duration
}

// Validate asserts the config sane inputs.
func (cfg *BinanceConfig) Validate() error {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("base url cannot be an empty string"))
	}
	if cfg.Quote == "" {
		errs = errors.Join(errs, fmt.Errorf("quote asset cannot be an empty string"))
	}
	if cfg.Timeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout))
	}

	return errs
}

// BinanceClient represents the binance spot market data client.
type BinanceClient struct {
	cfg   *BinanceConfig
	httpc *http.Client
}

// Ensure the BinanceClient implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new binance client.
func NewBinanceClient(cfg *BinanceConfig) (*BinanceClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating binance config: %w", err)
	}

	return &BinanceClient{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// symbol returns the binance trading pair symbol of the provided asset.
func (c *BinanceClient) symbol(asset string) string {
	symbol := strings.ToUpper(strings.TrimSpace(asset))
	quote := strings.ToUpper(c.cfg.Quote)
	if strings.HasSuffix(symbol, quote) && symbol != quote {
		return symbol
	}

	return symbol + quote
}

// formURL creates full urls including parameters for the api.
func (c *BinanceClient) formURL(path string, params string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSuffix(c.cfg.BaseURL, "/"))
	sb.WriteString(path)
	sb.WriteString("?")
	sb.WriteString(params)

	return sb.String()
}

// FetchKlines fetches the latest limit klines of the provided asset and timeframe.
func (c *BinanceClient) FetchKlines(ctx context.Context, asset string, timeframe shared.Timeframe, limit int) ([]gjson.Result, error) {
	if limit <= 0 || limit > maxKlines {
		return nil, fmt.Errorf("kline limit must be in (0, %d], got %d", maxKlines, limit)
	}

	params := url.Values{}
	params.Add("symbol", c.symbol(asset))
	params.Add("interval", timeframe.String())
	params.Add("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.formURL(klinesPath, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating klines request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching klines (%s) for %s: %w", timeframe.String(), asset, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching klines (%s) for %s: unexpected status %d: %s",
			timeframe.String(), asset, resp.StatusCode, gjson.GetBytes(body, "msg").String())
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("klines (%s) for %s are not valid json", timeframe.String(), asset)
	}

	data := gjson.ParseBytes(body)
	if !data.IsArray() {
		return nil, fmt.Errorf("klines (%s) for %s are not an array", timeframe.String(), asset)
	}

	return data.Array(), nil
}

// ParseCandlesticks parses candlesticks from the provided kline arrays.
// Klines without volume are dropped.
func (c *BinanceClient) ParseCandlesticks(data []gjson.Result, asset string, timeframe shared.Timeframe) ([]shared.Candlestick, error) {
	candles := make([]shared.Candlestick, 0, len(data))

	for idx := range data {
		kline := data[idx].Array()
		if len(kline) < 6 {
			return nil, fmt.Errorf("kline %d for %s (%s) has %d fields, expected at least 6",
				idx, asset, timeframe.String(), len(kline))
		}

		candle := shared.Candlestick{
			Date:      time.UnixMilli(kline[0].Int()).UTC(),
			Open:      kline[1].Float(),
			High:      kline[2].Float(),
			Low:       kline[3].Float(),
			Close:     kline[4].Float(),
			Volume:    kline[5].Float(),
			Market:    asset,
			Timeframe: timeframe,
		}

		if candle.Volume == 0 {
			continue
		}

		candles = append(candles, candle)
	}

	return candles, nil
}
