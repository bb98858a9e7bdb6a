package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/screener/config"
	"github.com/dnldd/screener/engine"
	"github.com/dnldd/screener/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

// binanceMock serves trending klines, rising for every symbol but those
// prefixed with DOWN.
func binanceMock(requests *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()

		timeframe, err := shared.ParseTimeframe(r.URL.Query().Get("interval"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		step := 1.0
		if strings.HasPrefix(r.URL.Query().Get("symbol"), "DOWN") {
			step = -0.5
		}

		start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		klines := make([]string, 0, limit)
		for idx := range limit {
			open := 200 + float64(idx)*step
			closing := open + step
			klines = append(klines, fmt.Sprintf(`[%d,"%f","%f","%f","%f","%f"]`,
				start.Add(timeframe.Duration()*time.Duration(idx)).UnixMilli(),
				open, max(open, closing)+0.5, min(open, closing)-0.5, closing, float64(100+idx)))
		}

		w.Write([]byte("[" + strings.Join(klines, ",") + "]"))
	}))
}

func testSettings(t *testing.T, assets []string) *config.Settings {
	cfg, err := config.Default("partial")
	assert.NoError(t, err)

	cfg.Assets = assets
	cfg.Timeframes = []string{"4h", "1d"}
	cfg.CandleLimit = 120
	cfg.Indicators = []string{"sma", "ema_cross", "obv", "vwap"}
	cfg.MinConfidence = 0.5

	settings, err := cfg.Resolve()
	assert.NoError(t, err)

	return settings
}

func TestScreenerConfig(t *testing.T) {
	cancel := func() {}
	settings := testSettings(t, []string{"BTC"})

	tests := []struct {
		name    string
		cfg     ScreenerConfig
		wantErr bool
	}{
		{"valid", ScreenerConfig{Analysis: settings, BinanceURL: "http://localhost", Cancel: cancel}, false},
		{"no analysis", ScreenerConfig{BinanceURL: "http://localhost", Cancel: cancel}, true},
		{"no data file", ScreenerConfig{Analysis: settings, NoFetch: true, Cancel: cancel}, true},
		{"no binance url", ScreenerConfig{Analysis: settings, Cancel: cancel}, true},
		{"no output", ScreenerConfig{Analysis: settings, BinanceURL: "http://localhost", ExportJSON: true, Cancel: cancel}, true},
		{"negative interval", ScreenerConfig{Analysis: settings, BinanceURL: "http://localhost", Interval: -time.Second, Cancel: cancel}, true},
		{"no cancel", ScreenerConfig{Analysis: settings, BinanceURL: "http://localhost"}, true},
	}

	for _, test := range tests {
		err := test.cfg.Validate()
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error %v, got %v", test.name, test.wantErr, err)
		}
	}
}

func TestScreenerRunOnce(t *testing.T) {
	var requests atomic.Int32
	server := binanceMock(&requests)
	defer server.Close()

	output := filepath.Join(t.TempDir(), "out", "signals.json")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	screener, err := NewScreener(ctx, &ScreenerConfig{
		Analysis:   testSettings(t, []string{"BTC", "DOWN"}),
		BinanceURL: server.URL,
		ExportJSON: true,
		Output:     output,
		Cancel:     cancel,
	})
	assert.NoError(t, err)

	// Ensure a run fetches, analyzes, ranks and exports signals.
	report, err := screener.RunOnce(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int(requests.Load()), 4)
	assert.Equal(t, len(report.Failures), 0)
	assert.Equal(t, len(report.Signals), 2)
	for _, signal := range report.Signals {
		assert.Equal(t, signal.Agreement, shared.Unanimous)
		assert.Equal(t, signal.Confidence, float64(1))
	}
	assert.Equal(t, report.Signals[0].Asset, "BTC")
	assert.Equal(t, report.Signals[0].Direction, shared.Bullish)
	assert.Equal(t, report.Signals[1].Asset, "DOWN")
	assert.Equal(t, report.Signals[1].Direction, shared.Bearish)

	data, err := os.ReadFile(output)
	assert.NoError(t, err)
	doc := gjson.ParseBytes(data)
	assert.Equal(t, doc.Get("signals.#").Int(), int64(2))
	assert.Equal(t, doc.Get("min_confidence").Float(), 0.5)
	assert.Equal(t, doc.Get("signals.0.timeframes.#").Int(), int64(2))
	assert.Equal(t, doc.Get("signals.0.strength").String(), "strong")
	assert.True(t, doc.Get("signals.0.stop_loss").Float() > 0)

	// Ensure repeated runs reload the store instead of accumulating candles.
	again, err := screener.RunOnce(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int(requests.Load()), 8)
	assert.Equal(t, len(again.Signals), 2)
	assert.Equal(t, again.Signals[0].Confidence, report.Signals[0].Confidence)
	assert.Equal(t, again.Signals[0].StopLoss, report.Signals[0].StopLoss)
	assert.Equal(t, screener.store.Assets(), []string{"BTC", "DOWN"})
	assert.Equal(t, len(screener.store.Timeframes("BTC")), 2)
}

func TestScreenerRunOnceWithFailures(t *testing.T) {
	var requests atomic.Int32
	server := binanceMock(&requests)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := testSettings(t, []string{"BTC"})
	settings.Timeframes = []shared.Timeframe{shared.FourHour, shared.OneWeek}
	settings.Weights = engine.Weights{shared.FourHour: 1, shared.OneWeek: 1}
	settings.CandleLimit = 20

	screener, err := NewScreener(ctx, &ScreenerConfig{
		Analysis:   settings,
		BinanceURL: server.URL,
		Cancel:     cancel,
	})
	assert.NoError(t, err)

	// Ensure series too short for the indicators fail the asset.
	report, err := screener.RunOnce(ctx)
	assert.NoError(t, err)
	assert.Equal(t, len(report.Signals), 0)
	assert.Equal(t, len(report.Failures), 1)
	assert.NotNil(t, report.Failures["BTC"])
}

func TestScreenerNoFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := testSettings(t, []string{"ETH", "SOL"})
	settings.Timeframes = []shared.Timeframe{shared.FifteenMinute, shared.FourHour}
	settings.Weights = engine.Weights{shared.FifteenMinute: 1, shared.FourHour: 1}

	screener, err := NewScreener(ctx, &ScreenerConfig{
		Analysis:     settings,
		NoFetch:      true,
		DataFilepath: "../testdata/historicdata.json",
		Cancel:       cancel,
	})
	assert.NoError(t, err)

	// Ensure historic data is analyzed and short series are reported as failures.
	report, err := screener.RunOnce(ctx)
	assert.NoError(t, err)
	assert.Equal(t, len(report.Signals), 0)
	assert.Equal(t, len(report.Failures), 2)

	// Ensure historic data can be replayed on every run.
	report, err = screener.RunOnce(ctx)
	assert.NoError(t, err)
	assert.Equal(t, len(report.Failures), 2)

	// Ensure historic data covering none of the assets is rejected.
	settings = testSettings(t, []string{"BTC"})
	_, err = NewScreener(ctx, &ScreenerConfig{
		Analysis:     settings,
		NoFetch:      true,
		DataFilepath: "../testdata/historicdata.json",
		Cancel:       cancel,
	})
	assert.Error(t, err)
}

func TestCheckCoverage(t *testing.T) {
	data, err := shared.NewHistoricData(&shared.HistoricDataConfig{
		FilePath: "../testdata/historicdata.json",
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)

	timeframes := []shared.Timeframe{shared.FifteenMinute, shared.FourHour}

	// Ensure fully covered assets report no gaps.
	gaps, err := checkCoverage(data, []string{"ETH"}, timeframes)
	assert.NoError(t, err)
	assert.Equal(t, gaps, []string{})

	// Ensure missing assets and timeframes are reported.
	gaps, err = checkCoverage(data, []string{"ETH", "SOL", "BTC"}, timeframes)
	assert.NoError(t, err)
	assert.Equal(t, gaps, []string{"SOL (4h)", "BTC"})

	// Ensure data covering none of the assets errors.
	_, err = checkCoverage(data, []string{"BTC", "XRP"}, timeframes)
	assert.Error(t, err)
}

func TestScreenerGracefulShutdown(t *testing.T) {
	var requests atomic.Int32
	server := binanceMock(&requests)
	defer server.Close()

	// Ensure a single run terminates the service on its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	screener, err := NewScreener(ctx, &ScreenerConfig{
		Analysis:   testSettings(t, []string{"BTC"}),
		BinanceURL: server.URL,
		Cancel:     cancel,
	})
	assert.NoError(t, err)

	screener.Run(ctx)
	assert.NotNil(t, ctx.Err())
	assert.Equal(t, int(requests.Load()), 2)

	// Ensure scheduled runs stop once the context is cancelled.
	requests.Store(0)
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	screener, err = NewScreener(ctx, &ScreenerConfig{
		Analysis:    testSettings(t, []string{"BTC"}),
		BinanceURL:  server.URL,
		Interval:    time.Millisecond * 100,
		MetricsAddr: "127.0.0.1:0",
		Cancel:      cancel,
	})
	assert.NoError(t, err)

	time.AfterFunc(time.Millisecond*350, cancel)
	done := make(chan struct{})
	go func() {
		screener.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second * 5):
		t.Fatal("screener did not shut down")
	}

	assert.GreaterThan(t, int(requests.Load()), 0)
}
