package engine

import (
	"math"
	"testing"

	"github.com/dnldd/screener/indicator"
	"github.com/dnldd/screener/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

// approx checks whether the provided values are within a small tolerance.
func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

// reading creates an indicator reading for the provided kind.
func reading(kind indicator.Kind, values map[string]float64) indicator.Reading {
	return indicator.Reading{
		Name:      kind.String(),
		Kind:      kind,
		Timeframe: shared.FourHour,
		Version:   indicator.ParamsVersion,
		Values:    values,
	}
}

// readings creates readings keyed by name.
func readings(set ...indicator.Reading) indicator.Readings {
	readings := make(indicator.Readings, len(set))
	for _, reading := range set {
		readings[reading.Name] = reading
	}

	return readings
}

func newTestScorer(t *testing.T, weights map[indicator.Kind]float64) *Scorer {
	scorer, err := NewScorer(&ScorerConfig{
		Thresholds: DefaultThresholds(),
		Weights:    weights,
		Gain:       DefaultConfidenceGain,
	})
	assert.NoError(t, err)

	return scorer
}

func TestScorerConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *ScorerConfig)
		wantErr bool
	}{
		{"defaults", func(cfg *ScorerConfig) {}, false},
		{"zero gain", func(cfg *ScorerConfig) { cfg.Gain = 0 }, true},
		{"nan gain", func(cfg *ScorerConfig) { cfg.Gain = math.NaN() }, true},
		{"negative indicator weight", func(cfg *ScorerConfig) {
			cfg.Weights = map[indicator.Kind]float64{indicator.RSI: -1}
		}, true},
		{"inverted rsi bands", func(cfg *ScorerConfig) {
			cfg.Thresholds.RSIOversold, cfg.Thresholds.RSIOverbought = 70, 30
		}, true},
		{"stochastic band above 100", func(cfg *ScorerConfig) { cfg.Thresholds.StochOverbought = 120 }, true},
		{"zero atr multiple", func(cfg *ScorerConfig) { cfg.Thresholds.ATRMultiple = 0 }, true},
		{"infinite volume ratio", func(cfg *ScorerConfig) { cfg.Thresholds.VolumeSpikeRatio = math.Inf(1) }, true},
		{"level proximity of one", func(cfg *ScorerConfig) { cfg.Thresholds.LevelProximity = 1 }, true},
	}

	for _, test := range tests {
		cfg := &ScorerConfig{
			Thresholds: DefaultThresholds(),
			Gain:       DefaultConfidenceGain,
		}
		test.mutate(cfg)

		_, err := NewScorer(cfg)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error %v, got %v", test.name, test.wantErr, err)
		}
	}
}

func TestScorerVote(t *testing.T) {
	scorer := newTestScorer(t, nil)

	tests := []struct {
		name    string
		reading indicator.Reading
		want    shared.Direction
	}{
		{"sma rising above", reading(indicator.SMA, map[string]float64{"close": 11, "sma": 10, "prev_sma": 9}), shared.Bullish},
		{"sma falling below", reading(indicator.SMA, map[string]float64{"close": 8, "sma": 10, "prev_sma": 11}), shared.Bearish},
		{"sma rising below", reading(indicator.SMA, map[string]float64{"close": 8, "sma": 10, "prev_sma": 9}), shared.Neutral},
		{"ema fast above", reading(indicator.EMACross, map[string]float64{"fast": 11, "slow": 10}), shared.Bullish},
		{"ema fast below", reading(indicator.EMACross, map[string]float64{"fast": 9, "slow": 10}), shared.Bearish},
		{"macd positive", reading(indicator.MACD, map[string]float64{"histogram": 0.2}), shared.Bullish},
		{"macd negative", reading(indicator.MACD, map[string]float64{"histogram": -0.2}), shared.Bearish},
		{"macd flat", reading(indicator.MACD, map[string]float64{"histogram": 0}), shared.Neutral},
		{"rsi oversold", reading(indicator.RSI, map[string]float64{"rsi": 25}), shared.Bullish},
		{"rsi overbought", reading(indicator.RSI, map[string]float64{"rsi": 75}), shared.Bearish},
		{"rsi midrange", reading(indicator.RSI, map[string]float64{"rsi": 50}), shared.Neutral},
		{"rsi at oversold band", reading(indicator.RSI, map[string]float64{"rsi": 30}), shared.Neutral},
		{"stochastic oversold", reading(indicator.Stochastic, map[string]float64{"k": 10, "d": 12}), shared.Bullish},
		{"stochastic overbought", reading(indicator.Stochastic, map[string]float64{"k": 90, "d": 85}), shared.Bearish},
		{"close below lower band", reading(indicator.Bollinger, map[string]float64{"close": 8, "lower": 9, "upper": 12}), shared.Bullish},
		{"close above upper band", reading(indicator.Bollinger, map[string]float64{"close": 13, "lower": 9, "upper": 12}), shared.Bearish},
		{"close within bands", reading(indicator.Bollinger, map[string]float64{"close": 10, "lower": 9, "upper": 12}), shared.Neutral},
		{"atr breakout up", reading(indicator.ATR, map[string]float64{"atr": 1, "change": 1.5}), shared.Bullish},
		{"atr breakout down", reading(indicator.ATR, map[string]float64{"atr": 1, "change": -1.5}), shared.Bearish},
		{"atr quiet", reading(indicator.ATR, map[string]float64{"atr": 1, "change": 0.5}), shared.Neutral},
		{"obv rising", reading(indicator.OBV, map[string]float64{"slope": 3}), shared.Bullish},
		{"obv falling", reading(indicator.OBV, map[string]float64{"slope": -3}), shared.Bearish},
		{"close above vwap", reading(indicator.VWAP, map[string]float64{"close": 11, "vwap": 10}), shared.Bullish},
		{"close below vwap", reading(indicator.VWAP, map[string]float64{"close": 9, "vwap": 10}), shared.Bearish},
		{"bullish volume spike", reading(indicator.Volume, map[string]float64{"volume": 15, "average": 10, "sentiment": 1}), shared.Bullish},
		{"bearish volume spike", reading(indicator.Volume, map[string]float64{"volume": 15, "average": 10, "sentiment": -1}), shared.Bearish},
		{"ordinary volume", reading(indicator.Volume, map[string]float64{"volume": 10.5, "average": 10, "sentiment": 1}), shared.Neutral},
		{"no volume", reading(indicator.Volume, map[string]float64{"volume": 0, "average": 0, "sentiment": 1}), shared.Neutral},
		{"bullish patterns", reading(indicator.CandlePattern, map[string]float64{"bullish": 2, "bearish": 1}), shared.Bullish},
		{"bearish patterns", reading(indicator.CandlePattern, map[string]float64{"bullish": 0, "bearish": 1}), shared.Bearish},
		{"balanced patterns", reading(indicator.CandlePattern, map[string]float64{"bullish": 1, "bearish": 1}), shared.Neutral},
		{"near support", reading(indicator.Levels, map[string]float64{"support_strength": 0.4, "support_distance": 0.01,
			"resistance_strength": 0.4, "resistance_distance": 0.05}), shared.Bullish},
		{"near resistance", reading(indicator.Levels, map[string]float64{"support_strength": 0.4, "support_distance": 0.05,
			"resistance_strength": 0.4, "resistance_distance": 0.01}), shared.Bearish},
		{"between close levels", reading(indicator.Levels, map[string]float64{"support_strength": 0.4, "support_distance": 0.01,
			"resistance_strength": 0.4, "resistance_distance": 0.01}), shared.Neutral},
		{"no levels", reading(indicator.Levels, map[string]float64{}), shared.Neutral},
		{"resistance breakout", reading(indicator.Levels, map[string]float64{"breakout": 1, "resistance_strength": 0.4,
			"resistance_distance": 0.001}), shared.Bullish},
		{"support breakdown", reading(indicator.Levels, map[string]float64{"breakout": -1}), shared.Bearish},
		{"head and shoulders top", reading(indicator.HeadShoulders, map[string]float64{"direction": -1,
			"target": 82.5}), shared.Bearish},
		{"inverse head and shoulders", reading(indicator.HeadShoulders, map[string]float64{"direction": 1}), shared.Bullish},
		{"no head and shoulders", reading(indicator.HeadShoulders, map[string]float64{"direction": 0}), shared.Neutral},
		{"bullish chart patterns", reading(indicator.ChartPattern, map[string]float64{"bullish": 2, "bearish": 1}),
			shared.Bullish},
		{"bearish chart patterns", reading(indicator.ChartPattern, map[string]float64{"bullish": 0, "bearish": 2}),
			shared.Bearish},
		{"offsetting chart patterns", reading(indicator.ChartPattern, map[string]float64{"bullish": 1, "bearish": 1}),
			shared.Neutral},
	}

	for _, test := range tests {
		got := scorer.Vote(&test.reading)
		if got != test.want {
			t.Errorf("%s: expected %s, got %s", test.name, test.want.String(), got.String())
		}
	}
}

func TestScoreTimeframe(t *testing.T) {
	scorer := newTestScorer(t, nil)

	bullishRSI := reading(indicator.RSI, map[string]float64{"rsi": 25})
	bullishMACD := reading(indicator.MACD, map[string]float64{"histogram": 0.5})
	bearishOBV := reading(indicator.OBV, map[string]float64{"slope": -1})
	neutralMACD := reading(indicator.MACD, map[string]float64{"histogram": 0})

	// Ensure an empty reading set is neutral.
	signal := scorer.ScoreTimeframe(indicator.Readings{})
	assert.Equal(t, signal.Direction, shared.Neutral)
	assert.Equal(t, signal.Confidence, float64(0))
	assert.Equal(t, len(signal.Votes), 0)

	// Ensure the majority weighted vote sets the direction.
	signal = scorer.ScoreTimeframe(readings(bullishRSI, bullishMACD, bearishOBV))
	assert.Equal(t, signal.Timeframe, shared.FourHour)
	assert.Equal(t, signal.Direction, shared.Bullish)
	assert.True(t, approx(signal.Score, 1.0/3))
	assert.True(t, approx(signal.Confidence, DefaultConfidenceGain/3))

	// Ensure votes are recorded in indicator order.
	assert.Equal(t, signal.Votes, []shared.Vote{
		{Indicator: "macd", Direction: shared.Bullish, Weight: 1},
		{Indicator: "rsi", Direction: shared.Bullish, Weight: 1},
		{Indicator: "obv", Direction: shared.Bearish, Weight: 1},
	})

	// Ensure equal bullish and bearish votes are neutral.
	signal = scorer.ScoreTimeframe(readings(bullishRSI, neutralMACD, bearishOBV))
	assert.Equal(t, signal.Direction, shared.Neutral)
	assert.Equal(t, signal.Score, float64(0))

	// Ensure equal vote counts are neutral even when the weighted sum is not.
	weighted := newTestScorer(t, map[indicator.Kind]float64{indicator.RSI: 3})
	signal = weighted.ScoreTimeframe(readings(bullishRSI, neutralMACD, bearishOBV))
	assert.Equal(t, signal.Direction, shared.Neutral)
	assert.True(t, approx(signal.Score, 0.4))
	assert.True(t, approx(signal.Confidence, 0.5))

	// Ensure confidence is clamped.
	signal = scorer.ScoreTimeframe(readings(bullishRSI, bullishMACD))
	assert.Equal(t, signal.Direction, shared.Bullish)
	assert.Equal(t, signal.Score, float64(1))
	assert.Equal(t, signal.Confidence, float64(1))

	// Ensure scoring is deterministic.
	set := readings(bullishRSI, bullishMACD, bearishOBV,
		reading(indicator.VWAP, map[string]float64{"close": 9, "vwap": 10}))
	first := scorer.ScoreTimeframe(set)
	for range 10 {
		next := scorer.ScoreTimeframe(set)
		if diff := cmp.Diff(first, next); diff != "" {
			t.Fatalf("timeframe signal mismatch (-first +next):\n%s", diff)
		}
	}
}

func TestScoreTimeframeLevels(t *testing.T) {
	scorer := newTestScorer(t, nil)

	levels := reading(indicator.Levels, map[string]float64{"support": 95, "resistance": 110})
	topPattern := reading(indicator.HeadShoulders, map[string]float64{"direction": -1, "target": 82.5})
	noPattern := reading(indicator.HeadShoulders, map[string]float64{"direction": 0, "target": 0})
	chart := reading(indicator.ChartPattern, map[string]float64{"bearish": 1, "target": 96.5})

	// Ensure signals without level readings carry no levels.
	signal := scorer.ScoreTimeframe(readings(reading(indicator.RSI, map[string]float64{"rsi": 25})))
	assert.Equal(t, signal.Support, float64(0))
	assert.Equal(t, signal.Resistance, float64(0))
	assert.Equal(t, signal.Target, float64(0))

	// Ensure the nearest levels are carried onto the signal.
	signal = scorer.ScoreTimeframe(readings(levels))
	assert.Equal(t, signal.Support, float64(95))
	assert.Equal(t, signal.Resistance, float64(110))

	// Ensure head and shoulders targets take precedence over chart pattern targets.
	signal = scorer.ScoreTimeframe(readings(levels, topPattern, chart))
	assert.Equal(t, signal.Target, 82.5)

	// Ensure chart pattern targets are used without a head and shoulders.
	signal = scorer.ScoreTimeframe(readings(levels, noPattern, chart))
	assert.Equal(t, signal.Target, 96.5)
	assert.Equal(t, signal.Direction, shared.Bearish)
}
