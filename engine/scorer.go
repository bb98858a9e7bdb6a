package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/dnldd/screener/indicator"
	"github.com/dnldd/screener/shared"
)

const (
	// DefaultConfidenceGain is the default scaling of an absolute timeframe
	// score into confidence.
	DefaultConfidenceGain = 1.25
)

// Thresholds represents the rules turning indicator readings into votes.
type Thresholds struct {
	// RSIOversold is the RSI level below which a bullish vote is cast.
	RSIOversold float64 `yaml:"rsiOversold" default:"30" validate:"gte=0,lte=100"`
	// RSIOverbought is the RSI level above which a bearish vote is cast.
	RSIOverbought float64 `yaml:"rsiOverbought" default:"70" validate:"gte=0,lte=100"`
	// StochOversold is the stochastic %K level below which a bullish vote is cast.
	StochOversold float64 `yaml:"stochOversold" default:"20" validate:"gte=0,lte=100"`
	// StochOverbought is the stochastic %K level above which a bearish vote is cast.
	StochOverbought float64 `yaml:"stochOverbought" default:"80" validate:"gte=0,lte=100"`
	// ATRMultiple is the multiple of the average true range a candle move
	// must exceed to vote.
	ATRMultiple float64 `yaml:"atrMultiple" default:"1" validate:"gt=0"`
	// VolumeSpikeRatio is the multiple of the average volume confirming the
	// latest candle's direction.
	VolumeSpikeRatio float64 `yaml:"volumeSpikeRatio" default:"1.1" validate:"gt=0"`
	// LevelProximity is the maximum relative distance to a support or
	// resistance level considered near.
	LevelProximity float64 `yaml:"levelProximity" default:"0.02" validate:"gt=0,lt=1"`
}

// DefaultThresholds returns the default vote thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOversold:      30,
		RSIOverbought:    70,
		StochOversold:    20,
		StochOverbought:  80,
		ATRMultiple:      1,
		VolumeSpikeRatio: 1.1,
		LevelProximity:   0.02,
	}
}

// Validate asserts the thresholds are sane.
func (t *Thresholds) Validate() error {
	var errs error

	if !(t.RSIOversold >= 0 && t.RSIOversold < t.RSIOverbought && t.RSIOverbought <= 100) {
		errs = errors.Join(errs, fmt.Errorf("rsi bands must satisfy 0 <= oversold (%f) < overbought (%f) <= 100",
			t.RSIOversold, t.RSIOverbought))
	}
	if !(t.StochOversold >= 0 && t.StochOversold < t.StochOverbought && t.StochOverbought <= 100) {
		errs = errors.Join(errs, fmt.Errorf("stochastic bands must satisfy 0 <= oversold (%f) < overbought (%f) <= 100",
			t.StochOversold, t.StochOverbought))
	}
	if !(t.ATRMultiple > 0) || math.IsInf(t.ATRMultiple, 0) {
		errs = errors.Join(errs, fmt.Errorf("atr multiple must be positive, got %f", t.ATRMultiple))
	}
	if !(t.VolumeSpikeRatio > 0) || math.IsInf(t.VolumeSpikeRatio, 0) {
		errs = errors.Join(errs, fmt.Errorf("volume spike ratio must be positive, got %f", t.VolumeSpikeRatio))
	}
	if !(t.LevelProximity > 0 && t.LevelProximity < 1) {
		errs = errors.Join(errs, fmt.Errorf("level proximity must be in (0, 1), got %f", t.LevelProximity))
	}

	return errs
}

// ScorerConfig represents the timeframe scorer configuration.
type ScorerConfig struct {
	// Thresholds represents the vote thresholds.
	Thresholds Thresholds
	// Weights represents the vote weights of indicators, unlisted indicators weigh 1.
	Weights map[indicator.Kind]float64
	// Gain scales the absolute score into confidence.
	Gain float64
}

// Validate asserts the config sane inputs.
func (cfg *ScorerConfig) Validate() error {
	errs := cfg.Thresholds.Validate()

	for kind, weight := range cfg.Weights {
		if !(weight > 0) || math.IsInf(weight, 0) {
			errs = errors.Join(errs, fmt.Errorf("weight of indicator %s must be positive and finite, got %f",
				kind.String(), weight))
		}
	}
	if !(cfg.Gain > 0) || math.IsInf(cfg.Gain, 0) {
		errs = errors.Join(errs, fmt.Errorf("confidence gain must be positive and finite, got %f", cfg.Gain))
	}

	return errs
}

// Scorer reduces a timeframe's indicator readings into a directional signal.
type Scorer struct {
	cfg *ScorerConfig
}

// NewScorer initializes a new timeframe scorer.
func NewScorer(cfg *ScorerConfig) (*Scorer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating scorer config: %w", err)
	}

	return &Scorer{cfg: cfg}, nil
}

// weight returns the vote weight of the provided indicator.
func (s *Scorer) weight(kind indicator.Kind) float64 {
	weight, ok := s.cfg.Weights[kind]
	if !ok {
		return 1
	}

	return weight
}

// Vote derives the directional vote of the provided reading.
func (s *Scorer) Vote(reading *indicator.Reading) shared.Direction {
	t := &s.cfg.Thresholds

	switch reading.Kind {
	case indicator.SMA:
		closePrice, sma, prevSMA := reading.Value("close"), reading.Value("sma"), reading.Value("prev_sma")
		switch {
		case closePrice > sma && sma > prevSMA:
			return shared.Bullish
		case closePrice < sma && sma < prevSMA:
			return shared.Bearish
		}

	case indicator.EMACross:
		return shared.DirectionFromScore(reading.Value("fast") - reading.Value("slow"))

	case indicator.MACD:
		return shared.DirectionFromScore(reading.Value("histogram"))

	case indicator.RSI:
		rsi := reading.Value("rsi")
		switch {
		case rsi < t.RSIOversold:
			return shared.Bullish
		case rsi > t.RSIOverbought:
			return shared.Bearish
		}

	case indicator.Stochastic:
		k := reading.Value("k")
		switch {
		case k < t.StochOversold:
			return shared.Bullish
		case k > t.StochOverbought:
			return shared.Bearish
		}

	case indicator.Bollinger:
		// Closes outside the bands are expected to revert to the mean.
		closePrice := reading.Value("close")
		switch {
		case closePrice < reading.Value("lower"):
			return shared.Bullish
		case closePrice > reading.Value("upper"):
			return shared.Bearish
		}

	case indicator.ATR:
		change, atr := reading.Value("change"), reading.Value("atr")
		if atr > 0 && math.Abs(change) > t.ATRMultiple*atr {
			return shared.DirectionFromScore(change)
		}

	case indicator.OBV:
		return shared.DirectionFromScore(reading.Value("slope"))

	case indicator.VWAP:
		return shared.DirectionFromScore(reading.Value("close") - reading.Value("vwap"))

	case indicator.Volume:
		average := reading.Value("average")
		if average > 0 && reading.Value("volume") > average*t.VolumeSpikeRatio {
			return shared.DirectionFromScore(reading.Value("sentiment"))
		}

	case indicator.CandlePattern:
		return shared.DirectionFromScore(reading.Value("bullish") - reading.Value("bearish"))

	case indicator.Levels:
		if breakout := reading.Value("breakout"); breakout != 0 {
			return shared.DirectionFromScore(breakout)
		}

		nearSupport := reading.Value("support_strength") > 0 &&
			reading.Value("support_distance") <= t.LevelProximity
		nearResistance := reading.Value("resistance_strength") > 0 &&
			reading.Value("resistance_distance") <= t.LevelProximity
		switch {
		case nearSupport && !nearResistance:
			return shared.Bullish
		case nearResistance && !nearSupport:
			return shared.Bearish
		}

	case indicator.HeadShoulders:
		return shared.DirectionFromScore(reading.Value("direction"))

	case indicator.ChartPattern:
		return shared.DirectionFromScore(reading.Value("bullish") - reading.Value("bearish"))
	}

	return shared.Neutral
}

// annotate copies the price levels of the provided reading onto the signal.
// Head and shoulders targets take precedence over chart pattern targets.
func annotate(signal *shared.TimeframeSignal, reading *indicator.Reading) {
	switch reading.Kind {
	case indicator.Levels:
		signal.Support = reading.Value("support")
		signal.Resistance = reading.Value("resistance")
	case indicator.HeadShoulders:
		if reading.Value("direction") != 0 {
			signal.Target = reading.Value("target")
		}
	case indicator.ChartPattern:
		if signal.Target == 0 {
			signal.Target = reading.Value("target")
		}
	}
}

// ScoreTimeframe reduces the provided readings of a single timeframe into a
// timeframe signal. Readings are evaluated in indicator order.
func (s *Scorer) ScoreTimeframe(readings indicator.Readings) shared.TimeframeSignal {
	ordered := readings.Ordered()

	signal := shared.TimeframeSignal{
		Direction: shared.Neutral,
		Votes:     make([]shared.Vote, 0, len(ordered)),
	}

	if len(ordered) == 0 {
		return signal
	}

	signal.Timeframe = ordered[0].Timeframe

	var weightedSum, totalWeight float64
	var bullish, bearish int
	for idx := range ordered {
		reading := &ordered[idx]
		direction := s.Vote(reading)
		weight := s.weight(reading.Kind)

		weightedSum += weight * direction.Sign()
		totalWeight += weight

		switch direction {
		case shared.Bullish:
			bullish++
		case shared.Bearish:
			bearish++
		}

		signal.Votes = append(signal.Votes, shared.Vote{
			Indicator: reading.Name,
			Direction: direction,
			Weight:    weight,
		})
		annotate(&signal, reading)
	}

	if totalWeight > 0 {
		signal.Score = weightedSum / totalWeight
	}

	signal.Direction = shared.DirectionFromScore(signal.Score)
	if bullish == bearish {
		signal.Direction = shared.Neutral
	}

	signal.Confidence = math.Min(1, s.cfg.Gain*math.Abs(signal.Score))

	return signal
}
