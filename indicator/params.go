package indicator

import (
	"errors"
	"fmt"
)

const (
	// ParamsVersion is the version of the indicator window definitions,
	// stamped into every reading.
	ParamsVersion = 2

	// patternCandles is the number of candles inspected for candle patterns.
	patternCandles = 3
)

// Params represents the indicator window lengths and tuning values.
type Params struct {
	// SMAPeriod is the simple moving average period.
	SMAPeriod int `yaml:"smaPeriod" default:"20" validate:"gt=0"`
	// EMAFast is the fast exponential moving average period.
	EMAFast int `yaml:"emaFast" default:"12" validate:"gt=0"`
	// EMASlow is the slow exponential moving average period.
	EMASlow int `yaml:"emaSlow" default:"26" validate:"gt=0"`
	// MACDFast is the MACD fast period.
	MACDFast int `yaml:"macdFast" default:"12" validate:"gt=0"`
	// MACDSlow is the MACD slow period.
	MACDSlow int `yaml:"macdSlow" default:"26" validate:"gt=0"`
	// MACDSignal is the MACD signal line period.
	MACDSignal int `yaml:"macdSignal" default:"9" validate:"gt=0"`
	// RSIPeriod is the relative strength index period.
	RSIPeriod int `yaml:"rsiPeriod" default:"14" validate:"gt=1"`
	// StochFastK is the stochastic fast %K period.
	StochFastK int `yaml:"stochFastK" default:"14" validate:"gt=0"`
	// StochSlowK is the stochastic slow %K period.
	StochSlowK int `yaml:"stochSlowK" default:"3" validate:"gt=0"`
	// StochSlowD is the stochastic slow %D period.
	StochSlowD int `yaml:"stochSlowD" default:"3" validate:"gt=0"`
	// BollingerPeriod is the Bollinger band period.
	BollingerPeriod int `yaml:"bollingerPeriod" default:"20" validate:"gt=1"`
	// BollingerDeviation is the Bollinger band standard deviation multiplier.
	BollingerDeviation float64 `yaml:"bollingerDeviation" default:"2" validate:"gt=0"`
	// ATRPeriod is the average true range period.
	ATRPeriod int `yaml:"atrPeriod" default:"14" validate:"gt=0"`
	// OBVSlopePeriod is the regression period of the on-balance volume slope.
	OBVSlopePeriod int `yaml:"obvSlopePeriod" default:"14" validate:"gt=1"`
	// VWAPPeriod is the rolling volume weighted average price period.
	VWAPPeriod int `yaml:"vwapPeriod" default:"20" validate:"gt=0"`
	// VolumePeriod is the average volume period.
	VolumePeriod int `yaml:"volumePeriod" default:"20" validate:"gt=0"`
	// LevelsPeriod is the number of candles scanned for support and resistance.
	LevelsPeriod int `yaml:"levelsPeriod" default:"50" validate:"gte=20"`
	// LevelTolerance is the relative price distance clustering level touches.
	LevelTolerance float64 `yaml:"levelTolerance" default:"0.005" validate:"gt=0,lt=1"`
	// LevelMinTouches is the minimum number of touches forming a level.
	LevelMinTouches int `yaml:"levelMinTouches" default:"2" validate:"gte=2"`
	// PatternPeriod is the number of candles scanned for chart patterns.
	PatternPeriod int `yaml:"patternPeriod" default:"60" validate:"gte=8"`
	// PatternLength is the minimum chart pattern length, in candles.
	PatternLength int `yaml:"patternLength" default:"20" validate:"gte=8"`
	// ShoulderTolerance is the relative height difference allowed between
	// the shoulders of a head and shoulders pattern.
	ShoulderTolerance float64 `yaml:"shoulderTolerance" default:"0.1" validate:"gt=0,lt=1"`
	// PatternTolerance is the relative price difference allowed between the
	// peaks of a double top or the troughs of a double bottom.
	PatternTolerance float64 `yaml:"patternTolerance" default:"0.01" validate:"gt=0,lt=1"`
}

// DefaultParams returns the default indicator params.
func DefaultParams() Params {
	return Params{
		SMAPeriod:          20,
		EMAFast:            12,
		EMASlow:            26,
		MACDFast:           12,
		MACDSlow:           26,
		MACDSignal:         9,
		RSIPeriod:          14,
		StochFastK:         14,
		StochSlowK:         3,
		StochSlowD:         3,
		BollingerPeriod:    20,
		BollingerDeviation: 2,
		ATRPeriod:          14,
		OBVSlopePeriod:     14,
		VWAPPeriod:         20,
		VolumePeriod:       20,
		LevelsPeriod:       50,
		LevelTolerance:     0.005,
		LevelMinTouches:    2,
		PatternPeriod:      60,
		PatternLength:      20,
		ShoulderTolerance:  0.1,
		PatternTolerance:   0.01,
	}
}

// Validate asserts the params are sane.
func (p *Params) Validate() error {
	var errs error

	periods := []struct {
		name  string
		value int
		min   int
	}{
		{"sma period", p.SMAPeriod, 1},
		{"ema fast period", p.EMAFast, 1},
		{"ema slow period", p.EMASlow, 1},
		{"macd fast period", p.MACDFast, 1},
		{"macd slow period", p.MACDSlow, 1},
		{"macd signal period", p.MACDSignal, 1},
		{"rsi period", p.RSIPeriod, 2},
		{"stochastic fast k period", p.StochFastK, 1},
		{"stochastic slow k period", p.StochSlowK, 1},
		{"stochastic slow d period", p.StochSlowD, 1},
		{"bollinger period", p.BollingerPeriod, 2},
		{"atr period", p.ATRPeriod, 1},
		{"obv slope period", p.OBVSlopePeriod, 2},
		{"vwap period", p.VWAPPeriod, 1},
		{"volume period", p.VolumePeriod, 1},
		{"levels period", p.LevelsPeriod, 20},
		{"level min touches", p.LevelMinTouches, 2},
		{"pattern period", p.PatternPeriod, 8},
		{"pattern length", p.PatternLength, 8},
	}

	for _, period := range periods {
		if period.value < period.min {
			errs = errors.Join(errs, fmt.Errorf("%s must be at least %d, got %d",
				period.name, period.min, period.value))
		}
	}

	if p.EMAFast >= p.EMASlow {
		errs = errors.Join(errs, fmt.Errorf("ema fast period (%d) must be below the slow period (%d)",
			p.EMAFast, p.EMASlow))
	}
	if p.MACDFast >= p.MACDSlow {
		errs = errors.Join(errs, fmt.Errorf("macd fast period (%d) must be below the slow period (%d)",
			p.MACDFast, p.MACDSlow))
	}
	if !(p.BollingerDeviation > 0) {
		errs = errors.Join(errs, fmt.Errorf("bollinger deviation must be positive, got %f", p.BollingerDeviation))
	}
	if !(p.LevelTolerance > 0 && p.LevelTolerance < 1) {
		errs = errors.Join(errs, fmt.Errorf("level tolerance must be in (0, 1), got %f", p.LevelTolerance))
	}
	if p.PatternLength > p.PatternPeriod {
		errs = errors.Join(errs, fmt.Errorf("pattern length (%d) cannot exceed the pattern period (%d)",
			p.PatternLength, p.PatternPeriod))
	}
	if !(p.ShoulderTolerance > 0 && p.ShoulderTolerance < 1) {
		errs = errors.Join(errs, fmt.Errorf("shoulder tolerance must be in (0, 1), got %f", p.ShoulderTolerance))
	}
	if !(p.PatternTolerance > 0 && p.PatternTolerance < 1) {
		errs = errors.Join(errs, fmt.Errorf("pattern tolerance must be in (0, 1), got %f", p.PatternTolerance))
	}

	return errs
}
