package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/creasty/defaults"
	"github.com/dnldd/screener/engine"
	"github.com/dnldd/screener/indicator"
	"github.com/dnldd/screener/shared"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// DefaultWeights are the timeframe weights applied when none are configured.
var DefaultWeights = map[string]float64{
	"15m": 0.15,
	"4h":  0.25,
	"1d":  0.35,
	"1M":  0.25,
}

// Analysis represents the analysis configuration file.
type Analysis struct {
	// Assets represents the analyzed assets.
	Assets []string `yaml:"assets" default:"[\"ETH\",\"SOL\"]" validate:"required,min=1,dive,required"`
	// Timeframes represents the analyzed timeframes.
	Timeframes []string `yaml:"timeframes" default:"[\"15m\",\"4h\",\"1d\",\"1M\"]" validate:"required,min=1,dive,required"`
	// CandleLimit is the number of candles fetched and retained per series.
	CandleLimit int `yaml:"candleLimit" default:"500" validate:"gt=0,lte=1000"`
	// Weights maps timeframes to their fusion weight.
	Weights map[string]float64 `yaml:"weights"`
	// Indicators represents the computed indicators, all when empty.
	Indicators []string `yaml:"indicators"`
	// Params represents the indicator windows.
	Params indicator.Params `yaml:"params"`
	// Thresholds represents the indicator vote thresholds.
	Thresholds engine.Thresholds `yaml:"thresholds"`
	// IndicatorWeights maps indicators to their vote weight, one when unset.
	IndicatorWeights map[string]float64 `yaml:"indicatorWeights"`
	// ConfidenceGain scales a timeframe's absolute score into its confidence.
	ConfidenceGain float64 `yaml:"confidenceGain" default:"1.25" validate:"gt=0"`
	// AgreementBonus scales the confidence of unanimous fusions.
	AgreementBonus float64 `yaml:"agreementBonus" default:"1.15" validate:"gt=1"`
	// DisagreementPenalty scales the confidence of mixed fusions.
	DisagreementPenalty float64 `yaml:"disagreementPenalty" default:"0.7" validate:"gt=0,lt=1"`
	// Policy represents the timeframe failure policy, strict or partial.
	Policy string `yaml:"policy" validate:"required"`
	// MinConfidence is the minimum confidence of reported signals.
	MinConfidence float64 `yaml:"minConfidence" default:"0.6" validate:"gte=0,lte=1"`
	// ExcludeNeutral drops neutral signals from the ranking.
	ExcludeNeutral bool `yaml:"excludeNeutral"`
}

// Settings represents the resolved analysis configuration.
type Settings struct {
	Assets              []string
	Timeframes          []shared.Timeframe
	CandleLimit         int
	Weights             engine.Weights
	Kinds               []indicator.Kind
	Params              indicator.Params
	Thresholds          engine.Thresholds
	IndicatorWeights    map[indicator.Kind]float64
	ConfidenceGain      float64
	AgreementBonus      float64
	DisagreementPenalty float64
	Policy              engine.Policy
	RankOptions         engine.RankOptions
}

// Default returns the default analysis configuration with the provided policy.
func Default(policy string) (*Analysis, error) {
	var cfg Analysis
	err := defaults.Set(&cfg)
	if err != nil {
		return nil, fmt.Errorf("setting analysis defaults: %w", err)
	}

	cfg.Policy = policy

	return &cfg, nil
}

// Parse parses the provided yaml analysis configuration, unset fields take
// their defaults.
func Parse(data []byte) (*Analysis, error) {
	var cfg Analysis
	err := defaults.Set(&cfg)
	if err != nil {
		return nil, fmt.Errorf("setting analysis defaults: %w", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding analysis config: %w", err)
	}

	return &cfg, nil
}

// Load reads and parses the analysis configuration file at the provided path.
func Load(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading analysis config at '%s': %w", path, err)
	}

	return Parse(data)
}

// Resolve validates the analysis configuration and resolves it into typed
// settings. Weight problems are reported as invalid weight configuration
// errors.
func (cfg *Analysis) Resolve() (*Settings, error) {
	err := validate.Struct(cfg)
	if err != nil {
		return nil, fmt.Errorf("validating analysis config: %w", err)
	}

	settings := &Settings{
		Assets:              make([]string, 0, len(cfg.Assets)),
		CandleLimit:         cfg.CandleLimit,
		Params:              cfg.Params,
		Thresholds:          cfg.Thresholds,
		ConfidenceGain:      cfg.ConfidenceGain,
		AgreementBonus:      cfg.AgreementBonus,
		DisagreementPenalty: cfg.DisagreementPenalty,
		RankOptions: engine.RankOptions{
			MinConfidence:  cfg.MinConfidence,
			ExcludeNeutral: cfg.ExcludeNeutral,
		},
	}

	var errs error
	for _, asset := range cfg.Assets {
		asset = strings.ToUpper(strings.TrimSpace(asset))
		if slices.Contains(settings.Assets, asset) {
			errs = errors.Join(errs, fmt.Errorf("duplicate asset %s", asset))
		}
		settings.Assets = append(settings.Assets, asset)
	}

	settings.Timeframes, err = shared.ParseTimeframes(cfg.Timeframes)
	if err != nil {
		errs = errors.Join(errs, err)
	}
	for idx, timeframe := range settings.Timeframes {
		if slices.Contains(settings.Timeframes[:idx], timeframe) {
			errs = errors.Join(errs, fmt.Errorf("duplicate timeframe %s", timeframe.String()))
		}
	}

	settings.Policy, err = engine.ParsePolicy(cfg.Policy)
	if err != nil {
		errs = errors.Join(errs, err)
	}

	kinds := indicator.Kinds
	if len(cfg.Indicators) > 0 {
		kinds, err = indicator.ParseKinds(cfg.Indicators)
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}
	settings.Kinds = kinds

	settings.IndicatorWeights = make(map[indicator.Kind]float64, len(cfg.IndicatorWeights))
	for name, weight := range cfg.IndicatorWeights {
		kind, err := indicator.ParseKind(name)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		settings.IndicatorWeights[kind] = weight
	}

	if errs != nil {
		return nil, errs
	}

	weights := cfg.Weights
	if len(weights) == 0 {
		weights = DefaultWeights
	}

	settings.Weights = make(engine.Weights, len(weights))
	for name, weight := range weights {
		timeframe, err := shared.ParseTimeframe(name)
		if err != nil {
			return nil, fmt.Errorf("weights: %w", err)
		}
		if _, ok := settings.Weights[timeframe]; ok {
			return nil, &shared.InvalidWeightConfigurationError{
				Timeframe: timeframe,
				Weight:    weight,
				Reason:    "duplicate weight",
			}
		}
		settings.Weights[timeframe] = weight
	}

	err = settings.Weights.Validate(settings.Timeframes)
	if err != nil {
		return nil, err
	}

	return settings, nil
}
