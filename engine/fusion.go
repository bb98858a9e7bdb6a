package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dnldd/screener/shared"
)

const (
	// DefaultAgreementBonus is the default confidence multiplier applied
	// when every directional timeframe agrees.
	DefaultAgreementBonus = 1.15
	// DefaultDisagreementPenalty is the default confidence multiplier
	// applied when directional timeframes disagree.
	DefaultDisagreementPenalty = 0.7
)

// Weights maps timeframes to their fusion weights.
type Weights map[shared.Timeframe]float64

// Validate asserts every provided timeframe carries a positive, finite weight.
func (w Weights) Validate(timeframes []shared.Timeframe) error {
	for _, timeframe := range timeframes {
		weight, ok := w[timeframe]
		switch {
		case !ok:
			return &shared.InvalidWeightConfigurationError{
				Timeframe: timeframe,
				Reason:    "missing weight",
			}
		case math.IsNaN(weight) || math.IsInf(weight, 0):
			return &shared.InvalidWeightConfigurationError{
				Timeframe: timeframe,
				Weight:    weight,
				Reason:    "weight must be finite",
			}
		case weight <= 0:
			return &shared.InvalidWeightConfigurationError{
				Timeframe: timeframe,
				Weight:    weight,
				Reason:    "weight must be positive",
			}
		}
	}

	return nil
}

// FusionConfig represents the cross-timeframe fusion configuration.
type FusionConfig struct {
	// AgreementBonus multiplies confidence when directional timeframes agree, must exceed 1.
	AgreementBonus float64
	// DisagreementPenalty multiplies confidence when directional timeframes
	// disagree, must be in (0, 1).
	DisagreementPenalty float64
	// Now returns the timestamp of fused signals, defaults to the current UTC time.
	Now func() time.Time
}

// Validate asserts the config sane inputs.
func (cfg *FusionConfig) Validate() error {
	var errs error

	if !(cfg.AgreementBonus > 1) || math.IsInf(cfg.AgreementBonus, 0) {
		errs = errors.Join(errs, fmt.Errorf("agreement bonus must be finite and above 1, got %f",
			cfg.AgreementBonus))
	}
	if !(cfg.DisagreementPenalty > 0 && cfg.DisagreementPenalty < 1) {
		errs = errors.Join(errs, fmt.Errorf("disagreement penalty must be in (0, 1), got %f",
			cfg.DisagreementPenalty))
	}

	return errs
}

// Fusion combines timeframe signals into a single signal per asset.
type Fusion struct {
	cfg *FusionConfig
}

// NewFusion initializes a new fusion engine.
func NewFusion(cfg *FusionConfig) (*Fusion, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fusion config: %w", err)
	}

	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Fusion{cfg: cfg}, nil
}

// clamp bounds the provided value to [0, 1], NaN maps to zero.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// weightedSignal pairs a timeframe signal with its normalized weight.
type weightedSignal struct {
	signal *shared.TimeframeSignal
	weight float64
}

// severeConflict checks whether the two highest weighted timeframes are
// directional and opposed. Weight ties favour the longer timeframe.
func severeConflict(set []weightedSignal) bool {
	if len(set) < 2 {
		return false
	}

	ranked := slices.Clone(set)
	slices.SortStableFunc(ranked, func(a, b weightedSignal) int {
		switch {
		case a.weight > b.weight:
			return -1
		case a.weight < b.weight:
			return 1
		default:
			return int(b.signal.Timeframe) - int(a.signal.Timeframe)
		}
	})

	return ranked[0].signal.Direction.Opposes(ranked[1].signal.Direction)
}

// FuseSignals combines the provided timeframe signals of an asset into one
// fused signal using the provided timeframe weights.
func (f *Fusion) FuseSignals(asset string, signals []shared.TimeframeSignal, weights Weights) (shared.FusedSignal, error) {
	if len(signals) == 0 {
		return shared.FusedSignal{}, &shared.NoTimeframeDataError{Asset: asset}
	}

	timeframes := make([]shared.Timeframe, 0, len(signals))
	for idx := range signals {
		if slices.Contains(timeframes, signals[idx].Timeframe) {
			return shared.FusedSignal{}, fmt.Errorf("duplicate %s signal for %s",
				signals[idx].Timeframe.String(), asset)
		}
		timeframes = append(timeframes, signals[idx].Timeframe)
	}

	err := weights.Validate(timeframes)
	if err != nil {
		return shared.FusedSignal{}, err
	}

	var totalWeight float64
	for _, timeframe := range timeframes {
		totalWeight += weights[timeframe]
	}

	set := make([]weightedSignal, len(signals))
	for idx := range signals {
		set[idx] = weightedSignal{
			signal: &signals[idx],
			weight: weights[signals[idx].Timeframe] / totalWeight,
		}
	}

	slices.SortFunc(set, func(a, b weightedSignal) int {
		return int(a.signal.Timeframe) - int(b.signal.Timeframe)
	})

	fused := shared.FusedSignal{
		Asset:     asset,
		Breakdown: make([]shared.TimeframeBreakdown, 0, len(set)),
		Price:     set[0].signal.Close,
		Timestamp: f.cfg.Now(),
	}

	var score, averageConfidence float64
	var bullish, bearish int
	for _, entry := range set {
		confidence := clamp(entry.signal.Confidence)
		contribution := entry.weight * entry.signal.Direction.Sign() * confidence
		score += contribution
		averageConfidence += entry.weight * confidence

		switch entry.signal.Direction {
		case shared.Bullish:
			bullish++
		case shared.Bearish:
			bearish++
		}

		fused.Breakdown = append(fused.Breakdown, shared.TimeframeBreakdown{
			Timeframe:    entry.signal.Timeframe,
			Direction:    entry.signal.Direction,
			Confidence:   confidence,
			Weight:       entry.weight,
			Contribution: contribution,
		})
	}

	fused.Score = score

	directional := bullish + bearish
	confidence := math.Abs(score)
	fused.Direction = shared.DirectionFromScore(score)

	switch {
	case len(set) == 1:
		fused.Direction = set[0].signal.Direction
		fused.Agreement = shared.SingleTimeframe
		if fused.Direction == shared.Neutral {
			fused.Agreement = shared.NoAgreement
		}
		confidence = set[0].signal.Confidence
	case directional == 0:
		fused.Agreement = shared.NoAgreement
		confidence = averageConfidence
	case bullish > 0 && bearish > 0:
		fused.Agreement = shared.Mixed
		confidence *= f.cfg.DisagreementPenalty
		if severeConflict(set) {
			fused.Agreement = shared.Conflict
			fused.Direction = shared.Neutral
		}
	case directional == 1:
		fused.Agreement = shared.SingleTimeframe
	default:
		fused.Agreement = shared.Unanimous
		confidence *= f.cfg.AgreementBonus
	}

	fused.Confidence = clamp(confidence)
	fused.Strength = shared.StrengthFromConfidence(fused.Confidence)

	// Trade levels come from the shortest timeframe, the one priced from.
	entry := set[0].signal
	fused.StopLoss, fused.TakeProfit = tradeLevels(fused.Direction, fused.Price,
		entry.Support, entry.Resistance, entry.Target)

	return fused, nil
}
