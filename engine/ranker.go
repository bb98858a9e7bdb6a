package engine

import (
	"slices"
	"strings"

	"github.com/dnldd/screener/shared"
)

// RankOptions represents the signal filtering options.
type RankOptions struct {
	// MinConfidence is the inclusive minimum confidence of retained signals.
	MinConfidence float64
	// ExcludeNeutral drops signals without a direction.
	ExcludeNeutral bool
}

// FilterAndRank retains the signals with a confidence at or above the
// provided minimum, ordered by confidence descending and asset ascending.
// The provided signals are not modified.
func FilterAndRank(signals []shared.FusedSignal, minConfidence float64) []shared.FusedSignal {
	ranked := make([]shared.FusedSignal, 0, len(signals))
	for idx := range signals {
		if signals[idx].Confidence >= minConfidence {
			ranked = append(ranked, signals[idx].Clone())
		}
	}

	slices.SortStableFunc(ranked, func(a, b shared.FusedSignal) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return strings.Compare(a.Asset, b.Asset)
		}
	})

	return ranked
}

// Rank applies the provided options to the signals before filtering and
// ranking them.
func Rank(signals []shared.FusedSignal, opts RankOptions) []shared.FusedSignal {
	if !opts.ExcludeNeutral {
		return FilterAndRank(signals, opts.MinConfidence)
	}

	directional := make([]shared.FusedSignal, 0, len(signals))
	for idx := range signals {
		if signals[idx].Direction != shared.Neutral {
			directional = append(directional, signals[idx])
		}
	}

	return FilterAndRank(directional, opts.MinConfidence)
}
