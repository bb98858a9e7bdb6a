package indicator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dnldd/screener/market"
	"github.com/dnldd/screener/shared"
)

// Bank computes a fixed set of indicators over candle series.
type Bank struct {
	kinds    []Kind
	params   Params
	lookback int
	longest  Kind
}

// NewBank initializes an indicator bank for the provided indicator kinds.
// The kinds are evaluated in their enumeration order.
func NewBank(kinds []Kind, params Params) (*Bank, error) {
	if len(kinds) == 0 {
		return nil, errors.New("indicator bank requires at least one indicator")
	}

	err := params.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating indicator params: %w", err)
	}

	set := slices.Clone(kinds)
	slices.Sort(set)
	for idx, kind := range set {
		if kind < SMA || int(kind) >= len(Kinds) {
			return nil, fmt.Errorf("unknown indicator kind %d", int(kind))
		}
		if idx > 0 && set[idx-1] == kind {
			return nil, fmt.Errorf("duplicate indicator %q", kind.String())
		}
	}

	bank := &Bank{
		kinds:  set,
		params: params,
	}

	for _, kind := range set {
		lookback := kind.Lookback(&bank.params)
		if lookback > bank.lookback {
			bank.lookback = lookback
			bank.longest = kind
		}
	}

	return bank, nil
}

// Kinds returns the indicators computed by the bank.
func (b *Bank) Kinds() []Kind {
	return slices.Clone(b.kinds)
}

// Params returns the bank's indicator params.
func (b *Bank) Params() Params {
	return b.params
}

// Lookback returns the minimum series length the bank can compute over.
func (b *Bank) Lookback() int {
	return b.lookback
}

// ComputeIndicators computes every indicator of the bank over the provided
// series with a fresh run context.
func (b *Bank) ComputeIndicators(series *market.CandleSeries) (Readings, error) {
	return b.Compute(NewRunContext(series))
}

// Compute computes every indicator of the bank over the series bound to the
// provided run context.
func (b *Bank) Compute(run *RunContext) (Readings, error) {
	series := run.Series()
	if series == nil {
		return nil, errors.New("run context has no series")
	}

	if series.Len() < b.lookback {
		return nil, &shared.InsufficientDataError{
			Indicator: b.longest.String(),
			Timeframe: series.Timeframe(),
			Required:  b.lookback,
			Available: series.Len(),
		}
	}

	readings := make(Readings, len(b.kinds))
	for _, kind := range b.kinds {
		name := kind.String()
		readings[name] = Reading{
			Name:      name,
			Kind:      kind,
			Timeframe: series.Timeframe(),
			Version:   ParamsVersion,
			Values:    b.compute(kind, run),
		}
	}

	return readings, nil
}
