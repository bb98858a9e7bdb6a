package shared

import (
	"fmt"
)

// InsufficientDataError is returned when a series holds fewer candles than an
// indicator's lookback window.
type InsufficientDataError struct {
	Indicator string
	Timeframe Timeframe
	Required  int
	Available int
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s on %s: requires %d candles, have %d (short by %d)",
		e.Indicator, e.Timeframe.String(), e.Required, e.Available, e.Shortfall())
}

// Shortfall returns the number of missing candles.
func (e *InsufficientDataError) Shortfall() int {
	return e.Required - e.Available
}

// NoTimeframeDataError is returned when fusion is requested without any
// timeframe signals.
type NoTimeframeDataError struct {
	Asset string
}

// Error implements the error interface.
func (e *NoTimeframeDataError) Error() string {
	return fmt.Sprintf("no timeframe signals to fuse for %s", e.Asset)
}

// InvalidWeightConfigurationError is returned when a requested timeframe has
// a missing or non-positive weight.
type InvalidWeightConfigurationError struct {
	Timeframe Timeframe
	Weight    float64
	Reason    string
}

// Error implements the error interface.
func (e *InvalidWeightConfigurationError) Error() string {
	return fmt.Sprintf("invalid weight configuration for %s (%v): %s",
		e.Timeframe.String(), e.Weight, e.Reason)
}
