package shared

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestInsufficientDataError(t *testing.T) {
	err := fmt.Errorf("computing indicators: %w", &InsufficientDataError{
		Indicator: "macd",
		Timeframe: OneDay,
		Required:  35,
		Available: 20,
	})

	// Ensure the error can be unwrapped and names the indicator and shortfall.
	var insufficient *InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
	assert.Equal(t, insufficient.Indicator, "macd")
	assert.Equal(t, insufficient.Shortfall(), 15)
	assert.True(t, strings.Contains(err.Error(), "macd"))
	assert.True(t, strings.Contains(err.Error(), "short by 15"))
}

func TestNoTimeframeDataError(t *testing.T) {
	err := fmt.Errorf("fusing: %w", &NoTimeframeDataError{Asset: "ETH"})

	var noData *NoTimeframeDataError
	assert.True(t, errors.As(err, &noData))
	assert.Equal(t, noData.Asset, "ETH")
	assert.True(t, strings.Contains(err.Error(), "ETH"))
}

func TestInvalidWeightConfigurationError(t *testing.T) {
	err := errors.Join(nil, &InvalidWeightConfigurationError{
		Timeframe: FourHour,
		Weight:    -1,
		Reason:    "weight must be positive",
	})

	var invalid *InvalidWeightConfigurationError
	assert.True(t, errors.As(err, &invalid))
	assert.Equal(t, invalid.Timeframe, FourHour)
	assert.True(t, strings.Contains(err.Error(), "4h"))
}
