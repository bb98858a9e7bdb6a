package shared

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Kind represents type of candlestick.
type Kind int

const (
	Marubozu Kind = iota
	Pinbar
	Doji
	Unknown
)

// String stringifies the provided candlestick kind.
func (k Kind) String() string {
	switch k {
	case Marubozu:
		return "marubozu"
	case Pinbar:
		return "pinbar"
	case Doji:
		return "doji"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata.
	Market    string
	Timeframe Timeframe
}

// Validate asserts the candlestick's price and volume invariants.
func (c *Candlestick) Validate() error {
	var errs error

	for _, v := range []float64{c.Open, c.Low, c.High, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("candlestick at %s has non-finite values", c.Date.Format(DateLayout))
		}
	}

	if c.High < math.Max(c.Open, c.Close) {
		errs = errors.Join(errs, fmt.Errorf("high %f is below the candle body", c.High))
	}
	if c.Low > math.Min(c.Open, c.Close) {
		errs = errors.Join(errs, fmt.Errorf("low %f is above the candle body", c.Low))
	}
	if c.Volume < 0 {
		errs = errors.Join(errs, fmt.Errorf("volume cannot be negative, got %f", c.Volume))
	}
	if c.Date.IsZero() {
		errs = errors.Join(errs, fmt.Errorf("open time cannot be zero"))
	}

	return errs
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Direction {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// FetchKind returns the candlestick type.
func (c *Candlestick) FetchKind() Kind {
	candleRange := c.High - c.Low
	if candleRange == 0 {
		return Unknown
	}

	candleBody := math.Abs(c.Close - c.Open)
	upperWickRange := c.High - math.Max(c.Open, c.Close)
	lowerWickRange := math.Min(c.Open, c.Close) - c.Low

	bodyPercent := candleBody / candleRange
	upperWickPercent := upperWickRange / candleRange
	lowerWickPercent := lowerWickRange / candleRange

	switch {
	case bodyPercent <= 0.3 && (upperWickPercent >= 0.6 || lowerWickPercent >= 0.6):
		// A small body with one dominant wick is a pin bar.
		return Pinbar
	case bodyPercent <= 0.3 && upperWickPercent >= 0.3 && lowerWickPercent >= 0.3:
		// A small body with balanced wicks is a doji.
		return Doji
	case bodyPercent >= 0.7:
		return Marubozu
	default:
		return Unknown
	}
}

// Body returns the absolute size of the candle body.
func (c *Candlestick) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// UpperWick returns the size of the upper wick.
func (c *Candlestick) UpperWick() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerWick returns the size of the lower wick.
func (c *Candlestick) LowerWick() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// TypicalPrice returns the average of the high, low and close.
func (c *Candlestick) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}
