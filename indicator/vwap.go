package indicator

import (
	"time"

	"github.com/dnldd/screener/shared"
)

// VWAPPoint represents a rolling VWAP entry.
type VWAPPoint struct {
	Value float64
	Date  time.Time
}

// vwapEntry is a candle's contribution to the rolling window.
type vwapEntry struct {
	priceVolume float64
	volume      float64
}

// VWAPGenerator tracks the volume weighted average price over the most
// recent period candles. It must not be shared across goroutines.
type VWAPGenerator struct {
	period  int
	window  []vwapEntry
	next    int
	current *VWAPPoint
}

// NewVWAPGenerator initializes a rolling VWAP over the provided period.
func NewVWAPGenerator(period int) *VWAPGenerator {
	return &VWAPGenerator{
		period: max(period, 1),
		window: make([]vwapEntry, 0, max(period, 1)),
	}
}

// Update adds the provided candle to the window, evicting the oldest candle
// once the window is full. Windows without volume keep the previous point.
func (v *VWAPGenerator) Update(candle *shared.Candlestick) *VWAPPoint {
	entry := vwapEntry{
		priceVolume: candle.TypicalPrice() * candle.Volume,
		volume:      candle.Volume,
	}

	if len(v.window) < v.period {
		v.window = append(v.window, entry)
	} else {
		v.window[v.next] = entry
		v.next = (v.next + 1) % v.period
	}

	var priceVolume, volume float64
	for _, held := range v.window {
		priceVolume += held.priceVolume
		volume += held.volume
	}

	if volume > 0 {
		v.current = &VWAPPoint{
			Value: priceVolume / volume,
			Date:  candle.Date,
		}
	}

	return v.current
}

// Current returns the latest VWAP point, nil until a candle with volume is seen.
func (v *VWAPGenerator) Current() *VWAPPoint {
	return v.current
}
