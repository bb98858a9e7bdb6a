package indicator

import (
	"math"
)

const (
	// levelFullStrengthTouches is the number of touches at which a level
	// reaches full strength.
	levelFullStrengthTouches = 5
	// breakoutVolumeRatio is the volume multiple of the average confirming
	// a level breakout.
	breakoutVolumeRatio = 1.2
	// breakoutVolumePeriod is the number of candles averaged for breakout
	// volume confirmation.
	breakoutVolumePeriod = 20
)

// level represents a clustered support or resistance price.
type level struct {
	price    float64
	touches  int
	strength float64
}

// clusterLevels groups the provided prices into levels. A price joins the
// first level it is within tolerance of, otherwise it starts a new level.
// Only levels with at least minTouches are returned.
func clusterLevels(prices []float64, tolerance float64, minTouches int) []level {
	groups := []level{}

next:
	for _, price := range prices {
		for idx := range groups {
			anchor := groups[idx].price
			if anchor == 0 {
				if price == 0 {
					groups[idx].touches++
					continue next
				}
				continue
			}

			if math.Abs(price-anchor)/anchor <= tolerance {
				groups[idx].touches++
				continue next
			}
		}

		groups = append(groups, level{price: price, touches: 1})
	}

	levels := make([]level, 0, len(groups))
	for _, group := range groups {
		if group.touches < minTouches {
			continue
		}

		group.strength = math.Min(float64(group.touches)/levelFullStrengthTouches, 1)
		levels = append(levels, group)
	}

	return levels
}

// nearestBelow returns the closest level at or below the price.
func nearestBelow(levels []level, price float64) (level, bool) {
	var found level
	ok := false
	for _, lvl := range levels {
		if lvl.price <= price && (!ok || lvl.price > found.price) {
			found = lvl
			ok = true
		}
	}

	return found, ok
}

// nearestAbove returns the closest level at or above the price.
func nearestAbove(levels []level, price float64) (level, bool) {
	var found level
	ok := false
	for _, lvl := range levels {
		if lvl.price >= price && (!ok || lvl.price < found.price) {
			found = lvl
			ok = true
		}
	}

	return found, ok
}

// findLevels locates the support and resistance levels nearest to the price
// and whether the latest candle broke out of a level on elevated volume.
func findLevels(highs []float64, lows []float64, volumes []float64, price float64, tolerance float64, minTouches int) map[string]float64 {
	values := map[string]float64{
		"close":               price,
		"support":             0,
		"support_strength":    0,
		"support_distance":    0,
		"resistance":          0,
		"resistance_strength": 0,
		"resistance_distance": 0,
		"breakout":            0,
	}

	supports := clusterLevels(lows, tolerance, minTouches)
	resistances := clusterLevels(highs, tolerance, minTouches)

	if price > 0 {
		if support, ok := nearestBelow(supports, price); ok {
			values["support"] = support.price
			values["support_strength"] = support.strength
			values["support_distance"] = (price - support.price) / price
		}

		if resistance, ok := nearestAbove(resistances, price); ok {
			values["resistance"] = resistance.price
			values["resistance_strength"] = resistance.strength
			values["resistance_distance"] = (resistance.price - price) / price
		}
	}

	n := len(volumes)
	if n < 2 {
		return values
	}

	window := volumes[max(0, n-breakoutVolumePeriod):]
	var sum float64
	for _, volume := range window {
		sum += volume
	}
	average := sum / float64(len(window))
	if volumes[n-1] <= average*breakoutVolumeRatio {
		return values
	}

	for _, resistance := range resistances {
		if highs[n-2] < resistance.price && highs[n-1] > resistance.price {
			values["breakout"] = 1
			return values
		}
	}

	for _, support := range supports {
		if lows[n-2] > support.price && lows[n-1] < support.price {
			values["breakout"] = -1
			return values
		}
	}

	return values
}
