package indicator

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestClusterLevels(t *testing.T) {
	// Ensure prices within tolerance are clustered into their first level.
	prices := []float64{100, 100.3, 105, 100.2, 110, 105.1}
	levels := clusterLevels(prices, 0.005, 2)
	assert.Equal(t, len(levels), 2)
	assert.Equal(t, levels[0].price, float64(100))
	assert.Equal(t, levels[0].touches, 3)
	assert.Equal(t, levels[0].strength, 0.6)
	assert.Equal(t, levels[1].price, float64(105))
	assert.Equal(t, levels[1].touches, 2)
	assert.Equal(t, levels[1].strength, 0.4)

	// Ensure strength is capped.
	levels = clusterLevels([]float64{50, 50, 50, 50, 50, 50, 50}, 0.005, 2)
	assert.Equal(t, len(levels), 1)
	assert.Equal(t, levels[0].strength, float64(1))

	// Ensure the minimum touches are enforced.
	levels = clusterLevels(prices, 0.005, 4)
	assert.Equal(t, len(levels), 0)

	// Ensure zero prices do not divide by zero.
	levels = clusterLevels([]float64{0, 0, 1}, 0.005, 2)
	assert.Equal(t, len(levels), 1)
	assert.Equal(t, levels[0].price, float64(0))
}

func TestFindLevels(t *testing.T) {
	highs := []float64{105, 104, 105.2, 103, 102, 101}
	lows := []float64{95, 96, 95.1, 97, 95.2, 98}
	volumes := []float64{10, 10, 10, 10, 10, 10}

	// Ensure the nearest support and resistance are located.
	values := findLevels(highs, lows, volumes, 100, 0.005, 2)
	assert.Equal(t, values["close"], float64(100))
	assert.Equal(t, values["support"], float64(95))
	assert.Equal(t, values["support_strength"], 0.6)
	assert.Equal(t, values["support_distance"], 0.05)
	assert.Equal(t, values["resistance"], float64(105))
	assert.Equal(t, values["resistance_strength"], 0.4)
	assert.Equal(t, values["resistance_distance"], 0.05)
	assert.Equal(t, values["breakout"], float64(0))

	// Ensure missing levels are reported as zero.
	values = findLevels([]float64{110, 120, 130}, []float64{90, 80, 70}, []float64{1, 1, 1}, 100, 0.005, 2)
	assert.Equal(t, values["support"], float64(0))
	assert.Equal(t, values["support_strength"], float64(0))
	assert.Equal(t, values["resistance"], float64(0))
	assert.Equal(t, values["resistance_strength"], float64(0))

	// Ensure a resistance breakout on elevated volume is flagged.
	highs = []float64{105, 104, 105.1, 103, 104, 107}
	lows = []float64{99, 99, 99, 99, 99, 102}
	volumes = []float64{10, 10, 10, 10, 10, 40}
	values = findLevels(highs, lows, volumes, 106, 0.005, 2)
	assert.Equal(t, values["breakout"], float64(1))

	// Ensure a breakout without volume confirmation is ignored.
	volumes = []float64{10, 10, 10, 10, 10, 11}
	values = findLevels(highs, lows, volumes, 106, 0.005, 2)
	assert.Equal(t, values["breakout"], float64(0))

	// Ensure a support breakdown on elevated volume is flagged.
	highs = []float64{101, 101, 101, 101, 101, 96}
	lows = []float64{95, 96, 95.1, 97, 96, 93}
	volumes = []float64{10, 10, 10, 10, 10, 40}
	values = findLevels(highs, lows, volumes, 94, 0.005, 2)
	assert.Equal(t, values["breakout"], float64(-1))
}
