package indicator

import (
	"math"
	"slices"

	"github.com/markcheno/go-talib"
)

// localMaxima returns the indices of the strict local maxima of the provided
// values. Flat peaks resolve to the lower middle index of the plateau.
func localMaxima(values []float64) []int {
	peaks := []int{}
	n := len(values)

	for i := 1; i < n-1; {
		if !(values[i-1] < values[i]) {
			i++
			continue
		}

		ahead := i + 1
		for ahead < n-1 && values[ahead] == values[i] {
			ahead++
		}

		if values[ahead] < values[i] {
			peaks = append(peaks, (i+ahead-1)/2)
		}
		i = ahead
	}

	return peaks
}

// selectByDistance drops peaks closer than distance to a higher peak.
func selectByDistance(values []float64, peaks []int, distance int) []int {
	keep := make([]bool, len(peaks))
	for idx := range keep {
		keep[idx] = true
	}

	order := make([]int, len(peaks))
	for idx := range order {
		order[idx] = idx
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case values[peaks[a]] > values[peaks[b]]:
			return -1
		case values[peaks[a]] < values[peaks[b]]:
			return 1
		default:
			return b - a
		}
	})

	for _, j := range order {
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	selected := make([]int, 0, len(peaks))
	for idx, peak := range peaks {
		if keep[idx] {
			selected = append(selected, peak)
		}
	}

	return selected
}

// prominence returns the vertical distance between the peak and the higher
// of the lowest points on either side before a higher value is reached.
func prominence(values []float64, peak int) float64 {
	height := values[peak]

	leftMin := height
	for i := peak; i >= 0 && values[i] <= height; i-- {
		leftMin = math.Min(leftMin, values[i])
	}

	rightMin := height
	for i := peak; i < len(values) && values[i] <= height; i++ {
		rightMin = math.Min(rightMin, values[i])
	}

	return height - math.Max(leftMin, rightMin)
}

// findPeaks locates the local maxima of the provided values at least
// distance candles apart and standing out by at least minProminence.
func findPeaks(values []float64, distance int, minProminence float64) []int {
	peaks := localMaxima(values)
	if distance > 1 {
		peaks = selectByDistance(values, peaks, distance)
	}

	selected := make([]int, 0, len(peaks))
	for _, peak := range peaks {
		if prominence(values, peak) >= minProminence {
			selected = append(selected, peak)
		}
	}

	return selected
}

// negate returns the provided values with their signs flipped.
func negate(values []float64) []float64 {
	negated := make([]float64, len(values))
	for idx, value := range values {
		negated[idx] = -value
	}

	return negated
}

// mean returns the average of the provided values, zero when empty.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

// stdDev returns the population standard deviation of the provided values.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	return last(talib.StdDev(values, len(values), 1))
}

// slope returns the least squares slope of the provided values against
// their index.
func slope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	return last(talib.LinearRegSlope(values, len(values)))
}
