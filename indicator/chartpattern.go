package indicator

import (
	"math"
)

const (
	// shoulderProminence scales the price deviation into the prominence
	// required of head and shoulders peaks.
	shoulderProminence = 0.5
	// doublePeakProminence scales the price deviation into the prominence
	// required of double top and bottom peaks.
	doublePeakProminence = 0.3
	// patternVolumeRatio is the share of the average volume the pattern
	// span must exceed to confirm it.
	patternVolumeRatio = 0.8
	// trendFlatness scales the price deviation into the slope below which a
	// trend line is considered flat.
	trendFlatness = 0.1
	// rectangleFlatness scales the price deviation into the slope above
	// which a rectangle boundary is considered trending.
	rectangleFlatness = 0.2
	// rectangleBoundaryRange is the maximum share of the pattern range a
	// rectangle boundary may span.
	rectangleBoundaryRange = 0.3
	// wedgeConvergence is the minimum relative slope difference of wedge
	// boundaries.
	wedgeConvergence = 0.3
)

// chartPatternNames lists the flags reported by chart pattern detection.
var chartPatternNames = []string{
	"double_top", "double_bottom", "ascending_triangle", "descending_triangle",
	"symmetric_triangle", "flag", "pennant", "rising_wedge", "falling_wedge", "rectangle",
}

// clampUnit bounds the provided value to [0, 1].
func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// neckline averages the extreme of each of the provided spans using pick.
func neckline(spans [][]float64, pick func(...float64) float64) float64 {
	var sum float64
	for _, span := range spans {
		sum += pick(span...)
	}

	return sum / float64(len(spans))
}

// minOf returns the smallest of the provided values.
func minOf(values ...float64) float64 {
	low := math.Inf(1)
	for _, value := range values {
		low = math.Min(low, value)
	}

	return low
}

// maxOf returns the largest of the provided values.
func maxOf(values ...float64) float64 {
	high := math.Inf(-1)
	for _, value := range values {
		high = math.Max(high, value)
	}

	return high
}

// shoulders returns the most recent peak triple whose middle peak stands
// above both shoulders and whose shoulders are within tolerance of each other.
func shoulders(values []float64, peaks []int, tolerance float64) (int, int, int, bool) {
	for i := len(peaks) - 3; i >= 0; i-- {
		left, head, right := peaks[i], peaks[i+1], peaks[i+2]
		lv, hv, rv := values[left], values[head], values[right]
		if hv > lv && hv > rv && math.Abs(lv-rv)/math.Max(math.Abs(lv), math.Abs(rv)) < tolerance {
			return left, head, right, true
		}
	}

	return 0, 0, 0, false
}

// detectHeadShoulders looks for a head and shoulders top in the highs, then
// for an inverse head and shoulders bottom in the lows. The direction key is
// -1 for a top, 1 for a bottom and 0 when neither is found.
func detectHeadShoulders(highs []float64, lows []float64, closes []float64, volumes []float64, length int, tolerance float64) map[string]float64 {
	values := map[string]float64{
		"direction":           0,
		"neckline":            0,
		"head":                0,
		"target":              0,
		"completion":          0,
		"volume_confirmation": 0,
	}

	n := len(closes)
	if n < length {
		return values
	}

	price := closes[n-1]
	distance := max(length/4, 1)
	confirmVolume := func(left, right int) {
		if mean(volumes[left:right+1]) > mean(volumes)*patternVolumeRatio {
			values["volume_confirmation"] = 1
		}
	}

	peaks := findPeaks(highs, distance, stdDev(highs)*shoulderProminence)
	if left, head, right, ok := shoulders(highs, peaks, tolerance); ok {
		line := neckline([][]float64{lows[left:head], lows[head:right]}, minOf)
		values["direction"] = -1
		values["neckline"] = line
		values["head"] = highs[head]
		values["target"] = line - (highs[head] - line)
		if highs[right] > line {
			values["completion"] = clampUnit((highs[right] - price) / (highs[right] - line))
		}
		confirmVolume(left, right)
		return values
	}

	troughs := findPeaks(negate(lows), distance, stdDev(lows)*shoulderProminence)
	if left, head, right, ok := shoulders(negate(lows), troughs, tolerance); ok {
		line := neckline([][]float64{highs[left:head], highs[head:right]}, maxOf)
		values["direction"] = 1
		values["neckline"] = line
		values["head"] = lows[head]
		values["target"] = line + (line - lows[head])
		if line > lows[right] {
			values["completion"] = clampUnit((price - lows[right]) / (line - lows[right]))
		}
		confirmVolume(left, right)
	}

	return values
}

// doubleExtreme returns the most recent pair of peaks within tolerance of
// each other.
func doubleExtreme(values []float64, peaks []int, tolerance float64) (int, int, bool) {
	for i := len(peaks) - 2; i >= 0; i-- {
		first, second := values[peaks[i]], values[peaks[i+1]]
		if math.Abs(first-second)/math.Max(math.Abs(first), math.Abs(second)) < tolerance {
			return peaks[i], peaks[i+1], true
		}
	}

	return 0, 0, false
}

// detectChartPatterns flags the chart patterns formed by the provided
// candles. Double tops and bottoms are searched across every candle, the
// remaining patterns across the final length candles. The bullish and
// bearish keys count the directional patterns found and target holds the
// projected price of a double top or bottom.
func detectChartPatterns(highs []float64, lows []float64, closes []float64, length int, tolerance float64) map[string]float64 {
	values := map[string]float64{
		"bullish": 0,
		"bearish": 0,
		"target":  0,
	}
	for _, name := range chartPatternNames {
		values[name] = 0
	}

	n := len(closes)
	if n < length {
		return values
	}

	flag := func(name string, direction float64) {
		values[name] = 1
		switch {
		case direction > 0:
			values["bullish"]++
		case direction < 0:
			values["bearish"]++
		}
	}

	distance := max(length/3, 1)

	tops := findPeaks(highs, distance, stdDev(highs)*doublePeakProminence)
	if first, second, ok := doubleExtreme(highs, tops, tolerance); ok {
		trough := minOf(lows[first:second]...)
		flag("double_top", -1)
		values["target"] = trough - (highs[first] - trough)
	}

	inverted := negate(lows)
	bottoms := findPeaks(inverted, distance, stdDev(lows)*doublePeakProminence)
	if first, second, ok := doubleExtreme(inverted, bottoms, tolerance); ok {
		crest := maxOf(highs[first:second]...)
		flag("double_bottom", 1)
		if values["target"] == 0 {
			values["target"] = crest + (crest - lows[first])
		}
	}

	recentHighs, recentLows, recentCloses := highs[n-length:], lows[n-length:], closes[n-length:]
	highSlope, lowSlope := slope(recentHighs), slope(recentLows)
	highDev, lowDev := stdDev(recentHighs), stdDev(recentLows)

	if !(math.Abs(highSlope) < highDev*trendFlatness && math.Abs(lowSlope) < lowDev*trendFlatness) {
		switch {
		case highSlope < 0 && lowSlope > 0:
			flag("symmetric_triangle", 0)
		case highSlope < 0 && lowSlope < 0:
			flag("descending_triangle", -1)
		case highSlope > 0 && lowSlope > 0:
			flag("ascending_triangle", 1)
		}
	}

	half := length / 2
	pole := recentCloses[:half]
	bodyHighs, bodyLows := recentHighs[half:], recentLows[half:]
	poleSlope := slope(pole)
	bodyHighSlope, bodyLowSlope := slope(bodyHighs), slope(bodyLows)

	if math.Abs(poleSlope) >= stdDev(pole)*trendFlatness {
		switch {
		case poleSlope > 0 && bodyHighSlope < 0 && bodyLowSlope < 0:
			flag("flag", 1)
		case poleSlope < 0 && bodyHighSlope > 0 && bodyLowSlope > 0:
			flag("flag", -1)
		}

		flat := math.Abs(bodyHighSlope) < stdDev(bodyHighs)*trendFlatness &&
			math.Abs(bodyLowSlope) < stdDev(bodyLows)*trendFlatness
		if !flat && bodyHighSlope < 0 && bodyLowSlope > 0 {
			flag("pennant", poleSlope)
		}
	}

	if spread := math.Max(math.Abs(highSlope), math.Abs(lowSlope)); spread > 0 &&
		math.Abs(highSlope-lowSlope)/spread > wedgeConvergence {
		switch {
		case highSlope > 0 && lowSlope > 0:
			flag("rising_wedge", -1)
		case highSlope < 0 && lowSlope < 0:
			flag("falling_wedge", 1)
		}
	}

	top, bottom := maxOf(recentHighs...), minOf(recentLows...)
	if priceRange := top - bottom; priceRange > 0 {
		highRange := top - minOf(recentHighs...)
		lowRange := maxOf(recentLows...) - bottom
		bounded := highRange/priceRange <= rectangleBoundaryRange && lowRange/priceRange <= rectangleBoundaryRange
		sideways := math.Abs(highSlope) <= highDev*rectangleFlatness && math.Abs(lowSlope) <= lowDev*rectangleFlatness
		if bounded && sideways {
			flag("rectangle", 0)
		}
	}

	return values
}
